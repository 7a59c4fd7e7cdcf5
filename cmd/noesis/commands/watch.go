package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dyluth/noesis/internal/printer"
	"github.com/dyluth/noesis/pkg/feed"
)

var (
	watchInstance     string
	watchRedisAddr    string
	watchOutputFormat string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a running engine's telemetry feed",
	Long: `Follow the real-time telemetry feed of a running engine.

Streams one event per completed cognitive cycle: the reflection summary, the
integration signal, workspace size, and any anomalies or emergent properties
the monitor has flagged so far.

Output Formats:
  default - Human-readable output with timestamps and colors
  json    - Line-delimited JSON for programmatic processing

Examples:
  # Watch the default instance on a local Redis
  noesis watch

  # Watch a named instance
  noesis watch --name lab --redis redis.internal:6379

  # Export events as JSON
  noesis watch --output=json > events.jsonl`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchInstance, "name", "n", "default", "Instance name to watch")
	watchCmd.Flags().StringVar(&watchRedisAddr, "redis", "localhost:6379", "Redis address of the telemetry feed")
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchOutputFormat != "default" && watchOutputFormat != "json" {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := feed.NewClient(&redis.Options{Addr: watchRedisAddr}, watchInstance)
	if err != nil {
		return fmt.Errorf("failed to create feed client: %w", err)
	}
	defer client.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		return printer.Error(
			"cannot reach Redis",
			fmt.Sprintf("Ping to %s failed: %v", watchRedisAddr, err),
			[]string{"Check that Redis is running and the address is correct"},
		)
	}

	sub, err := client.SubscribeCycleEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to cycle events: %w", err)
	}
	defer sub.Close()

	if watchOutputFormat == "default" {
		printer.Step("Watching instance '%s' (Ctrl+C to stop)\n", watchInstance)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-sub.Errors():
			if ok && err != nil {
				printer.Warning("feed error: %v\n", err)
			}
		case event, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if watchOutputFormat == "json" {
				line, err := json.Marshal(event)
				if err != nil {
					printer.Warning("failed to marshal event: %v\n", err)
					continue
				}
				fmt.Println(string(line))
			} else {
				printer.CycleEvent(event)
			}
		}
	}
}
