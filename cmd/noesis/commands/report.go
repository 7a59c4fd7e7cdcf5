package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dyluth/noesis/internal/printer"
	"github.com/dyluth/noesis/pkg/feed"
)

var (
	reportInstance  string
	reportRedisAddr string
	reportWithState bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch the latest introspection report for an instance",
	Long: `Fetch the introspection report a run stored in the telemetry feed.

The report summarizes the whole run: total cycles, average integration
signal, detected anomalies and any emergent properties. With --state the
instance's last mirrored process state is printed as well.

Examples:
  # Report for the default instance
  noesis report

  # Report plus the mirrored state of a named instance
  noesis report --name lab --state`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportInstance, "name", "n", "default", "Instance name")
	reportCmd.Flags().StringVar(&reportRedisAddr, "redis", "localhost:6379", "Redis address of the telemetry feed")
	reportCmd.Flags().BoolVar(&reportWithState, "state", false, "Also print the last mirrored process state")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := feed.NewClient(&redis.Options{Addr: reportRedisAddr}, reportInstance)
	if err != nil {
		return fmt.Errorf("failed to create feed client: %w", err)
	}
	defer client.Close()

	report, err := client.GetReport(ctx)
	if err != nil {
		if feed.IsNotFound(err) {
			return printer.Error(
				"no report found",
				fmt.Sprintf("Instance '%s' has not stored a report yet.", reportInstance),
				[]string{"Run the engine first:\n  noesis run --redis " + reportRedisAddr},
			)
		}
		return fmt.Errorf("failed to fetch report: %w", err)
	}

	printer.Println(report)

	if reportWithState {
		state, err := client.GetState(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch state: %w", err)
		}

		printer.Printf("\nLast mirrored state (%d keys):\n", len(state))
		for key, value := range state {
			printer.Printf("  %s: %s\n", key, printer.FormatSummary(value, 100))
		}
	}

	return nil
}
