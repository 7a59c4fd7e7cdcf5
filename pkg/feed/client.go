package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client provides instance-scoped Redis operations for the telemetry feed.
// All keys and channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new feed client for the specified instance.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - instanceName: engine instance identifier (must not be empty)
//
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// PublishCycleEvent validates the event and publishes it as JSON to
// noesis:{instance}:cycle_events. Delivery is at-most-once Pub/Sub: observers
// that are not subscribed at publish time miss the event.
func (c *Client) PublishCycleEvent(ctx context.Context, event *CycleEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid cycle event: %w", err)
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal cycle event: %w", err)
	}

	channel := CycleEventsChannel(c.instanceName)
	if err := c.rdb.Publish(ctx, channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish cycle event: %w", err)
	}

	return nil
}

// MirrorState replaces the mirrored state hash at noesis:{instance}:state with
// the given flattened state view. The hash is deleted first so keys removed
// from the state do not linger.
func (c *Client) MirrorState(ctx context.Context, state map[string]string) error {
	key := StateKey(c.instanceName)

	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(state) > 0 {
		flat := make(map[string]any, len(state))
		for k, v := range state {
			flat[k] = v
		}
		pipe.HSet(ctx, key, flat)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mirror state to Redis: %w", err)
	}
	return nil
}

// GetState retrieves the mirrored state hash.
// Returns an empty map if no state has been mirrored (not an error).
func (c *Client) GetState(ctx context.Context) (map[string]string, error) {
	state, err := c.rdb.HGetAll(ctx, StateKey(c.instanceName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read state from Redis: %w", err)
	}
	return state, nil
}

// StoreReport stores the latest introspection report at
// noesis:{instance}:report, replacing any previous one.
func (c *Client) StoreReport(ctx context.Context, report string) error {
	if err := c.rdb.Set(ctx, ReportKey(c.instanceName), report, 0).Err(); err != nil {
		return fmt.Errorf("failed to store report in Redis: %w", err)
	}
	return nil
}

// GetReport retrieves the stored introspection report.
// Returns ("", redis.Nil) if no report has been stored.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetReport(ctx context.Context) (string, error) {
	report, err := c.rdb.Get(ctx, ReportKey(c.instanceName)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", redis.Nil
		}
		return "", fmt.Errorf("failed to read report from Redis: %w", err)
	}
	return report, nil
}

// Subscription represents an active Pub/Sub subscription to cycle events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *CycleEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of cycle events.
// The channel is closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *CycleEvent {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures and other non-fatal issues.
// The subscription continues after errors - messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeCycleEvents subscribes to cycle events for this instance.
// Returns a Subscription that delivers full cycle event objects.
// Caller must call subscription.Close() when done.
// Context cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 10) to prevent blocking.
// If the subscriber is too slow, events may be dropped by Redis Pub/Sub.
func (c *Client) SubscribeCycleEvents(ctx context.Context) (*Subscription, error) {
	channel := CycleEventsChannel(c.instanceName)
	pubsub := c.rdb.Subscribe(ctx, channel)

	eventsChan := make(chan *CycleEvent, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event CycleEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal cycle event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
// Use this to check if GetReport returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
