// Package activity publishes contact change events to a Redis stream so
// other systems can follow what the bridge did upstream.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/contactbridge/contactbridge/internal/metrics"
)

const (
	// StreamKey is the Redis stream for contact events.
	StreamKey = "stream:contact_events"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 10000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 250 * time.Millisecond
)

// Event types.
const (
	TypeSubscribed = "contact.subscribed"
	TypeUpserted   = "contact.upserted"
	TypeUpdated    = "contact.updated"
)

// ContactEvent describes one successful write against Brevo.
type ContactEvent struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Email      string   `json:"email"`
	ContactID  int64    `json:"contact_id,omitempty"`
	ListIDs    []int64  `json:"list_ids,omitempty"`
	Attributes []string `json:"attributes,omitempty"` // attribute names only
	At         int64    `json:"t"`                    // Unix milliseconds
}

// NewEvent stamps an event with a ULID and the current time.
func NewEvent(eventType, email string) ContactEvent {
	now := time.Now()
	return ContactEvent{
		ID:    ulid.Make().String(),
		Type:  eventType,
		Email: email,
		At:    now.UnixMilli(),
	}
}

// Publisher enqueues contact events to a Redis stream.
type Publisher struct {
	redis    *redis.Client
	logger   *slog.Logger
	metrics  metrics.Recorder
	inflight sync.WaitGroup
}

// NewPublisher creates a new contact event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "activity.publisher"),
		metrics: recorder,
	}
}

// Publish adds an event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, event ContactEvent) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"type":    event.Type,
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *Publisher) PublishAsync(event ContactEvent) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("failed to publish contact event",
				"event_id", event.ID,
				"type", event.Type,
				"error", err,
			)
			p.metrics.IncActivityPublished("dropped")
			return
		}

		p.logger.Debug("contact event published",
			"event_id", event.ID,
			"type", event.Type,
			"stream_id", streamID,
		)
		p.metrics.IncActivityPublished("success")
	}()
}

// Drain waits for PublishAsync calls still in flight. It must run before
// the Redis client is closed.
func (p *Publisher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain contact events: %w", ctx.Err())
	}
}
