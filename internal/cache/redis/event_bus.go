package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"alphawatch/internal/domain"
)

// EventBus implements domain.EventBus using Redis Pub/Sub. The engine
// publishes composed notifications on per-user channels; the WebSocket hub
// subscribes and forwards them to connected clients.
type EventBus struct {
	rdb *redis.Client
}

// NewEventBus creates an EventBus backed by the given Client.
func NewEventBus(c *Client) *EventBus {
	return &EventBus{rdb: c.Underlying()}
}

// Publish sends a raw byte payload to a Pub/Sub channel.
func (b *EventBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe creates a pattern Pub/Sub subscription and returns a read-only
// channel of events. The subscription and the returned channel are closed
// when the context is cancelled.
func (b *EventBus) Subscribe(ctx context.Context, pattern string) (<-chan domain.Event, error) {
	pubsub := b.rdb.PSubscribe(ctx, pattern)

	// Receive the subscription confirmation before handing out the channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", pattern, err)
	}

	out := make(chan domain.Event, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- domain.Event{Channel: msg.Channel, Payload: []byte(msg.Payload)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Compile-time interface check.
var _ domain.EventBus = (*EventBus)(nil)
