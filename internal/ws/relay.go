package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Relay carries events between processes over a Redis channel. The worker
// publishes, the API subscribes and fans out to its hub.
type Relay struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func NewRelay(client *redis.Client, channel string, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{client: client, channel: channel, logger: logger}
}

// Publish sends one event to the channel.
func (r *Relay) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, raw).Err()
}

// Forward subscribes to the channel and pushes every valid event into hub
// until ctx is cancelled. It returns once the subscription is confirmed.
func (r *Relay) Forward(ctx context.Context, hub *Hub) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil || event.Type == "" {
					r.logger.Warn("relay dropped malformed event", slog.String("channel", r.channel))
					continue
				}
				hub.PublishRaw([]byte(msg.Payload))
			}
		}
	}()
	return nil
}
