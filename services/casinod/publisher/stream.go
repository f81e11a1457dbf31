package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"wagerchain/core/events"
)

// StreamAdder is the slice of the redis client the publisher needs.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// StreamPublisher mirrors committed events into Redis Streams. Every event
// lands on "<prefix>.events"; events naming a game are also written to
// "<prefix>.events.<game>".
type StreamPublisher struct {
	redis   StreamAdder
	prefix  string
	maxLen  int64
	timeout time.Duration
	log     *slog.Logger
}

// NewStreamPublisher creates a publisher over client.
func NewStreamPublisher(client StreamAdder, prefix string, maxLen int64, log *slog.Logger) *StreamPublisher {
	if prefix == "" {
		prefix = "casino"
	}
	if log == nil {
		log = slog.Default()
	}
	return &StreamPublisher{redis: client, prefix: prefix, maxLen: maxLen, timeout: 2 * time.Second, log: log}
}

// Emit implements events.Emitter.
func (p *StreamPublisher) Emit(evt events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.Publish(ctx, evt); err != nil {
		p.log.Warn("publish event", "type", evt.EventType(), "error", err)
	}
}

// Publish writes evt to its streams.
func (p *StreamPublisher) Publish(ctx context.Context, evt events.Event) error {
	payload := events.Unwrap(evt)
	if payload == nil {
		return fmt.Errorf("publisher: event %q has no payload", evt.EventType())
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshaling event: %w", err)
	}
	streams := []string{p.prefix + ".events"}
	if game := payload.Attributes["game"]; game != "" {
		streams = append(streams, fmt.Sprintf("%s.events.%s", p.prefix, game))
	}
	for _, stream := range streams {
		args := &redis.XAddArgs{
			Stream: stream,
			Values: map[string]interface{}{
				"type": payload.Type,
				"data": string(data),
			},
		}
		if p.maxLen > 0 {
			args.MaxLen = p.maxLen
			args.Approx = true
		}
		if _, err := p.redis.XAdd(ctx, args).Result(); err != nil {
			return fmt.Errorf("error publishing to stream %s: %w", stream, err)
		}
	}
	return nil
}
