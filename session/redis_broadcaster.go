package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster publishes events on a redis channel scoped to one browser
// profile, so tabs served by different processes observe the same changes.
type RedisBroadcaster struct {
	redis   redis.UniversalClient
	channel string
	logger  Logger
}

// Logger is the subset of the application logger the broadcaster needs.
type Logger interface {
	Error(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// NewRedisBroadcaster scopes a Broadcaster to profileID under prefix.
func NewRedisBroadcaster(client redis.UniversalClient, prefix, profileID string) *RedisBroadcaster {
	if prefix == "" {
		prefix = "pondana:auth-events"
	}
	return &RedisBroadcaster{
		redis:   client,
		channel: fmt.Sprintf("%s:%s", prefix, profileID),
		logger:  noopLogger{},
	}
}

// WithLogger sets the logger used for undecodable payloads.
func (b *RedisBroadcaster) WithLogger(logger Logger) *RedisBroadcaster {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// Channel returns the redis channel name.
func (b *RedisBroadcaster) Channel() string {
	return b.channel
}

func (b *RedisBroadcaster) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode auth event: %w", err)
	}
	if err := b.redis.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return nil
}

func (b *RedisBroadcaster) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	sub := b.redis.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}

	out := make(chan Event)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}

	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Error("auth event decode failed: %v", err)
					continue
				}
				select {
				case out <- event:
				case <-done:
					return
				case <-ctx.Done():
					cancel()
					return
				}
			}
		}
	}()

	return out, cancel, nil
}
