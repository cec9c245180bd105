package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"lostfound/internal/crosstab/models"
)

const channelPrefix = "authflow:events:"

// RedisBus uses pub/sub on one channel per namespace.
type RedisBus struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

func NewRedis(client redis.UniversalClient, namespace string, logger *slog.Logger) *RedisBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{client: client, channel: channelPrefix + namespace, logger: logger}
}

func (b *RedisBus) Publish(ctx context.Context, msg models.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode auth flow message: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish auth flow message: %w", err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed, then delivers
// messages on a goroutine until the returned cancel func is called or ctx ends.
func (b *RedisBus) Subscribe(ctx context.Context, fn func(models.Message)) (func(), error) {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe auth flow channel: %w", err)
	}

	ch := sub.Channel()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case raw, ok := <-ch:
				if !ok {
					return
				}
				var msg models.Message
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					b.logger.Warn("dropping malformed auth flow message", "error", err)
					continue
				}
				fn(msg)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}, nil
}
