// Package notifications fans activity events out to WebSocket subscribers,
// across instances through Redis pub/sub when Redis is available.
package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"

	"inkwell/internal/cache"
	"inkwell/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes activity payloads into Redis and subscribes to them.
type Notifier struct {
	rdb     *redis.Client
	channel string
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb, channel: cache.ActivityChannel}
}

// Enabled reports whether a Redis client is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// Publish sends payload to every subscribed instance.
func (n *Notifier) Publish(ctx context.Context, payload []byte) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, n.channel, payload).Err()
}

// StartSubscriber subscribes to the activity channel and calls onMessage for each
// payload until ctx is cancelled. The subscription is confirmed before it returns.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, n.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.Logger.Error("panic in activity subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
