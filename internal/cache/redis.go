// Package cache provides the Redis client and key layout used by the application.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/observability"

	"github.com/redis/go-redis/v9"
)

// errorMetricsHook counts failed commands per command name. redis.Nil is a
// cache miss, not a failure.
type errorMetricsHook struct{}

func (errorMetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (errorMetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		return countFailure(cmd.Name(), next(ctx, cmd))
	}
}

func (errorMetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		return countFailure("pipeline", next(ctx, cmds))
	}
}

func countFailure(command string, err error) error {
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RedisErrorRate.WithLabelValues(command).Inc()
	}
	return err
}

// NewClient builds a Redis client for addr, which may be a host:port pair or a redis:// URL.
func NewClient(addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	client.AddHook(errorMetricsHook{})
	return client, nil
}

// Connect builds a client and pings it. Redis is optional: on failure it logs
// a warning and returns nil so rate limiting fails open and activity events
// stay in-process.
func Connect(ctx context.Context, addr string) *redis.Client {
	if strings.TrimSpace(addr) == "" {
		return nil
	}

	client, err := NewClient(addr)
	if err != nil {
		observability.Logger.Warn("invalid REDIS_URL, continuing without redis",
			slog.String("addr", addr), slog.String("error", err.Error()))
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		observability.Logger.Warn("redis unavailable, continuing without redis",
			slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}

	observability.Logger.Info("Redis connected successfully")
	return client
}
