// Package bootstrap opens the long-lived dependencies shared by the server and
// the seed tool.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/media"
	"inkwell/internal/repository"

	"github.com/redis/go-redis/v9"
)

// Runtime bundles the connections built from configuration.
type Runtime struct {
	Store *repository.Store
	// Redis is nil when REDIS_URL is unset or unreachable.
	Redis *redis.Client
	Relay media.Relay
}

// InitRuntime connects the store selected by STORE_DRIVER, Redis and the media relay.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	relay, err := media.New(ctx, media.ConfigFrom(cfg))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("media relay setup failed: %w", err)
	}

	// Redis is optional (may result in nil client if unreachable)
	rdb := cache.Connect(ctx, cfg.RedisURL)

	return &Runtime{Store: store, Redis: rdb, Relay: relay}, nil
}

// OpenStore connects to MongoDB or a SQL database depending on cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	if cfg.StoreDriver == config.StoreMongo {
		client, db, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("mongo connection failed: %w", err)
		}
		return repository.NewMongoStore(client, db), nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return repository.NewGormStore(db, cfg.StoreDriver), nil
}

// Close releases the store and Redis connections.
func (r *Runtime) Close() error {
	var errs []error
	if r.Store != nil {
		errs = append(errs, r.Store.Close())
	}
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	return errors.Join(errs...)
}
