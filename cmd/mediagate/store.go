package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"mediagate/pkg/config"
	"mediagate/pkg/ratelimit"
)

// openStore builds the limiter store for the configured backend. The
// returned close function releases any connection it opened.
func openStore(ctx context.Context, cfg config.RateLimitConfig) (ratelimit.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendMemory:
		return ratelimit.NewMemoryStore(), noop, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := ratelimit.NewRedisStore(client, cfg.Redis.Prefix)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return store, client.Close, nil

	case config.BackendFile, "":
		store, err := ratelimit.OpenFileStore(cfg.StateFile)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	}

	return nil, nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
}
