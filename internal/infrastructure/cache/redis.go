// Package cache holds the short-lived shared state of the service: processed
// keys for idempotent delivery and per-caller request counters. Both live in
// Redis when it is configured and in process memory otherwise.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agrolink/backend/internal/infrastructure/config"
)

const connectTimeout = 5 * time.Second

// Connect opens a client for cfg and pings it. The client is closed again
// when the ping fails.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}
