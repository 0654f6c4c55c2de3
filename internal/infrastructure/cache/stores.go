package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/agrolink/backend/internal/infrastructure/config"
)

// Backend names reported by Stores
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// RateCounter counts requests per key in fixed windows
type RateCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Stores bundles the shared state backends of one process
type Stores struct {
	Idempotency shared.IdempotencyStore
	Rate        RateCounter
	Backend     string

	client *redis.Client
}

// Ping checks the Redis connection. Memory stores are always reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Close releases the stores and the Redis client they share
func (s *Stores) Close() error {
	var errs []error
	if s.Idempotency != nil {
		errs = append(errs, s.Idempotency.Close())
	}
	if s.client != nil {
		errs = append(errs, s.client.Close())
	}
	return errors.Join(errs...)
}

// Option configures Open
type Option func(*openOptions)

type openOptions struct {
	logger   *zap.Logger
	fallback bool
	connect  func(context.Context, config.RedisConfig) (*redis.Client, error)
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *openOptions) { o.logger = logger }
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// process memory. On by default.
func WithInMemoryFallback(allow bool) Option {
	return func(o *openOptions) { o.fallback = allow }
}

// Open builds the stores. Redis is used when enabled and reachable; when it
// is disabled, or unreachable with the fallback allowed, both stores live in
// memory and every instance keeps its own state.
func Open(ctx context.Context, cfg config.RedisConfig, opts ...Option) (*Stores, error) {
	o := openOptions{logger: zap.NewNop(), fallback: true, connect: Connect}
	for _, opt := range opts {
		opt(&o)
	}

	if !cfg.Enabled {
		o.logger.Info("Redis disabled, using in-memory stores")
		return memoryStores(), nil
	}

	client, err := o.connect(ctx, cfg)
	if err != nil {
		if !o.fallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		o.logger.Warn("Redis unavailable, using in-memory stores. Each instance keeps its own rate limits and deadline warnings.",
			zap.String("addr", cfg.Addr()),
			zap.Error(err),
		)
		return memoryStores(), nil
	}

	o.logger.Info("Using Redis stores", zap.String("addr", cfg.Addr()), zap.Int("db", cfg.DB))
	return &Stores{
		Idempotency: NewRedisIdempotencyStore(client, IdempotencyKeyPrefix),
		Rate:        NewRedisRateCounter(client, RateKeyPrefix),
		Backend:     BackendRedis,
		client:      client,
	}, nil
}

func memoryStores() *Stores {
	return &Stores{
		Idempotency: NewInMemoryIdempotencyStore(),
		Rate:        NewMemoryRateCounter(nil),
		Backend:     BackendMemory,
	}
}
