package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateKeyPrefix namespaces rate limit windows in a shared Redis
const RateKeyPrefix = "agrolink:ratelimit:"

// MemoryRateCounter counts hits in fixed windows per key in process memory.
// Expired windows are dropped on the next sweep, at most once per window.
type MemoryRateCounter struct {
	mu        sync.Mutex
	windows   map[string]*rateWindow
	now       func() time.Time
	lastSweep time.Time
}

type rateWindow struct {
	count int64
	ends  time.Time
}

// NewMemoryRateCounter creates an empty counter. now may be nil.
func NewMemoryRateCounter(now func() time.Time) *MemoryRateCounter {
	if now == nil {
		now = time.Now
	}
	return &MemoryRateCounter{windows: make(map[string]*rateWindow), now: now}
}

// Hit counts one request for key and returns the window total and the time
// until it resets
func (c *MemoryRateCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= window {
		for k, w := range c.windows {
			if !now.Before(w.ends) {
				delete(c.windows, k)
			}
		}
		c.lastSweep = now
	}

	w, ok := c.windows[key]
	if !ok || !now.Before(w.ends) {
		w = &rateWindow{ends: now.Add(window)}
		c.windows[key] = w
	}
	w.count++
	return w.count, w.ends.Sub(now), nil
}

// Len returns the number of live windows
func (c *MemoryRateCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.windows)
}

// RedisRateCounter shares fixed windows between instances. The first hit of
// a window sets its expiry; later hits leave it alone.
type RedisRateCounter struct {
	client redis.Cmdable
	prefix string
}

// NewRedisRateCounter uses client, which stays owned by the caller
func NewRedisRateCounter(client redis.Cmdable, prefix string) *RedisRateCounter {
	if prefix == "" {
		prefix = RateKeyPrefix
	}
	return &RedisRateCounter{client: client, prefix: prefix}
}

// Hit increments the window counter for key
func (c *RedisRateCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := c.prefix + key
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, window)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("count hit for %s: %w", key, err)
	}

	reset := ttl.Val()
	if reset < 0 {
		reset = window
	}
	return incr.Val(), reset, nil
}
