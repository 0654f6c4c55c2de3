package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateCounter_FixedWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	counter := NewMemoryRateCounter(clock.Now)
	ctx := context.Background()

	count, reset, err := counter.Hit(ctx, "10.0.0.7", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, time.Minute, reset)

	clock.Advance(20 * time.Second)
	count, reset, err = counter.Hit(ctx, "10.0.0.7", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 40*time.Second, reset)

	count, _, err = counter.Hit(ctx, "10.0.0.8", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "keys are counted separately")

	clock.Advance(40 * time.Second)
	count, reset, err = counter.Hit(ctx, "10.0.0.7", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "a new window starts at the boundary")
	assert.Equal(t, time.Minute, reset)
}

func TestMemoryRateCounter_SweepsExpiredWindows(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	counter := NewMemoryRateCounter(clock.Now)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, _, err := counter.Hit(ctx, key, time.Minute)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, counter.Len())

	clock.Advance(2 * time.Minute)
	_, _, err := counter.Hit(ctx, "d", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, counter.Len())
}

func TestMemoryRateCounter_Concurrent(t *testing.T) {
	counter := NewMemoryRateCounter(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = counter.Hit(ctx, "shared", time.Minute)
		}()
	}
	wg.Wait()

	count, _, err := counter.Hit(ctx, "shared", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(51), count)
}
