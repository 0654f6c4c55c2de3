package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/agrolink/backend/internal/infrastructure/cache"
)

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

// outcomeLog counts outcomes per kind
type outcomeLog struct {
	mu     sync.Mutex
	counts map[string]int
}

func (l *outcomeLog) RecordEventDelivery(_ context.Context, _ string, outcome string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts == nil {
		l.counts = map[string]int{}
	}
	l.counts[outcome]++
}

func (l *outcomeLog) snapshot() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := map[string]int{}
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

func TestIdempotentHandler_ClaimsEventKey(t *testing.T) {
	ctx := context.Background()
	store := new(mockIdempotencyStore)
	inner := newTestHandler(ordering.EventTypeOrderClosed)
	outcomes := &outcomeLog{}
	event := newTestEvent(ordering.EventTypeOrderClosed)

	store.On("MarkProcessed", mock.Anything, "event:"+event.EventID().String(), 24*time.Hour).Return(true, nil).Once()

	h := NewIdempotentHandler(inner, store, nil, WithDeliveryRecorder(outcomes))
	require.NoError(t, h.Handle(ctx, event))

	store.AssertExpectations(t)
	assert.Len(t, inner.getHandled(), 1)
	assert.Equal(t, map[string]int{OutcomeProcessed: 1}, outcomes.snapshot())
	assert.Equal(t, []string{ordering.EventTypeOrderClosed}, h.EventTypes())
}

func TestIdempotentHandler_SkipsDuplicate(t *testing.T) {
	store := new(mockIdempotencyStore)
	store.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	inner := newTestHandler()
	outcomes := &outcomeLog{}

	h := NewIdempotentHandler(inner, store, nil, WithDeliveryRecorder(outcomes))
	require.NoError(t, h.Handle(context.Background(), newTestEvent(ordering.EventTypeOrderClosed)))

	assert.Empty(t, inner.getHandled())
	assert.Equal(t, map[string]int{OutcomeDuplicate: 1}, outcomes.snapshot())
}

func TestIdempotentHandler_StoreDownStillDelivers(t *testing.T) {
	store := new(mockIdempotencyStore)
	store.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
	inner := newTestHandler()

	h := NewIdempotentHandler(inner, store, nil)
	require.NoError(t, h.Handle(context.Background(), newTestEvent(ordering.EventTypeOrderCancelled)))

	assert.Len(t, inner.getHandled(), 1)
}

func TestIdempotentHandler_ReturnsHandlerError(t *testing.T) {
	store := new(mockIdempotencyStore)
	store.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	inner := newTestHandler()
	inner.err = errors.New("dispatch failed")
	outcomes := &outcomeLog{}

	h := NewIdempotentHandler(inner, store, nil, WithDeliveryRecorder(outcomes))
	err := h.Handle(context.Background(), newTestEvent(ordering.EventTypeDeadlineApproaching))

	assert.EqualError(t, err, "dispatch failed")
	assert.Equal(t, map[string]int{OutcomeFailed: 1}, outcomes.snapshot())
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	store := new(mockIdempotencyStore)
	inner := newTestHandler()
	event := newTestEvent(ordering.EventTypeOrderClosed)

	h := NewIdempotentHandler(inner, store, nil,
		WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	assert.Len(t, inner.getHandled(), 2)
}

func TestIdempotentHandler_ConcurrentRedelivery(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := newTestHandler()
	outcomes := &outcomeLog{}
	h := NewIdempotentHandler(inner, store, nil, WithDeliveryRecorder(outcomes))
	event := newTestEvent(ordering.EventTypeOrderClosed)

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.Handle(context.Background(), event))
		}()
	}
	wg.Wait()

	assert.Len(t, inner.getHandled(), 1)
	assert.Equal(t, map[string]int{OutcomeProcessed: 1, OutcomeDuplicate: workers - 1}, outcomes.snapshot())
}
