package event

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agrolink/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithAsyncDispatch runs handlers in background goroutines so that publishing
// returns as soon as the events are handed over. Stop waits for them.
func WithAsyncDispatch(handlerTimeout time.Duration) BusOption {
	return func(b *InMemoryEventBus) {
		b.async = true
		b.handlerTimeout = handlerTimeout
	}
}

// InMemoryEventBus delivers committed domain events to in-process handlers
type InMemoryEventBus struct {
	registry       *HandlerRegistry
	logger         *zap.Logger
	running        atomic.Bool
	wg             sync.WaitGroup
	async          bool
	handlerTimeout time.Duration
	published      atomic.Int64
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers events to their handlers. Handler failures are logged and never
// reach the caller: the state change that raised the event is already committed.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		b.published.Add(1)
		handlers := b.registry.Handlers(event.EventType())
		if len(handlers) == 0 {
			b.logger.Debug("no handler for event",
				zap.String("event_type", event.EventType()),
				zap.String("aggregate_id", event.AggregateID().String()),
			)
			continue
		}

		for _, handler := range handlers {
			if b.async && b.running.Load() {
				b.dispatchAsync(ctx, handler, event)
				continue
			}
			b.dispatch(ctx, handler, event)
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start starts the event bus
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started", zap.Bool("async", b.async))
	return nil
}

// Stop stops accepting background work and waits for running handlers
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped", zap.Int64("published", b.published.Load()))
		return nil
	case <-ctx.Done():
		b.logger.Warn("event bus stop timed out, handlers still running")
		return ctx.Err()
	}
}

// Published returns the number of events published since creation
func (b *InMemoryEventBus) Published() int64 {
	return b.published.Load()
}

func (b *InMemoryEventBus) dispatchAsync(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) {
	// The request context ends with the response, so background handlers get their own.
	handlerCtx := context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if b.handlerTimeout > 0 {
			var cancel context.CancelFunc
			handlerCtx, cancel = context.WithTimeout(handlerCtx, b.handlerTimeout)
			defer cancel()
		}
		b.dispatch(handlerCtx, handler, event)
	}()
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) {
	if err := b.dispatchToHandler(ctx, handler, event); err != nil {
		b.logger.Error("handler failed to process event",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()),
			zap.Error(err),
		)
	}
}

// dispatchToHandler safely dispatches an event to a handler
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
		}
	}()

	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
