package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/agrolink/backend/internal/domain/shared"
)

// Delivery outcomes reported by IdempotentHandler
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// eventKeyPrefix keeps event keys apart from deadline warning keys in a shared store
const eventKeyPrefix = "event:"

// DeliveryRecorder receives the outcome of every delivery
type DeliveryRecorder interface {
	RecordEventDelivery(ctx context.Context, eventType, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordEventDelivery(context.Context, string, string) {}

// IdempotentHandler lets each event ID through to the wrapped handler once,
// so a redelivered OrderClosed never notifies the supplier twice.
type IdempotentHandler struct {
	next     shared.EventHandler
	store    shared.IdempotencyStore
	config   shared.IdempotencyConfig
	recorder DeliveryRecorder
	logger   *zap.Logger
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides the default TTL and switch
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.config = config }
}

// WithDeliveryRecorder reports outcomes, usually to the business metrics
func WithDeliveryRecorder(recorder DeliveryRecorder) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if recorder != nil {
			h.recorder = recorder
		}
	}
}

// NewIdempotentHandler wraps next
func NewIdempotentHandler(next shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		next:     next,
		store:    store,
		config:   shared.DefaultIdempotencyConfig(),
		recorder: nopRecorder{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes implements shared.EventHandler
func (h *IdempotentHandler) EventTypes() []string {
	return h.next.EventTypes()
}

// Handle implements shared.EventHandler. When the store cannot be reached the
// event is handled anyway: a duplicate notification beats a lost one.
// A failed delivery keeps its key until the TTL expires.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.config.Enabled && h.seen(ctx, event) {
		h.recorder.RecordEventDelivery(ctx, event.EventType(), OutcomeDuplicate)
		return nil
	}

	if err := h.next.Handle(ctx, event); err != nil {
		h.recorder.RecordEventDelivery(ctx, event.EventType(), OutcomeFailed)
		h.logger.Error("Event handler failed",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		return err
	}
	h.recorder.RecordEventDelivery(ctx, event.EventType(), OutcomeProcessed)
	return nil
}

// seen claims the event key and reports whether another delivery already held it
func (h *IdempotentHandler) seen(ctx context.Context, event shared.DomainEvent) bool {
	claimed, err := h.store.MarkProcessed(ctx, eventKeyPrefix+event.EventID().String(), h.config.TTL)
	if err != nil {
		h.logger.Warn("Idempotency store unavailable, handling event anyway",
			zap.String("event_id", event.EventID().String()),
			zap.Error(err),
		)
		return false
	}
	if !claimed {
		h.logger.Debug("Duplicate event skipped",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
		)
	}
	return !claimed
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
