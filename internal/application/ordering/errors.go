package ordering

import (
	"context"

	"github.com/agrolink/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// boundaryError passes business errors through unchanged. Anything else is logged with the
// operation and converted to the generic INTERNAL_ERROR so infrastructure details never leak.
func boundaryError(logger *zap.Logger, operation string, err error, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	if shared.IsBusinessError(err) {
		return err
	}

	fields = append(fields, zap.String("operation", operation), zap.Error(err))
	logger.Error("unexpected error in ordering service", fields...)
	return shared.ErrInternal
}

// publishEvents publishes the aggregate's pending events after commit and clears them.
// Publishing failures are logged; the committed change stands.
func publishEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, aggregate shared.EventSource) {
	events := aggregate.PullEvents()
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("failed to publish domain events",
			zap.String("aggregate_id", aggregate.AggregateID().String()),
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)
	}
}
