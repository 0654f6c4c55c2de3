package notification

import (
	"context"

	"github.com/agrolink/backend/internal/domain/ordering"
	"go.uber.org/zap"
)

// LogDispatcher writes notifications to the log. Used when no broker is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a new LogDispatcher
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDispatcher{logger: logger}
}

// Dispatch logs the notification
func (d *LogDispatcher) Dispatch(_ context.Context, n ordering.Notification) error {
	recipients := make([]string, len(n.Recipients))
	for i, r := range n.Recipients {
		recipients[i] = r.String()
	}
	d.logger.Info("notification",
		zap.String("notification_id", n.ID.String()),
		zap.String("kind", n.Kind),
		zap.String("order_id", n.OrderID.String()),
		zap.Strings("recipients", recipients),
		zap.String("subject", n.Subject),
		zap.Any("attributes", n.Attributes),
	)
	return nil
}

// Close is a no-op
func (d *LogDispatcher) Close() error {
	return nil
}

var _ ordering.NotificationDispatcher = (*LogDispatcher)(nil)
