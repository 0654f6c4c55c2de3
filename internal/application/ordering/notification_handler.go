package ordering

import (
	"context"
	"fmt"
	"time"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationHandler forwards deadline warnings and negotiation outcomes to the notification dispatcher.
// Delivery is fire-and-forget: dispatch failures are logged and never affect the order.
type NotificationHandler struct {
	dispatcher ordering.NotificationDispatcher
	logger     *zap.Logger
}

// NewNotificationHandler creates a new handler for negotiation notifications
func NewNotificationHandler(dispatcher ordering.NotificationDispatcher, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *NotificationHandler) EventTypes() []string {
	return []string{
		ordering.EventTypeDeadlineApproaching,
		ordering.EventTypeOrderClosed,
		ordering.EventTypeOrderCancelled,
	}
}

// Handle converts the event into a notification and dispatches it
func (h *NotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	notification, ok := h.toNotification(event)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.Strings("expected", h.EventTypes()),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	if err := h.dispatcher.Dispatch(ctx, notification); err != nil {
		h.logger.Warn("failed to dispatch notification",
			zap.String("kind", notification.Kind),
			zap.String("order_id", notification.OrderID.String()),
			zap.Error(err),
		)
		return nil
	}

	h.logger.Debug("notification dispatched",
		zap.String("kind", notification.Kind),
		zap.String("order_id", notification.OrderID.String()),
	)
	return nil
}

func (h *NotificationHandler) toNotification(event shared.DomainEvent) (ordering.Notification, bool) {
	n := ordering.Notification{
		ID:         event.EventID(),
		OrderID:    event.AggregateID(),
		OccurredAt: event.OccurredAt(),
		Attributes: map[string]string{"event_type": event.EventType()},
	}

	switch e := event.(type) {
	case *ordering.DeadlineApproachingEvent:
		n.Kind = ordering.NotificationDeadlineWarning
		n.Recipients = recipients(e.BuyerUserID, e.SupplierID, e.ProducerID)
		n.Subject = "Negotiation deadline approaching"
		n.Body = fmt.Sprintf("The negotiation of order %s expires at %s (in %s).",
			e.OrderID, e.InteractionDeadline.UTC().Format(time.RFC3339), e.TimeRemaining.Round(time.Minute))
		n.Attributes["interaction_deadline"] = e.InteractionDeadline.UTC().Format(time.RFC3339)
	case *ordering.OrderClosedEvent:
		n.Kind = ordering.NotificationNegotiationClosed
		n.Recipients = recipients(e.SupplierID, e.ProducerID)
		n.Subject = "Negotiation closed"
		n.Body = fmt.Sprintf("Order %s was accepted with %d items for a net value of %s.",
			e.OrderID, e.ItemCount, e.NetValue.StringFixed(2))
		n.Attributes["net_value"] = e.NetValue.StringFixed(2)
	case *ordering.OrderCancelledEvent:
		n.Recipients = recipients(e.SupplierID, e.ProducerID)
		n.Attributes["status"] = string(e.Status)
		if e.Status == ordering.OrderStatusCancelledByDeadline {
			n.Kind = ordering.NotificationNegotiationExpired
			n.Subject = "Negotiation expired"
			n.Body = fmt.Sprintf("Order %s was cancelled because its negotiation deadline passed.", e.OrderID)
		} else {
			n.Kind = ordering.NotificationOrderCancelled
			n.Subject = "Order cancelled"
			n.Body = fmt.Sprintf("Order %s was cancelled by the buyer.", e.OrderID)
		}
	default:
		return ordering.Notification{}, false
	}

	return n, true
}

func recipients(ids ...uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
