package ordering

import (
	"time"

	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderCreated        = "OrderCreated"
	EventTypeCartChanged         = "CartChanged"
	EventTypeOrderClosed         = "OrderClosed"
	EventTypeOrderCancelled      = "OrderCancelled"
	EventTypeDeadlineExtended    = "DeadlineExtended"
	EventTypeDeadlineApproaching = "DeadlineApproaching"
	EventTypeTransportScheduled  = "TransportScheduled"
	EventTypeTransportCancelled  = "TransportCancelled"
)

// CartChangeKind describes what happened to a cart line
type CartChangeKind string

const (
	CartChangeItemAdded   CartChangeKind = "ITEM_ADDED"
	CartChangeItemUpdated CartChangeKind = "ITEM_UPDATED"
	CartChangeItemRemoved CartChangeKind = "ITEM_REMOVED"
)

// OrderCreatedEvent is raised when a negotiation is opened
type OrderCreatedEvent struct {
	shared.EventHeader
	OrderID             uuid.UUID `json:"order_id"`
	SupplierID          uuid.UUID `json:"supplier_id"`
	ProducerID          uuid.UUID `json:"producer_id"`
	InteractionDeadline time.Time `json:"interaction_deadline"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(order *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		EventHeader:     shared.NewEventHeader(EventTypeOrderCreated, AggregateTypeOrder, order.ID),
		OrderID:             order.ID,
		SupplierID:          order.SupplierID,
		ProducerID:          order.ProducerID,
		InteractionDeadline: order.InteractionDeadline,
	}
}

// CartChangedEvent is raised when a cart line is added, updated or removed
type CartChangedEvent struct {
	shared.EventHeader
	OrderID   uuid.UUID       `json:"order_id"`
	Change    CartChangeKind  `json:"change"`
	ItemID    uuid.UUID       `json:"item_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// NewCartChangedEvent creates a new CartChangedEvent
func NewCartChangedEvent(order *Order, change CartChangeKind, item *OrderItem) *CartChangedEvent {
	return &CartChangedEvent{
		EventHeader: shared.NewEventHeader(EventTypeCartChanged, AggregateTypeOrder, order.ID),
		OrderID:         order.ID,
		Change:          change,
		ItemID:          item.ID,
		ProductID:       item.ProductID,
		Quantity:        item.Quantity,
	}
}

// OrderClosedEvent is raised when the buyer accepts the negotiated cart
type OrderClosedEvent struct {
	shared.EventHeader
	OrderID    uuid.UUID       `json:"order_id"`
	SupplierID uuid.UUID       `json:"supplier_id"`
	ProducerID uuid.UUID       `json:"producer_id"`
	NetValue   decimal.Decimal `json:"net_value"`
	ItemCount  int             `json:"item_count"`
}

// NewOrderClosedEvent creates a new OrderClosedEvent
func NewOrderClosedEvent(order *Order) *OrderClosedEvent {
	return &OrderClosedEvent{
		EventHeader: shared.NewEventHeader(EventTypeOrderClosed, AggregateTypeOrder, order.ID),
		OrderID:         order.ID,
		SupplierID:      order.SupplierID,
		ProducerID:      order.ProducerID,
		NetValue:        order.Totals.NetValue,
		ItemCount:       len(order.Items),
	}
}

// OrderCancelledEvent is raised when the buyer or the deadline sweep cancels an order
type OrderCancelledEvent struct {
	shared.EventHeader
	OrderID    uuid.UUID   `json:"order_id"`
	SupplierID uuid.UUID   `json:"supplier_id"`
	ProducerID uuid.UUID   `json:"producer_id"`
	Status     OrderStatus `json:"status"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(order *Order) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		EventHeader: shared.NewEventHeader(EventTypeOrderCancelled, AggregateTypeOrder, order.ID),
		OrderID:         order.ID,
		SupplierID:      order.SupplierID,
		ProducerID:      order.ProducerID,
		Status:          order.Status,
	}
}

// DeadlineExtendedEvent is raised when the negotiation window is reset
type DeadlineExtendedEvent struct {
	shared.EventHeader
	OrderID          uuid.UUID `json:"order_id"`
	PreviousDeadline time.Time `json:"previous_deadline"`
	NewDeadline      time.Time `json:"new_deadline"`
}

// NewDeadlineExtendedEvent creates a new DeadlineExtendedEvent
func NewDeadlineExtendedEvent(order *Order, previous time.Time) *DeadlineExtendedEvent {
	return &DeadlineExtendedEvent{
		EventHeader:  shared.NewEventHeader(EventTypeDeadlineExtended, AggregateTypeOrder, order.ID),
		OrderID:          order.ID,
		PreviousDeadline: previous,
		NewDeadline:      order.InteractionDeadline,
	}
}

// DeadlineApproachingEvent is raised by the deadline sweep for orders close to expiry
type DeadlineApproachingEvent struct {
	shared.EventHeader
	OrderID             uuid.UUID     `json:"order_id"`
	SupplierID          uuid.UUID     `json:"supplier_id"`
	ProducerID          uuid.UUID     `json:"producer_id"`
	BuyerUserID         uuid.UUID     `json:"buyer_user_id"`
	InteractionDeadline time.Time     `json:"interaction_deadline"`
	TimeRemaining       time.Duration `json:"time_remaining"`
}

// NewDeadlineApproachingEvent creates a new DeadlineApproachingEvent
func NewDeadlineApproachingEvent(order *Order, now time.Time) *DeadlineApproachingEvent {
	return &DeadlineApproachingEvent{
		EventHeader:     shared.NewEventHeader(EventTypeDeadlineApproaching, AggregateTypeOrder, order.ID),
		OrderID:             order.ID,
		SupplierID:          order.SupplierID,
		ProducerID:          order.ProducerID,
		BuyerUserID:         order.BuyerUserID,
		InteractionDeadline: order.InteractionDeadline,
		TimeRemaining:       order.InteractionDeadline.Sub(now),
	}
}

// TransportScheduledEvent is raised when quantity is allocated to a shipment
type TransportScheduledEvent struct {
	shared.EventHeader
	TransportID   uuid.UUID       `json:"transport_id"`
	OrderID       uuid.UUID       `json:"order_id"`
	OrderItemID   uuid.UUID       `json:"order_item_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	FreightValue  decimal.Decimal `json:"freight_value"`
	ScheduledDate time.Time       `json:"scheduled_date"`
}

// NewTransportScheduledEvent creates a new TransportScheduledEvent
func NewTransportScheduledEvent(t *Transport) *TransportScheduledEvent {
	return &TransportScheduledEvent{
		EventHeader: shared.NewEventHeader(EventTypeTransportScheduled, AggregateTypeOrder, t.OrderID),
		TransportID:     t.ID,
		OrderID:         t.OrderID,
		OrderItemID:     t.OrderItemID,
		Quantity:        t.Quantity,
		FreightValue:    t.FreightValue,
		ScheduledDate:   t.ScheduledDate,
	}
}

// TransportCancelledEvent is raised when a shipment is removed and its quantity released.
// It carries the final observation trail since the transport row itself is deleted.
type TransportCancelledEvent struct {
	shared.EventHeader
	TransportID      uuid.UUID       `json:"transport_id"`
	OrderID          uuid.UUID       `json:"order_id"`
	OrderItemID      uuid.UUID       `json:"order_item_id"`
	ReleasedQuantity decimal.Decimal `json:"released_quantity"`
	Reason           string          `json:"reason,omitempty"`
	Observations     string          `json:"observations"`
}

// NewTransportCancelledEvent creates a new TransportCancelledEvent
func NewTransportCancelledEvent(t *Transport, reason string) *TransportCancelledEvent {
	return &TransportCancelledEvent{
		EventHeader:  shared.NewEventHeader(EventTypeTransportCancelled, AggregateTypeOrder, t.OrderID),
		TransportID:      t.ID,
		OrderID:          t.OrderID,
		OrderItemID:      t.OrderItemID,
		ReleasedQuantity: t.Quantity,
		Reason:           reason,
		Observations:     t.Observations,
	}
}
