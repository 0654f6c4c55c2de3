package ordering

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the master-data view of a product needed for pricing and freight
type Product struct {
	ID         uuid.UUID
	Name       string
	CategoryID uuid.UUID
	Active     bool
	Unit       string
	Shipping   ShippingProfile
}

// Producer is the master-data view of the buying producer
type Producer struct {
	ID             uuid.UUID
	Name           string
	Region         string
	PlantingAreaHa decimal.Decimal
}

// PriceQuery identifies a catalog price
type PriceQuery struct {
	CatalogID uuid.UUID
	ProductID uuid.UUID
	Date      time.Time
	Region    string
}

// DiscountQuery is the input of the segmented-discount resolver
type DiscountQuery struct {
	ProducerID     uuid.UUID
	SupplierID     uuid.UUID
	CategoryID     uuid.UUID
	PlantingAreaHa decimal.Decimal
	LineTotal      decimal.Decimal
}

// DiscountResult is the resolved segmented discount
type DiscountResult struct {
	Percentage     decimal.Decimal
	AppliedSegment string
	AppliedGroup   string
	Notes          string
}

// ProductDirectory looks up product master data.
// Returns a NOT_FOUND DomainError when the product does not exist.
type ProductDirectory interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*Product, error)
}

// ProducerDirectory looks up producer master data.
// Returns a NOT_FOUND DomainError when the producer does not exist.
type ProducerDirectory interface {
	GetProducer(ctx context.Context, producerID uuid.UUID) (*Producer, error)
}

// PriceCatalog returns the unit price of a product in a catalog.
// Returns a PRICE_NOT_FOUND DomainError when no price applies.
type PriceCatalog interface {
	LookupPrice(ctx context.Context, query PriceQuery) (decimal.Decimal, error)
}

// DiscountResolver resolves the segmented discount for a cart line
type DiscountResolver interface {
	Resolve(ctx context.Context, query DiscountQuery) (DiscountResult, error)
}

// Notification kinds
const (
	NotificationDeadlineWarning    = "DEADLINE_WARNING"
	NotificationNegotiationClosed  = "NEGOTIATION_CLOSED"
	NotificationNegotiationExpired = "NEGOTIATION_EXPIRED"
	NotificationOrderCancelled     = "ORDER_CANCELLED"
)

// Notification is a message handed to the delivery collaborator
type Notification struct {
	ID         uuid.UUID         `json:"id"`
	Kind       string            `json:"kind"`
	OrderID    uuid.UUID         `json:"order_id"`
	Recipients []uuid.UUID       `json:"recipients"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// NotificationDispatcher hands notifications to the delivery collaborator. Fire-and-forget.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, notification Notification) error
}
