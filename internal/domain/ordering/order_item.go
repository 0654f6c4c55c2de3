package ordering

import (
	"fmt"
	"time"

	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ItemAuxData holds pricing and discount metadata captured when the item was priced.
// Stored as a JSON document.
type ItemAuxData struct {
	CatalogID       uuid.UUID       `json:"catalog_id"`
	CategoryID      uuid.UUID       `json:"category_id"`
	Region          string          `json:"region,omitempty"`
	PricedAt        time.Time       `json:"priced_at"`
	LineTotal       decimal.Decimal `json:"line_total"`
	PlantingAreaHa  decimal.Decimal `json:"planting_area_ha"`
	DiscountSegment string          `json:"discount_segment,omitempty"`
	DiscountGroup   string          `json:"discount_group,omitempty"`
	DiscountNotes   string          `json:"discount_notes,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// OrderItem is a priced cart line owned by an Order
type OrderItem struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	ProductID       uuid.UUID
	ProductName     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	AuxData         ItemAuxData
	Transports      []Transport
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewOrderItem creates a new order item
func NewOrderItem(orderID, productID uuid.UUID, productName string, quantity, unitPrice, discountPercent decimal.Decimal, aux ItemAuxData) (*OrderItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("Product ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewValidationError("Unit price cannot be negative")
	}
	if err := validateDiscountPercent(discountPercent); err != nil {
		return nil, err
	}

	now := time.Now()
	return &OrderItem{
		ID:              uuid.New(),
		OrderID:         orderID,
		ProductID:       productID,
		ProductName:     productName,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		DiscountPercent: discountPercent,
		AuxData:         aux,
		Transports:      make([]Transport, 0),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func validateDiscountPercent(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return shared.NewValidationError(fmt.Sprintf("Discount percentage %s must be between 0 and 100", pct.String()))
	}
	return nil
}

// LineGross returns quantity x unit price
func (i *OrderItem) LineGross() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// DiscountAmount returns the discount applied to the line
func (i *OrderItem) DiscountAmount() decimal.Decimal {
	return i.LineGross().Mul(i.DiscountPercent).Div(hundred)
}

// FinalValue returns the discounted line value
func (i *OrderItem) FinalValue() decimal.Decimal {
	return i.LineGross().Sub(i.DiscountAmount())
}

// AllocatedQuantity returns the quantity committed to transports
func (i *OrderItem) AllocatedQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, t := range i.Transports {
		total = total.Add(t.Quantity)
	}
	return total
}

// AvailableQuantity returns the quantity not yet committed to any transport
func (i *OrderItem) AvailableQuantity() decimal.Decimal {
	return decimal.Max(decimal.Zero, i.Quantity.Sub(i.AllocatedQuantity()))
}

// reprice updates quantity and discount after a cart change
func (i *OrderItem) reprice(quantity, discountPercent decimal.Decimal, discount DiscountResult, lineTotal decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("Quantity must be positive")
	}
	if allocated := i.AllocatedQuantity(); quantity.LessThan(allocated) {
		return shared.NewValidationError(fmt.Sprintf("Quantity cannot be lower than the %s already allocated to transports", allocated.String()))
	}
	if err := validateDiscountPercent(discountPercent); err != nil {
		return err
	}

	i.Quantity = quantity
	i.DiscountPercent = discountPercent
	i.AuxData.LineTotal = lineTotal
	i.AuxData.DiscountSegment = discount.AppliedSegment
	i.AuxData.DiscountGroup = discount.AppliedGroup
	i.AuxData.DiscountNotes = discount.Notes
	i.UpdatedAt = time.Now()
	return nil
}
