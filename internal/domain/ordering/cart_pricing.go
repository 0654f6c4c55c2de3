package ordering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddItemInput describes a product added to the cart
type AddItemInput struct {
	ProductID uuid.UUID
	CatalogID uuid.UUID
	Quantity  decimal.Decimal
	Notes     string
	Actor     Actor
}

// CartPricingEngine prices and discounts cart lines and keeps the order totals current.
// It does not check the negotiation deadline; callers must do so before any mutation.
type CartPricingEngine struct {
	products  ProductDirectory
	producers ProducerDirectory
	prices    PriceCatalog
	discounts DiscountResolver
	now       func() time.Time
}

// NewCartPricingEngine creates a new CartPricingEngine
func NewCartPricingEngine(products ProductDirectory, producers ProducerDirectory, prices PriceCatalog, discounts DiscountResolver) *CartPricingEngine {
	return &CartPricingEngine{
		products:  products,
		producers: producers,
		prices:    prices,
		discounts: discounts,
		now:       time.Now,
	}
}

// WithClock overrides the pricing date source
func (e *CartPricingEngine) WithClock(now func() time.Time) *CartPricingEngine {
	e.now = now
	return e
}

// AddItem prices a product and adds it to the order. Nothing is added when any lookup fails.
func (e *CartPricingEngine) AddItem(ctx context.Context, order *Order, in AddItemInput) (*OrderItem, error) {
	if err := order.EnsureModifiable(); err != nil {
		return nil, err
	}
	if in.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Quantity must be positive")
	}

	product, err := e.getProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, shared.NewValidationError(fmt.Sprintf("Product %s is not active", product.Name))
	}
	producer, err := e.getProducer(ctx, order.ProducerID)
	if err != nil {
		return nil, err
	}

	pricedAt := e.now()
	price, err := e.prices.LookupPrice(ctx, PriceQuery{
		CatalogID: in.CatalogID,
		ProductID: product.ID,
		Date:      pricedAt,
		Region:    producer.Region,
	})
	if err != nil {
		return nil, priceLookupError(err, product)
	}

	lineTotal := price.Mul(in.Quantity)
	discount, err := e.resolveDiscount(ctx, order, product, producer, lineTotal)
	if err != nil {
		return nil, err
	}

	item, err := NewOrderItem(order.ID, product.ID, product.Name, in.Quantity, price, discount.Percentage, ItemAuxData{
		CatalogID:       in.CatalogID,
		CategoryID:      product.CategoryID,
		Region:          producer.Region,
		PricedAt:        pricedAt,
		LineTotal:       lineTotal,
		PlantingAreaHa:  producer.PlantingAreaHa,
		DiscountSegment: discount.AppliedSegment,
		DiscountGroup:   discount.AppliedGroup,
		DiscountNotes:   discount.Notes,
		Notes:           in.Notes,
	})
	if err != nil {
		return nil, err
	}
	if err := order.AddItem(item); err != nil {
		return nil, err
	}

	if order.IsInNegotiation() {
		order.RecordProposal(ProposalActionCartChanged, actorOrSystem(in.Actor),
			fmt.Sprintf("Added %s x %s", in.Quantity.String(), product.Name))
	}
	order.UpdateTotals(e.CalculateTotals(order))

	return order.GetItem(item.ID), nil
}

// UpdateItemQuantity changes a line quantity and re-resolves its discount against the new line total
func (e *CartPricingEngine) UpdateItemQuantity(ctx context.Context, order *Order, itemID uuid.UUID, newQuantity decimal.Decimal, actor Actor) (*OrderItem, error) {
	if err := order.EnsureModifiable(); err != nil {
		return nil, err
	}
	if newQuantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Quantity must be positive")
	}
	item := order.GetItem(itemID)
	if item == nil {
		return nil, shared.NewNotFoundError("Order item", itemID)
	}
	previous := item.Quantity

	product, err := e.getProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	producer, err := e.getProducer(ctx, order.ProducerID)
	if err != nil {
		return nil, err
	}

	lineTotal := item.UnitPrice.Mul(newQuantity)
	discount, err := e.resolveDiscount(ctx, order, product, producer, lineTotal)
	if err != nil {
		return nil, err
	}

	updated, err := order.UpdateItemPricing(itemID, newQuantity, discount.Percentage, discount)
	if err != nil {
		return nil, err
	}

	if order.IsInNegotiation() {
		order.RecordProposal(ProposalActionCartChanged, actorOrSystem(actor),
			fmt.Sprintf("Changed %s quantity from %s to %s", product.Name, previous.String(), newQuantity.String()))
	}
	order.UpdateTotals(e.CalculateTotals(order))

	return updated, nil
}

// RemoveItem removes a line from the cart
func (e *CartPricingEngine) RemoveItem(_ context.Context, order *Order, itemID uuid.UUID, actor Actor) error {
	removed, err := order.RemoveItem(itemID)
	if err != nil {
		return err
	}

	if order.IsInNegotiation() {
		order.RecordProposal(ProposalActionCartChanged, actorOrSystem(actor),
			fmt.Sprintf("Removed %s", removed.ProductName))
	}
	order.UpdateTotals(e.CalculateTotals(order))

	return nil
}

// CalculateTotals returns the totals of the order's current items
func (e *CartPricingEngine) CalculateTotals(order *Order) TotalsSnapshot {
	return CalculateTotals(order.Items)
}

func (e *CartPricingEngine) getProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	product, err := e.products.GetProduct(ctx, id)
	if err != nil {
		return nil, lookupError("product catalog", err)
	}
	if product == nil {
		return nil, shared.NewNotFoundError("Product", id)
	}
	return product, nil
}

func (e *CartPricingEngine) getProducer(ctx context.Context, id uuid.UUID) (*Producer, error) {
	producer, err := e.producers.GetProducer(ctx, id)
	if err != nil {
		return nil, lookupError("producer directory", err)
	}
	if producer == nil {
		return nil, shared.NewNotFoundError("Producer", id)
	}
	return producer, nil
}

// resolveDiscount never falls back to a zero discount: every failure is an EXTERNAL_DEPENDENCY error
func (e *CartPricingEngine) resolveDiscount(ctx context.Context, order *Order, product *Product, producer *Producer, lineTotal decimal.Decimal) (DiscountResult, error) {
	discount, err := e.discounts.Resolve(ctx, DiscountQuery{
		ProducerID:     producer.ID,
		SupplierID:     order.SupplierID,
		CategoryID:     product.CategoryID,
		PlantingAreaHa: producer.PlantingAreaHa,
		LineTotal:      lineTotal,
	})
	if err != nil {
		if isContextError(err) || errors.Is(err, shared.ErrExternalDependency) {
			return DiscountResult{}, err
		}
		return DiscountResult{}, shared.NewExternalDependencyError("discount service", err)
	}
	if validateDiscountPercent(discount.Percentage) != nil {
		return DiscountResult{}, shared.NewExternalDependencyError("discount service",
			fmt.Errorf("percentage %s out of range", discount.Percentage.String()))
	}
	return discount, nil
}

// lookupError keeps business errors from a directory and wraps everything else
func lookupError(dependency string, err error) error {
	if isContextError(err) || shared.IsBusinessError(err) {
		return err
	}
	return shared.NewExternalDependencyError(dependency, err)
}

func priceLookupError(err error, product *Product) error {
	if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrPriceNotFound) {
		return shared.NewDomainError(shared.CodePriceNotFound, fmt.Sprintf("No catalog price found for product %s", product.Name))
	}
	return lookupError("price catalog", err)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func actorOrSystem(actor Actor) Actor {
	if actor == nil {
		return System{}
	}
	return actor
}
