package ordering

import (
	"context"
	"time"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/agrolink/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService applies cart mutations to orders under negotiation.
// Pricing lookups run before the transaction; the order and its proposal rows are saved together.
type CartService struct {
	orderRepo       ordering.OrderRepository
	txScope         TransactionScope
	engine          *ordering.CartPricingEngine
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
	logger          *zap.Logger
	now             func() time.Time
}

// NewCartService creates a new CartService
func NewCartService(
	orderRepo ordering.OrderRepository,
	txScope TransactionScope,
	engine *ordering.CartPricingEngine,
	logger *zap.Logger,
) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{
		orderRepo: orderRepo,
		txScope:   txScope,
		engine:    engine,
		logger:    logger,
		now:       time.Now,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *CartService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics sets the business metrics collector
func (s *CartService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// SetClock overrides the time source used for the deadline check
func (s *CartService) SetClock(now func() time.Time) {
	s.now = now
}

// AddItem prices a product and adds it to the cart
func (s *CartService) AddItem(ctx context.Context, actor ordering.Actor, orderID uuid.UUID, req AddItemRequest) (_ *OrderSummary, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cart", "add_item",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID),
		telemetry.WithAttribute("product_id", req.ProductID),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Quantity),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	order, err := s.loadModifiable(ctx, "AddItem", orderID)
	if err != nil {
		return nil, err
	}

	if _, err := s.engine.AddItem(ctx, order, ordering.AddItemInput{
		ProductID: req.ProductID,
		CatalogID: req.CatalogID,
		Quantity:  req.Quantity,
		Notes:     req.Notes,
		Actor:     actor,
	}); err != nil {
		return nil, boundaryError(s.logger, "AddItem", err,
			zap.String("order_id", orderID.String()),
			zap.String("product_id", req.ProductID.String()),
		)
	}

	return s.save(ctx, "AddItem", order)
}

// UpdateItemQuantity changes a line quantity and re-resolves its discount
func (s *CartService) UpdateItemQuantity(ctx context.Context, actor ordering.Actor, orderID, itemID uuid.UUID, quantity decimal.Decimal) (*OrderSummary, error) {
	order, err := s.loadModifiable(ctx, "UpdateItemQuantity", orderID)
	if err != nil {
		return nil, err
	}

	if _, err := s.engine.UpdateItemQuantity(ctx, order, itemID, quantity, actor); err != nil {
		return nil, boundaryError(s.logger, "UpdateItemQuantity", err,
			zap.String("order_id", orderID.String()),
			zap.String("item_id", itemID.String()),
		)
	}

	return s.save(ctx, "UpdateItemQuantity", order)
}

// RemoveItem removes a line from the cart. Its transports are deleted with it.
func (s *CartService) RemoveItem(ctx context.Context, actor ordering.Actor, orderID, itemID uuid.UUID) (*OrderSummary, error) {
	order, err := s.loadModifiable(ctx, "RemoveItem", orderID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.RemoveItem(ctx, order, itemID, actor); err != nil {
		return nil, boundaryError(s.logger, "RemoveItem", err,
			zap.String("order_id", orderID.String()),
			zap.String("item_id", itemID.String()),
		)
	}

	return s.save(ctx, "RemoveItem", order)
}

// loadModifiable loads the order and rejects cart changes once the deadline has passed
func (s *CartService) loadModifiable(ctx context.Context, operation string, orderID uuid.UUID) (*ordering.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, boundaryError(s.logger, operation, err, zap.String("order_id", orderID.String()))
	}
	if err := order.EnsureModifiable(); err != nil {
		return nil, err
	}
	if !order.IsWithinDeadlineAt(s.now()) {
		return nil, shared.NewInvalidStateError("The negotiation deadline has passed")
	}
	return order, nil
}

func (s *CartService) save(ctx context.Context, operation string, order *ordering.Order) (*OrderSummary, error) {
	appended, err := saveOrderWithProposals(ctx, s.txScope, order)
	if err != nil {
		return nil, boundaryError(s.logger, operation, err, zap.String("order_id", order.ID.String()))
	}

	recordProposals(ctx, s.businessMetrics, appended)
	publishEvents(ctx, s.eventPublisher, s.logger, order)

	response := ToOrderSummary(order)
	return &response, nil
}

// saveOrderWithProposals saves the order with a version check and appends its pending proposals
// in one transaction. Returns the proposals that were written.
func saveOrderWithProposals(ctx context.Context, txScope TransactionScope, order *ordering.Order) ([]ordering.Proposal, error) {
	pending := order.PendingProposals()
	err := txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.OrderRepo().SaveWithLock(ctx, order); err != nil {
			return err
		}
		return repos.ProposalRepo().Append(ctx, pending...)
	})
	if err != nil {
		return nil, err
	}
	order.ClearPendingProposals()
	return pending, nil
}

func recordProposals(ctx context.Context, bm *telemetry.BusinessMetrics, proposals []ordering.Proposal) {
	if bm == nil {
		return
	}
	for _, p := range proposals {
		bm.RecordProposal(ctx, string(p.Action), string(p.ActorRole))
	}
}
