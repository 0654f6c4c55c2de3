package ordering

import (
	"context"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/agrolink/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService handles order creation and read operations
type OrderService struct {
	orderRepo           ordering.OrderRepository
	proposalRepo        ordering.ProposalRepository
	eventPublisher      shared.EventPublisher
	businessMetrics     *telemetry.BusinessMetrics
	logger              *zap.Logger
	defaultDeadlineDays int
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo ordering.OrderRepository,
	proposalRepo ordering.ProposalRepository,
	defaultDeadlineDays int,
	logger *zap.Logger,
) *OrderService {
	if defaultDeadlineDays <= 0 {
		defaultDeadlineDays = ordering.DefaultDeadlineDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orderRepo:           orderRepo,
		proposalRepo:        proposalRepo,
		logger:              logger,
		defaultDeadlineDays: defaultDeadlineDays,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics sets the business metrics collector
func (s *OrderService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// Create opens a new negotiation. Only the buyer can open one.
func (s *OrderService) Create(ctx context.Context, actor ordering.Actor, req CreateOrderRequest) (*OrderSummary, error) {
	buyer, ok := actor.(ordering.Buyer)
	if !ok {
		return nil, shared.NewValidationError("Only a buyer can open a negotiation")
	}

	days := req.DeadlineDays
	if days <= 0 {
		days = s.defaultDeadlineDays
	}

	order, err := ordering.NewOrder(req.SupplierID, req.ProducerID, buyer.ID, days)
	if err != nil {
		return nil, err
	}
	negotiable := true
	if req.Negotiable != nil {
		negotiable = *req.Negotiable
	}
	order.SetContactPreferences(req.AllowContact, negotiable)

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, boundaryError(s.logger, "CreateOrder", err,
			zap.String("supplier_id", req.SupplierID.String()),
			zap.String("producer_id", req.ProducerID.String()),
		)
	}

	publishEvents(ctx, s.eventPublisher, s.logger, order)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordOrderCreated(ctx)
	}

	s.logger.Info("negotiation opened",
		zap.String("order_id", order.ID.String()),
		zap.String("supplier_id", order.SupplierID.String()),
		zap.Time("interaction_deadline", order.InteractionDeadline),
	)

	response := ToOrderSummary(order)
	return &response, nil
}

// GetByID retrieves an order with its items
func (s *OrderService) GetByID(ctx context.Context, orderID uuid.UUID) (*OrderSummary, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, boundaryError(s.logger, "GetOrder", err, zap.String("order_id", orderID.String()))
	}
	response := ToOrderSummary(order)
	return &response, nil
}

// List retrieves orders with filtering and pagination
func (s *OrderService) List(ctx context.Context, filter OrderListFilter) ([]OrderSummary, int64, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}

	if filter.SupplierID != nil {
		domainFilter.Where("supplier_id", *filter.SupplierID)
	}
	if filter.ProducerID != nil {
		domainFilter.Where("producer_id", *filter.ProducerID)
	}
	if filter.Status != "" {
		domainFilter.Where("status", filter.Status)
	}

	orders, total, err := s.orderRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, boundaryError(s.logger, "ListOrders", err)
	}

	return ToOrderSummaries(orders), total, nil
}

// ListBySupplier retrieves the orders of a supplier
func (s *OrderService) ListBySupplier(ctx context.Context, supplierID uuid.UUID, filter OrderListFilter) ([]OrderSummary, int64, error) {
	filter.SupplierID = &supplierID
	return s.List(ctx, filter)
}

// ListByProducer retrieves the orders of a producer
func (s *OrderService) ListByProducer(ctx context.Context, producerID uuid.UUID, filter OrderListFilter) ([]OrderSummary, int64, error) {
	filter.ProducerID = &producerID
	return s.List(ctx, filter)
}

// ListProposals returns the negotiation history of an order, oldest first
func (s *OrderService) ListProposals(ctx context.Context, orderID uuid.UUID) ([]ProposalRecord, error) {
	if _, err := s.orderRepo.FindByID(ctx, orderID); err != nil {
		return nil, boundaryError(s.logger, "ListProposals", err, zap.String("order_id", orderID.String()))
	}

	proposals, err := s.proposalRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, boundaryError(s.logger, "ListProposals", err, zap.String("order_id", orderID.String()))
	}
	return ToProposalRecords(proposals), nil
}

// GetTotals recomputes the totals of an order from its current items
func (s *OrderService) GetTotals(ctx context.Context, orderID uuid.UUID) (*TotalsResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, boundaryError(s.logger, "GetTotals", err, zap.String("order_id", orderID.String()))
	}
	response := ToTotalsResponse(ordering.CalculateTotals(order.Items))
	return &response, nil
}

// ExtendDeadline resets the interaction deadline of an open negotiation
func (s *OrderService) ExtendDeadline(ctx context.Context, actor ordering.Actor, orderID uuid.UUID, req ExtendDeadlineRequest) (*OrderSummary, error) {
	if _, ok := actor.(ordering.System); ok || actor == nil {
		return nil, shared.NewValidationError("Only a negotiating party can extend the deadline")
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, boundaryError(s.logger, "ExtendDeadline", err, zap.String("order_id", orderID.String()))
	}

	if err := order.ExtendDeadline(req.Days); err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, boundaryError(s.logger, "ExtendDeadline", err, zap.String("order_id", orderID.String()))
	}

	publishEvents(ctx, s.eventPublisher, s.logger, order)

	response := ToOrderSummary(order)
	return &response, nil
}
