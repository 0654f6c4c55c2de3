package ordering

import (
	"context"
	"errors"
	"time"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/agrolink/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// descriptiveDistanceKm fills weight and volume when no distance is given. It is never billed.
var descriptiveDistanceKm = decimal.NewFromInt(1)

// TransportConfig holds the freight tariff and scheduling horizon
type TransportConfig struct {
	Freight              ordering.FreightParams
	MaxScheduleDaysAhead int
}

// DefaultTransportConfig returns the default tariff and a 90 day horizon
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Freight:              ordering.DefaultFreightParams(),
		MaxScheduleDaysAhead: ordering.MaxScheduleDaysAhead,
	}
}

// TransportService allocates order item quantities to shipments.
// Allocation re-checks availability under a row lock on the item inside the insert transaction.
type TransportService struct {
	orderRepo       ordering.OrderRepository
	transportRepo   ordering.TransportRepository
	products        ordering.ProductDirectory
	txScope         TransactionScope
	calculator      ordering.FreightCalculator
	config          TransportConfig
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
	logger          *zap.Logger
	now             func() time.Time
}

// NewTransportService creates a new TransportService
func NewTransportService(
	orderRepo ordering.OrderRepository,
	transportRepo ordering.TransportRepository,
	products ordering.ProductDirectory,
	txScope TransactionScope,
	config TransportConfig,
	logger *zap.Logger,
) *TransportService {
	if config.MaxScheduleDaysAhead <= 0 {
		config.MaxScheduleDaysAhead = ordering.MaxScheduleDaysAhead
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransportService{
		orderRepo:     orderRepo,
		transportRepo: transportRepo,
		products:      products,
		txScope:       txScope,
		calculator:    ordering.NewFreightCalculator(),
		config:        config,
		logger:        logger,
		now:           time.Now,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *TransportService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics sets the business metrics collector
func (s *TransportService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// SetClock overrides the time source used for date validation and audit entries
func (s *TransportService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateSchedule allocates quantity of an order item to a new transport
func (s *TransportService) CreateSchedule(ctx context.Context, actor ordering.Actor, itemID uuid.UUID, req ScheduleTransportRequest) (_ *TransportRecord, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "transport", "create_schedule",
		telemetry.WithAttribute(telemetry.SpanAttrOrderItemID, itemID),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Quantity),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	item, order, err := s.loadItemWithOrder(ctx, "CreateSchedule", itemID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsCancelled() {
		return nil, shared.NewInvalidStateError("Cannot schedule transports for a cancelled order")
	}

	now := s.now()
	if err := s.checkRequest(item, req, now); err != nil {
		return nil, err
	}

	params, err := s.freightParams(ctx, item, req)
	if err != nil {
		return nil, boundaryError(s.logger, "CreateSchedule", err, zap.String("item_id", itemID.String()))
	}
	params.ScheduledBy = actorUserID(actor)

	transport, err := ordering.NewTransport(params)
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTransportID, transport.ID,
		telemetry.SpanAttrOrderID, order.ID,
		"freight_billed", transport.AuditInfo.Scheduling.FreightBilled,
	)

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		locked, err := repos.OrderRepo().LockItemForAllocation(ctx, itemID)
		if err != nil {
			return err
		}
		allocated, err := repos.TransportRepo().SumAllocatedQuantity(ctx, itemID)
		if err != nil {
			return err
		}
		available := decimal.Max(decimal.Zero, locked.Quantity.Sub(allocated))
		telemetry.AddEvent(span, "item_locked",
			"allocated", allocated,
			"available", available,
		)
		if req.Quantity.GreaterThan(available) {
			return shared.NewOverAllocationError(req.Quantity, available)
		}
		return repos.TransportRepo().Create(ctx, transport)
	})
	if err != nil {
		return nil, boundaryError(s.logger, "CreateSchedule", err,
			zap.String("item_id", itemID.String()),
			zap.String("quantity", req.Quantity.String()),
		)
	}

	s.publish(ctx, ordering.NewTransportScheduledEvent(transport))
	if s.businessMetrics != nil {
		s.businessMetrics.RecordTransportScheduled(ctx, transport.FreightValue, transport.AuditInfo.Scheduling.FreightBilled)
	}

	s.logger.Info("transport scheduled",
		zap.String("transport_id", transport.ID.String()),
		zap.String("item_id", itemID.String()),
		zap.String("quantity", transport.Quantity.String()),
		zap.String("freight_value", transport.FreightValue.String()),
	)

	response := ToTransportRecord(transport)
	return &response, nil
}

// Reschedule moves a transport to a new date
func (s *TransportService) Reschedule(ctx context.Context, actor ordering.Actor, transportID uuid.UUID, req RescheduleTransportRequest) (*TransportRecord, error) {
	return s.mutate(ctx, "Reschedule", transportID, func(t *ordering.Transport, now time.Time) error {
		return t.Reschedule(req.ScheduledDate, req.Notes, actorUserID(actor), now, s.config.MaxScheduleDaysAhead)
	})
}

// UpdateFreightValue overrides the billed freight of a transport
func (s *TransportService) UpdateFreightValue(ctx context.Context, actor ordering.Actor, transportID uuid.UUID, req UpdateFreightValueRequest) (*TransportRecord, error) {
	return s.mutate(ctx, "UpdateFreightValue", transportID, func(t *ordering.Transport, now time.Time) error {
		return t.UpdateFreightValue(req.FreightValue, req.Reason, actorUserID(actor), now)
	})
}

// CancelTransport appends the cancellation note and deletes the transport,
// returning its quantity to the item's available pool
func (s *TransportService) CancelTransport(ctx context.Context, actor ordering.Actor, transportID uuid.UUID, req CancelTransportRequest) (*TransportRecord, error) {
	var transport *ordering.Transport
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		transport, err = repos.TransportRepo().FindByID(ctx, transportID)
		if err != nil {
			return err
		}
		transport.MarkCancelled(req.Reason, actorUserID(actor), s.now())
		return repos.TransportRepo().Delete(ctx, transportID)
	})
	if err != nil {
		return nil, boundaryError(s.logger, "CancelTransport", err, zap.String("transport_id", transportID.String()))
	}

	s.publish(ctx, ordering.NewTransportCancelledEvent(transport, req.Reason))

	s.logger.Info("transport cancelled",
		zap.String("transport_id", transportID.String()),
		zap.String("released_quantity", transport.Quantity.String()),
	)

	response := ToTransportRecord(transport)
	return &response, nil
}

// ValidateBatch checks every entry independently and collects all errors instead of stopping at the first.
// Nothing is persisted.
func (s *TransportService) ValidateBatch(ctx context.Context, req ValidateBatchRequest) (*BatchValidationResult, error) {
	result := &BatchValidationResult{IsValid: true, Errors: make([]BatchValidationError, 0)}
	now := s.now()
	items := make(map[uuid.UUID]*ordering.OrderItem)

	for i, entry := range req.Items {
		item, ok := items[entry.OrderItemID]
		if !ok {
			loaded, err := s.orderRepo.FindItemByID(ctx, entry.OrderItemID)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return nil, boundaryError(s.logger, "ValidateBatch", err, zap.String("item_id", entry.OrderItemID.String()))
			}
			item = loaded
			items[entry.OrderItemID] = item
		}

		if item == nil {
			result.add(i, entry.OrderItemID, shared.NewNotFoundError("Order item", entry.OrderItemID))
			continue
		}
		for _, err := range s.requestErrors(item, entry.ScheduleTransportRequest, now) {
			result.add(i, entry.OrderItemID, err)
		}
	}

	return result, nil
}

func (r *BatchValidationResult) add(index int, itemID uuid.UUID, err error) {
	entry := BatchValidationError{Index: index, OrderItemID: itemID, Code: shared.CodeValidation, Message: err.Error()}
	var domainErr *shared.DomainError
	var overErr *shared.OverAllocationError
	switch {
	case errors.As(err, &overErr):
		entry.Code = shared.CodeOverAllocation
	case errors.As(err, &domainErr):
		entry.Code = domainErr.Code
	}
	r.IsValid = false
	r.Errors = append(r.Errors, entry)
}

// ComputeOrderTransportSummary aggregates item allocations, weights, volumes and freight of an order
func (s *TransportService) ComputeOrderTransportSummary(ctx context.Context, orderID uuid.UUID) (*OrderTransportSummary, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, boundaryError(s.logger, "ComputeOrderTransportSummary", err, zap.String("order_id", orderID.String()))
	}
	summary := summarizeTransports(order, s.now())
	return &summary, nil
}

func summarizeTransports(order *ordering.Order, now time.Time) OrderTransportSummary {
	summary := OrderTransportSummary{
		OrderID:           order.ID,
		ItemCount:         len(order.Items),
		AllocatedQuantity: decimal.Zero,
		TotalWeightKg:     decimal.Zero,
		TotalVolumeM3:     decimal.Zero,
		TotalFreight:      decimal.Zero,
		Items:             make([]ItemAllocation, 0, len(order.Items)),
	}

	for i := range order.Items {
		item := &order.Items[i]
		summary.Items = append(summary.Items, ItemAllocation{
			OrderItemID:       item.ID,
			ProductName:       item.ProductName,
			Quantity:          item.Quantity,
			AllocatedQuantity: item.AllocatedQuantity(),
			AvailableQuantity: item.AvailableQuantity(),
			TransportCount:    len(item.Transports),
		})

		for j := range item.Transports {
			t := &item.Transports[j]
			summary.TransportCount++
			summary.AllocatedQuantity = summary.AllocatedQuantity.Add(t.Quantity)
			summary.TotalWeightKg = summary.TotalWeightKg.Add(t.TotalWeightKg)
			summary.TotalVolumeM3 = summary.TotalVolumeM3.Add(t.TotalVolumeM3)
			summary.TotalFreight = summary.TotalFreight.Add(t.FreightValue)

			if t.ScheduledDate.After(now) && (summary.NextScheduledDate == nil || t.ScheduledDate.Before(*summary.NextScheduledDate)) {
				next := t.ScheduledDate
				summary.NextScheduledDate = &next
			}
		}
	}

	return summary
}

// CalculateFreight quotes the freight of one or more product lines without persisting anything.
// A single line gets its own floor; several lines share one floor.
func (s *TransportService) CalculateFreight(ctx context.Context, req FreightQuoteRequest) (*FreightQuote, error) {
	if len(req.Lines) == 0 {
		return nil, shared.NewValidationError("At least one freight line is required")
	}

	lines := make([]ordering.FreightLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		product, err := s.products.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, boundaryError(s.logger, "CalculateFreight", err, zap.String("product_id", line.ProductID.String()))
		}
		lines = append(lines, ordering.FreightLine{Profile: product.Shipping, Quantity: line.Quantity})
	}

	if len(lines) == 1 {
		result, err := s.calculator.CalculateFreight(lines[0].Profile, lines[0].Quantity, req.DistanceKm, s.config.Freight)
		if err != nil {
			return nil, err
		}
		return &FreightQuote{Single: &result}, nil
	}

	result, err := s.calculator.CalculateConsolidatedFreight(lines, req.DistanceKm, s.config.Freight)
	if err != nil {
		return nil, err
	}
	return &FreightQuote{Consolidated: &result}, nil
}

// checkRequest applies the availability check before the date check
func (s *TransportService) checkRequest(item *ordering.OrderItem, req ScheduleTransportRequest, now time.Time) error {
	if errs := s.requestErrors(item, req, now); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (s *TransportService) requestErrors(item *ordering.OrderItem, req ScheduleTransportRequest, now time.Time) []error {
	var errs []error
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, shared.NewValidationError("Transport quantity must be positive"))
	} else if !s.calculator.ValidateAvailableQuantity(item, req.Quantity) {
		errs = append(errs, shared.NewOverAllocationError(req.Quantity, s.calculator.AvailableQuantity(item)))
	}
	if err := ordering.ValidateScheduleDate(req.ScheduledDate, now, s.config.MaxScheduleDaysAhead); err != nil {
		errs = append(errs, err)
	}
	if req.DistanceKm.IsNegative() {
		errs = append(errs, shared.NewValidationError("Distance cannot be negative"))
	}
	return errs
}

// freightParams computes the billed freight when a distance is given; otherwise weight and volume
// are filled from a one kilometre calculation that is recorded as descriptive only
func (s *TransportService) freightParams(ctx context.Context, item *ordering.OrderItem, req ScheduleTransportRequest) (ordering.NewTransportParams, error) {
	params := ordering.NewTransportParams{
		OrderID:       item.OrderID,
		OrderItemID:   item.ID,
		Quantity:      req.Quantity,
		ScheduledDate: req.ScheduledDate,
		Origin:        req.Origin,
		Destination:   req.Destination,
		DistanceKm:    req.DistanceKm,
		Notes:         req.Notes,
	}

	product, err := s.products.GetProduct(ctx, item.ProductID)
	if err != nil {
		return params, err
	}

	if req.DistanceKm.GreaterThan(decimal.Zero) {
		result, err := s.calculator.CalculateFreight(product.Shipping, req.Quantity, req.DistanceKm, s.config.Freight)
		if err != nil {
			return params, err
		}
		params.Calculation = &result
		return params, nil
	}

	descriptive, err := s.calculator.CalculateFreight(product.Shipping, req.Quantity, descriptiveDistanceKm, s.config.Freight)
	if err != nil {
		return params, err
	}
	params.Descriptive = &descriptive
	params.DescriptiveDistanceKm = descriptiveDistanceKm
	return params, nil
}

func (s *TransportService) loadItemWithOrder(ctx context.Context, operation string, itemID uuid.UUID) (*ordering.OrderItem, *ordering.Order, error) {
	item, err := s.orderRepo.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, nil, boundaryError(s.logger, operation, err, zap.String("item_id", itemID.String()))
	}
	order, err := s.orderRepo.FindByID(ctx, item.OrderID)
	if err != nil {
		return nil, nil, boundaryError(s.logger, operation, err, zap.String("order_id", item.OrderID.String()))
	}
	return item, order, nil
}

// mutate loads a transport, applies fn and saves it with a version check in one transaction
func (s *TransportService) mutate(ctx context.Context, operation string, transportID uuid.UUID, fn func(t *ordering.Transport, now time.Time) error) (*TransportRecord, error) {
	var transport *ordering.Transport
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		transport, err = repos.TransportRepo().FindByID(ctx, transportID)
		if err != nil {
			return err
		}
		if err := fn(transport, s.now()); err != nil {
			return err
		}
		return repos.TransportRepo().SaveWithLock(ctx, transport)
	})
	if err != nil {
		return nil, boundaryError(s.logger, operation, err, zap.String("transport_id", transportID.String()))
	}

	response := ToTransportRecord(transport)
	return &response, nil
}

func (s *TransportService) publish(ctx context.Context, event shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish transport event",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	}
}

func actorUserID(actor ordering.Actor) uuid.UUID {
	if actor == nil {
		return uuid.Nil
	}
	return actor.UserID()
}
