package handler

import (
	"context"

	orderingapp "github.com/agrolink/backend/internal/application/ordering"
	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransportService is the logistics surface used by TransportHandler
type TransportService interface {
	CreateSchedule(ctx context.Context, actor ordering.Actor, itemID uuid.UUID, req orderingapp.ScheduleTransportRequest) (*orderingapp.TransportRecord, error)
	Reschedule(ctx context.Context, actor ordering.Actor, transportID uuid.UUID, req orderingapp.RescheduleTransportRequest) (*orderingapp.TransportRecord, error)
	UpdateFreightValue(ctx context.Context, actor ordering.Actor, transportID uuid.UUID, req orderingapp.UpdateFreightValueRequest) (*orderingapp.TransportRecord, error)
	CancelTransport(ctx context.Context, actor ordering.Actor, transportID uuid.UUID, req orderingapp.CancelTransportRequest) (*orderingapp.TransportRecord, error)
	ValidateBatch(ctx context.Context, req orderingapp.ValidateBatchRequest) (*orderingapp.BatchValidationResult, error)
	ComputeOrderTransportSummary(ctx context.Context, orderID uuid.UUID) (*orderingapp.OrderTransportSummary, error)
	CalculateFreight(ctx context.Context, req orderingapp.FreightQuoteRequest) (*orderingapp.FreightQuote, error)
}

// TransportHandler handles transport scheduling for closed orders
type TransportHandler struct {
	BaseHandler
	transportService TransportService
}

// NewTransportHandler creates a new TransportHandler
func NewTransportHandler(transportService TransportService) *TransportHandler {
	return &TransportHandler{
		transportService: transportService,
	}
}

// CreateSchedule allocates part of an order item to a new transport.
//
//	POST /api/v1/order-items/:item_id/transports
func (h *TransportHandler) CreateSchedule(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.ActorRequired(c)
		return
	}

	itemID, err := parseUUIDParam(c, "item_id")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req orderingapp.ScheduleTransportRequest
	if !h.BindJSON(c, &req) {
		return
	}

	transport, err := h.transportService.CreateSchedule(c.Request.Context(), actor, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, transport)
}

// ValidateBatch checks a set of schedules against remaining item quantities without writing.
//
//	POST /api/v1/transports/validate
func (h *TransportHandler) ValidateBatch(c *gin.Context) {
	var req orderingapp.ValidateBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.transportService.ValidateBatch(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Reschedule moves a transport to another date.
//
//	PUT /api/v1/transports/:id/schedule
func (h *TransportHandler) Reschedule(c *gin.Context) {
	actor, transportID, ok := h.actorAndTransportID(c)
	if !ok {
		return
	}

	var req orderingapp.RescheduleTransportRequest
	if !h.BindJSON(c, &req) {
		return
	}

	transport, err := h.transportService.Reschedule(c.Request.Context(), actor, transportID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, transport)
}

// UpdateFreight overrides the freight value of a transport.
//
//	PUT /api/v1/transports/:id/freight
func (h *TransportHandler) UpdateFreight(c *gin.Context) {
	actor, transportID, ok := h.actorAndTransportID(c)
	if !ok {
		return
	}

	var req orderingapp.UpdateFreightValueRequest
	if !h.BindJSON(c, &req) {
		return
	}

	transport, err := h.transportService.UpdateFreightValue(c.Request.Context(), actor, transportID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, transport)
}

// Cancel releases the quantity held by a transport.
//
//	DELETE /api/v1/transports/:id
func (h *TransportHandler) Cancel(c *gin.Context) {
	actor, transportID, ok := h.actorAndTransportID(c)
	if !ok {
		return
	}

	var req orderingapp.CancelTransportRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = c.Query("reason")
	}

	transport, err := h.transportService.CancelTransport(c.Request.Context(), actor, transportID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, transport)
}

// OrderSummary aggregates allocation, weight and freight across an order's transports.
//
//	GET /api/v1/orders/:id/transport-summary
func (h *TransportHandler) OrderSummary(c *gin.Context) {
	orderID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	summary, err := h.transportService.ComputeOrderTransportSummary(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// QuoteFreight prices a shipment without scheduling it.
//
//	POST /api/v1/freight/quote
func (h *TransportHandler) QuoteFreight(c *gin.Context) {
	var req orderingapp.FreightQuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	quote, err := h.transportService.CalculateFreight(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, quote)
}

func (h *TransportHandler) actorAndTransportID(c *gin.Context) (ordering.Actor, uuid.UUID, bool) {
	actor, err := getActor(c)
	if err != nil {
		h.ActorRequired(c)
		return nil, uuid.Nil, false
	}
	transportID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid transport ID format")
		return nil, uuid.Nil, false
	}
	return actor, transportID, true
}
