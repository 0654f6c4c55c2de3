package handler

import (
	"context"

	orderingapp "github.com/agrolink/backend/internal/application/ordering"
	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Default page size for order listings
const defaultOrderPageSize = 20

// OrderService is the order use-case surface used by OrderHandler
type OrderService interface {
	Create(ctx context.Context, actor ordering.Actor, req orderingapp.CreateOrderRequest) (*orderingapp.OrderSummary, error)
	GetByID(ctx context.Context, orderID uuid.UUID) (*orderingapp.OrderSummary, error)
	List(ctx context.Context, filter orderingapp.OrderListFilter) ([]orderingapp.OrderSummary, int64, error)
	ListProposals(ctx context.Context, orderID uuid.UUID) ([]orderingapp.ProposalRecord, error)
	GetTotals(ctx context.Context, orderID uuid.UUID) (*orderingapp.TotalsResponse, error)
	ExtendDeadline(ctx context.Context, actor ordering.Actor, orderID uuid.UUID, req orderingapp.ExtendDeadlineRequest) (*orderingapp.OrderSummary, error)
}

// OrderHandler handles order lifecycle endpoints
type OrderHandler struct {
	BaseHandler
	orderService OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// Create opens a negotiation between a supplier and a producer.
//
//	POST /api/v1/orders
func (h *OrderHandler) Create(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.ActorRequired(c)
		return
	}

	var req orderingapp.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, order)
}

// GetByID returns an order with its items and totals.
//
//	GET /api/v1/orders/:id
func (h *OrderHandler) GetByID(c *gin.Context) {
	orderID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// ListOrdersQuery holds the query parameters of the order listing
type ListOrdersQuery struct {
	SupplierID string `form:"supplier_id"`
	ProducerID string `form:"producer_id"`
	Status     string `form:"status" binding:"omitempty,oneof=IN_NEGOTIATION CLOSED CANCELLED_BY_BUYER CANCELLED_BY_DEADLINE"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=created_at updated_at interaction_deadline status"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// List returns orders filtered by supplier, producer or status.
//
//	GET /api/v1/orders?supplier_id=&producer_id=&status=&page=&page_size=
func (h *OrderHandler) List(c *gin.Context) {
	var query ListOrdersQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter := orderingapp.OrderListFilter{
		Status:   query.Status,
		Page:     query.Page,
		PageSize: query.PageSize,
		OrderBy:  query.OrderBy,
		OrderDir: query.OrderDir,
	}
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PageSize == 0 {
		filter.PageSize = defaultOrderPageSize
	}

	if query.SupplierID != "" {
		supplierID, err := uuid.Parse(query.SupplierID)
		if err != nil {
			h.BadRequest(c, "Invalid supplier_id format")
			return
		}
		filter.SupplierID = &supplierID
	}
	if query.ProducerID != "" {
		producerID, err := uuid.Parse(query.ProducerID)
		if err != nil {
			h.BadRequest(c, "Invalid producer_id format")
			return
		}
		filter.ProducerID = &producerID
	}

	orders, total, err := h.orderService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// GetTotals returns the gross, discount and net values of an order.
//
//	GET /api/v1/orders/:id/totals
func (h *OrderHandler) GetTotals(c *gin.Context) {
	orderID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	totals, err := h.orderService.GetTotals(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, totals)
}

// ListProposals returns the negotiation history of an order, oldest first.
//
//	GET /api/v1/orders/:id/proposals
func (h *OrderHandler) ListProposals(c *gin.Context) {
	orderID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	proposals, err := h.orderService.ListProposals(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, proposals)
}

// ExtendDeadline moves the interaction deadline of an open negotiation.
//
//	POST /api/v1/orders/:id/deadline/extend
func (h *OrderHandler) ExtendDeadline(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.ActorRequired(c)
		return
	}

	orderID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var req orderingapp.ExtendDeadlineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orderService.ExtendDeadline(c.Request.Context(), actor, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}
