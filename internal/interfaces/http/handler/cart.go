package handler

import (
	"context"

	orderingapp "github.com/agrolink/backend/internal/application/ordering"
	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartService is the item mutation surface used by CartHandler
type CartService interface {
	AddItem(ctx context.Context, actor ordering.Actor, orderID uuid.UUID, req orderingapp.AddItemRequest) (*orderingapp.OrderSummary, error)
	UpdateItemQuantity(ctx context.Context, actor ordering.Actor, orderID, itemID uuid.UUID, quantity decimal.Decimal) (*orderingapp.OrderSummary, error)
	RemoveItem(ctx context.Context, actor ordering.Actor, orderID, itemID uuid.UUID) (*orderingapp.OrderSummary, error)
}

// CartHandler handles the items of an order under negotiation
type CartHandler struct {
	BaseHandler
	cartService CartService
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

// AddItem prices a product from its catalog and adds it to the order.
//
//	POST /api/v1/orders/:id/items
func (h *CartHandler) AddItem(c *gin.Context) {
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

	var req orderingapp.AddItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.cartService.AddItem(c.Request.Context(), actor, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, order)
}

// UpdateItem changes the quantity of an item and reprices it.
//
//	PUT /api/v1/orders/:id/items/:item_id
func (h *CartHandler) UpdateItem(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.ActorRequired(c)
		return
	}

	orderID, itemID, ok := h.orderAndItemIDs(c)
	if !ok {
		return
	}

	var req orderingapp.UpdateItemQuantityRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.cartService.UpdateItemQuantity(c.Request.Context(), actor, orderID, itemID, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// RemoveItem drops an item from the order.
//
//	DELETE /api/v1/orders/:id/items/:item_id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.ActorRequired(c)
		return
	}

	orderID, itemID, ok := h.orderAndItemIDs(c)
	if !ok {
		return
	}

	order, err := h.cartService.RemoveItem(c.Request.Context(), actor, orderID, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

func (h *CartHandler) orderAndItemIDs(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	orderID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return uuid.Nil, uuid.Nil, false
	}
	itemID, err := parseUUIDParam(c, "item_id")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return uuid.Nil, uuid.Nil, false
	}
	return orderID, itemID, true
}
