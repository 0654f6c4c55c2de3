package router

import (
	"github.com/agrolink/backend/internal/interfaces/http/handler"
	"github.com/agrolink/backend/internal/interfaces/http/middleware"
)

// OrderingHandlers bundles the handlers served under the versioned API
type OrderingHandlers struct {
	Order       *handler.OrderHandler
	Cart        *handler.CartHandler
	Negotiation *handler.NegotiationHandler
	Transport   *handler.TransportHandler
	System      *handler.SystemHandler
}

// NewOrderingRoutes builds the route groups of the negotiation and fulfillment API.
// Reads and dry-run computations are open; every mutation requires actor headers.
func NewOrderingRoutes(h OrderingHandlers) []*DomainGroup {
	actor := middleware.RequireActor()

	orders := NewDomainGroup("orders", "/orders")
	orders.
		POST("", actor, h.Order.Create).
		GET("", h.Order.List).
		GET("/:id", h.Order.GetByID).
		GET("/:id/totals", h.Order.GetTotals).
		GET("/:id/proposals", h.Order.ListProposals).
		POST("/:id/proposals", actor, h.Negotiation.SubmitProposal).
		POST("/:id/deadline/extend", actor, h.Order.ExtendDeadline).
		GET("/:id/transport-summary", h.Transport.OrderSummary)

	orders.Group("items", "/:id/items").
		POST("", actor, h.Cart.AddItem).
		PUT("/:item_id", actor, h.Cart.UpdateItem).
		DELETE("/:item_id", actor, h.Cart.RemoveItem)

	orderItems := NewDomainGroup("order-items", "/order-items")
	orderItems.POST("/:item_id/transports", actor, h.Transport.CreateSchedule)

	transports := NewDomainGroup("transports", "/transports")
	transports.
		POST("/validate", h.Transport.ValidateBatch).
		PUT("/:id/schedule", actor, h.Transport.Reschedule).
		PUT("/:id/freight", actor, h.Transport.UpdateFreight).
		DELETE("/:id", actor, h.Transport.Cancel)

	freight := NewDomainGroup("freight", "/freight")
	freight.POST("/quote", h.Transport.QuoteFreight)

	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.GetSystemInfo)

	return []*DomainGroup{orders, orderItems, transports, freight, system}
}

// RegisterOrdering registers the ordering route groups on r
func (r *Router) RegisterOrdering(h OrderingHandlers) *Router {
	for _, group := range NewOrderingRoutes(h) {
		r.Register(group)
	}
	return r
}
