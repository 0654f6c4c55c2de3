package handler

import (
	"context"

	orderingapp "github.com/agrolink/backend/internal/application/ordering"
	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NegotiationService records proposal actions
type NegotiationService interface {
	RecordAction(ctx context.Context, actor ordering.Actor, orderID uuid.UUID, req orderingapp.SubmitProposalRequest) (*orderingapp.NegotiationResult, error)
}

// NegotiationHandler handles proposal submissions
type NegotiationHandler struct {
	BaseHandler
	negotiationService NegotiationService
}

// NewNegotiationHandler creates a new NegotiationHandler
func NewNegotiationHandler(negotiationService NegotiationService) *NegotiationHandler {
	return &NegotiationHandler{
		negotiationService: negotiationService,
	}
}

// SubmitProposal records a STARTED, ACCEPTED or CANCELLED action on an order.
// An empty action lets the order derive it from the actor and its last proposal.
//
//	POST /api/v1/orders/:id/proposals
func (h *NegotiationHandler) SubmitProposal(c *gin.Context) {
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

	var req orderingapp.SubmitProposalRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	result, err := h.negotiationService.RecordAction(c.Request.Context(), actor, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.ProposalAppended {
		h.Created(c, result)
		return
	}
	h.Success(c, result)
}
