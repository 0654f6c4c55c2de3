package handler

import (
	"net/http"
	"testing"

	orderingapp "github.com/agrolink/backend/internal/application/ordering"
	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/agrolink/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newNegotiationTestRouter(svc NegotiationService) *gin.Engine {
	h := NewNegotiationHandler(svc)
	r := newTestEngine()
	r.POST("/orders/:id/proposals", h.SubmitProposal)
	return r
}

func TestNegotiationHandler_SubmitProposal(t *testing.T) {
	orderID := uuid.New()
	path := "/orders/" + orderID.String() + "/proposals"

	t.Run("buyer accepts", func(t *testing.T) {
		svc := new(MockNegotiationService)
		r := newNegotiationTestRouter(svc)

		order := sampleOrderSummary(orderID)
		order.Status = string(ordering.OrderStatusClosed)
		svc.On("RecordAction", mock.Anything, ordering.Buyer{ID: testBuyerUserID}, orderID,
			orderingapp.SubmitProposalRequest{Action: "ACCEPTED", Note: "deal"}).
			Return(&orderingapp.NegotiationResult{
				RecordedAction:   "ACCEPTED",
				ProposalAppended: true,
				PreviousStatus:   string(ordering.OrderStatusInNegotiation),
				Order:            *order,
			}, nil)

		w := serve(t, r, asBuyer(http.MethodPost, path, map[string]any{"action": "ACCEPTED", "note": "deal"}))

		assert.Equal(t, http.StatusCreated, w.Code)
		var result orderingapp.NegotiationResult
		decodeData(t, w, &result)
		assert.Equal(t, "CLOSED", result.Order.Status)
		svc.AssertExpectations(t)
	})

	t.Run("empty body derives the action", func(t *testing.T) {
		svc := new(MockNegotiationService)
		r := newNegotiationTestRouter(svc)

		svc.On("RecordAction", mock.Anything, ordering.Supplier{ID: testSupplierUserID}, orderID,
			orderingapp.SubmitProposalRequest{}).
			Return(&orderingapp.NegotiationResult{RecordedAction: "STARTED", ProposalAppended: true}, nil)

		w := serve(t, r, asSupplier(http.MethodPost, path, nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("suppressed duplicate", func(t *testing.T) {
		svc := new(MockNegotiationService)
		r := newNegotiationTestRouter(svc)

		svc.On("RecordAction", mock.Anything, mock.Anything, orderID, mock.Anything).
			Return(&orderingapp.NegotiationResult{RecordedAction: "STARTED", ProposalAppended: false}, nil)

		w := serve(t, r, asSupplier(http.MethodPost, path, map[string]any{"action": "STARTED"}))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown action", func(t *testing.T) {
		svc := new(MockNegotiationService)
		r := newNegotiationTestRouter(svc)

		w := serve(t, r, asBuyer(http.MethodPost, path, map[string]any{"action": "CART_CHANGED"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "RecordAction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("closing an empty order", func(t *testing.T) {
		svc := new(MockNegotiationService)
		r := newNegotiationTestRouter(svc)

		svc.On("RecordAction", mock.Anything, mock.Anything, orderID, mock.Anything).Return(nil, shared.ErrEmptyOrder)

		w := serve(t, r, asBuyer(http.MethodPost, path, map[string]any{"action": "ACCEPTED"}))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeEmptyOrder, decodeResponse(t, w).Error.Code)
	})

	t.Run("anonymous caller", func(t *testing.T) {
		svc := new(MockNegotiationService)
		r := newNegotiationTestRouter(svc)

		w := serve(t, r, anonymous(http.MethodPost, path, map[string]any{"action": "ACCEPTED"}))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("system role rejected", func(t *testing.T) {
		svc := new(MockNegotiationService)
		r := newNegotiationTestRouter(svc)

		w := serve(t, r, testRequest{
			method: http.MethodPost,
			path:   path,
			body:   map[string]any{"action": "CANCELLED"},
			role:   ordering.ActorRoleSystem,
			userID: uuid.New(),
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)
	})
}
