package ordering

import (
	"testing"

	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegotiate_BuyerFirstActionAlwaysStarts(t *testing.T) {
	for _, requested := range []ProposalAction{"", ProposalActionAccepted, ProposalActionCancelled} {
		t.Run("requested "+string(requested), func(t *testing.T) {
			order := newTestOrder(t)
			buyer := Buyer{ID: uuid.New()}

			outcome, err := Negotiate(order, NegotiationRequest{Actor: buyer, RequestedAction: requested, Note: "ignored"})

			require.NoError(t, err)
			assert.Equal(t, ProposalActionStarted, outcome.RecordedAction)
			assert.True(t, outcome.ProposalAppended)
			assert.Equal(t, OrderStatusInNegotiation, order.Status)

			pending := order.PendingProposals()
			require.Len(t, pending, 1)
			assert.Equal(t, ProposalActionStarted, pending[0].Action)
			assert.Equal(t, StartedNegotiationNote, pending[0].Note)
		})
	}
}

func TestNegotiate_BuyerAcceptClosesOrder(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.AddItem(newTestItem(t, "5", "10", "0")))
	buyer := Buyer{ID: uuid.New()}
	_, err := Negotiate(order, NegotiationRequest{Actor: buyer})
	require.NoError(t, err)

	outcome, err := Negotiate(order, NegotiationRequest{Actor: buyer, RequestedAction: ProposalActionAccepted, Note: "deal"})

	require.NoError(t, err)
	assert.Equal(t, OrderStatusInNegotiation, outcome.PreviousStatus)
	assert.Equal(t, OrderStatusClosed, outcome.Status)
	assert.Equal(t, OrderStatusClosed, order.Status)
	assert.Len(t, order.PendingProposals(), 2)
}

func TestNegotiate_BuyerAcceptEmptyOrderFails(t *testing.T) {
	order := newTestOrder(t)
	buyer := Buyer{ID: uuid.New()}
	_, err := Negotiate(order, NegotiationRequest{Actor: buyer})
	require.NoError(t, err)

	_, err = Negotiate(order, NegotiationRequest{Actor: buyer, RequestedAction: ProposalActionAccepted})

	assert.ErrorIs(t, err, shared.ErrEmptyOrder)
	assert.Equal(t, OrderStatusInNegotiation, order.Status)
	assert.Len(t, order.PendingProposals(), 1)
}

func TestNegotiate_BuyerCancel(t *testing.T) {
	order := newTestOrder(t)
	buyer := Buyer{ID: uuid.New()}
	_, err := Negotiate(order, NegotiationRequest{Actor: buyer})
	require.NoError(t, err)

	outcome, err := Negotiate(order, NegotiationRequest{Actor: buyer, RequestedAction: ProposalActionCancelled, Note: "changed plans"})

	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelledByBuyer, outcome.Status)
}

func TestNegotiate_BuyerInvalidActions(t *testing.T) {
	tests := []ProposalAction{"", ProposalActionCartChanged, ProposalActionStarted}

	for _, action := range tests {
		t.Run(string(action), func(t *testing.T) {
			order := newTestOrder(t)
			buyer := Buyer{ID: uuid.New()}
			_, err := Negotiate(order, NegotiationRequest{Actor: buyer})
			require.NoError(t, err)

			_, err = Negotiate(order, NegotiationRequest{Actor: buyer, RequestedAction: action})

			assert.ErrorIs(t, err, shared.ErrValidation)
			assert.Equal(t, OrderStatusInNegotiation, order.Status)
		})
	}
}

func TestNegotiate_TransitionAppliedEvenWhenRowSuppressed(t *testing.T) {
	order := newTestOrder(t)
	// log already ends with a Cancelled row while the order is still open
	order.LastProposalAction = ProposalActionCancelled

	outcome, err := Negotiate(order, NegotiationRequest{Actor: Buyer{ID: uuid.New()}, RequestedAction: ProposalActionCancelled})

	require.NoError(t, err)
	assert.False(t, outcome.ProposalAppended)
	assert.Equal(t, OrderStatusCancelledByBuyer, order.Status)
	assert.Empty(t, order.PendingProposals())
}

func TestNegotiate_Supplier(t *testing.T) {
	t.Run("requires note", func(t *testing.T) {
		order := newTestOrder(t)
		_, err := Negotiate(order, NegotiationRequest{Actor: Supplier{ID: uuid.New()}, Note: "   "})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("records note without transition", func(t *testing.T) {
		order := newTestOrder(t)
		require.NoError(t, order.AddItem(newTestItem(t, "1", "1", "0")))
		supplier := Supplier{ID: uuid.New()}

		outcome, err := Negotiate(order, NegotiationRequest{Actor: supplier, Note: "price ok"})

		require.NoError(t, err)
		assert.True(t, outcome.ProposalAppended)
		assert.Equal(t, OrderStatusInNegotiation, order.Status)
		assert.Equal(t, ProposalActionStarted, outcome.RecordedAction)
		pending := order.PendingProposals()
		require.Len(t, pending, 1)
		assert.Equal(t, ActorRoleSupplier, pending[0].ActorRole)
		assert.Equal(t, "price ok", pending[0].Note)
		assert.False(t, order.HasProposals(), "notes do not open the negotiation")
	})

	t.Run("reply after buyer started is kept", func(t *testing.T) {
		order := newTestOrder(t)
		buyer := Buyer{ID: uuid.New()}
		supplier := Supplier{ID: uuid.New()}

		_, err := Negotiate(order, NegotiationRequest{Actor: buyer})
		require.NoError(t, err)
		first, err := Negotiate(order, NegotiationRequest{Actor: supplier, Note: "we can do 5% off"})
		require.NoError(t, err)
		second, err := Negotiate(order, NegotiationRequest{Actor: supplier, Note: "offer valid until Friday"})
		require.NoError(t, err)

		assert.True(t, first.ProposalAppended)
		assert.True(t, second.ProposalAppended)
		pending := order.PendingProposals()
		require.Len(t, pending, 3)
		assert.Equal(t, ActorRoleBuyer, pending[0].ActorRole)
		assert.Equal(t, "we can do 5% off", pending[1].Note)
		assert.Equal(t, "offer valid until Friday", pending[2].Note)
		assert.Equal(t, ProposalActionStarted, order.LastProposalAction)
	})

	t.Run("buyer accept after supplier note is recorded", func(t *testing.T) {
		order := newTestOrder(t)
		require.NoError(t, order.AddItem(newTestItem(t, "1", "1", "0")))
		buyer := Buyer{ID: uuid.New()}

		_, err := Negotiate(order, NegotiationRequest{Actor: buyer})
		require.NoError(t, err)
		_, err = Negotiate(order, NegotiationRequest{Actor: Supplier{ID: uuid.New()}, Note: "ready to ship"})
		require.NoError(t, err)
		outcome, err := Negotiate(order, NegotiationRequest{Actor: buyer, RequestedAction: ProposalActionAccepted})

		require.NoError(t, err)
		assert.True(t, outcome.ProposalAppended)
		assert.Equal(t, OrderStatusClosed, order.Status)
		assert.Len(t, order.PendingProposals(), 3)
	})

	for _, action := range []ProposalAction{ProposalActionAccepted, ProposalActionCancelled, ProposalActionCartChanged} {
		t.Run("cannot request "+string(action), func(t *testing.T) {
			order := newTestOrder(t)
			_, err := Negotiate(order, NegotiationRequest{Actor: Supplier{ID: uuid.New()}, RequestedAction: action, Note: "x"})
			assert.ErrorIs(t, err, shared.ErrValidation)
			assert.Empty(t, order.PendingProposals())
		})
	}
}

func TestNegotiate_TerminalOrders(t *testing.T) {
	closed := newTestOrder(t)
	require.NoError(t, closed.AddItem(newTestItem(t, "1", "1", "0")))
	require.NoError(t, closed.Close())

	cancelled := newTestOrder(t)
	require.NoError(t, cancelled.CancelByDeadline())

	_, err := Negotiate(closed, NegotiationRequest{Actor: Buyer{ID: uuid.New()}, RequestedAction: ProposalActionCancelled})
	require.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Equal(t, "The order has been closed", err.Error())

	_, err = Negotiate(cancelled, NegotiationRequest{Actor: Supplier{ID: uuid.New()}, Note: "late"})
	require.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Equal(t, "The order has been cancelled", err.Error())
}

func TestNegotiate_SystemActorRejected(t *testing.T) {
	order := newTestOrder(t)
	_, err := Negotiate(order, NegotiationRequest{Actor: System{}, Note: "x"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestNewActor(t *testing.T) {
	id := uuid.New()

	actor, err := NewActor(ActorRoleBuyer, id)
	require.NoError(t, err)
	assert.Equal(t, Buyer{ID: id}, actor)

	actor, err = NewActor(ActorRoleSupplier, id)
	require.NoError(t, err)
	assert.Equal(t, ActorRoleSupplier, actor.Role())

	_, err = NewActor("ADMIN", id)
	assert.Error(t, err)
}
