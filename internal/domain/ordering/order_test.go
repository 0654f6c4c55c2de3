package ordering

import (
	"errors"
	"testing"
	"time"

	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	order, err := NewOrder(uuid.New(), uuid.New(), uuid.New(), DefaultDeadlineDays)
	require.NoError(t, err)
	return order
}

func newTestItem(t *testing.T, qty, price, discount string) *OrderItem {
	t.Helper()
	item, err := NewOrderItem(uuid.Nil, uuid.New(), "Soybean seed",
		decimal.RequireFromString(qty), decimal.RequireFromString(price), decimal.RequireFromString(discount), ItemAuxData{})
	require.NoError(t, err)
	return item
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	all := []OrderStatus{OrderStatusInNegotiation, OrderStatusClosed, OrderStatusCancelledByBuyer, OrderStatusCancelledByDeadline}

	tests := []struct {
		from    OrderStatus
		allowed []OrderStatus
	}{
		{OrderStatusInNegotiation, []OrderStatus{OrderStatusClosed, OrderStatusCancelledByBuyer, OrderStatusCancelledByDeadline}},
		{OrderStatusClosed, nil},
		{OrderStatusCancelledByBuyer, nil},
		{OrderStatusCancelledByDeadline, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			for _, to := range all {
				assert.Equal(t, contains(tt.allowed, to), tt.from.CanTransitionTo(to), "%s -> %s", tt.from, to)
			}
		})
	}

	for _, s := range all {
		if s.IsTerminal() {
			assert.False(t, s.CanTransitionTo(OrderStatusInNegotiation), "terminal %s must not reopen", s)
		}
	}
	assert.False(t, OrderStatus("UNKNOWN").IsValid())
}

func contains(list []OrderStatus, s OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestNewOrder(t *testing.T) {
	t.Run("starts in negotiation with future deadline", func(t *testing.T) {
		before := time.Now()
		order := newTestOrder(t)

		assert.Equal(t, OrderStatusInNegotiation, order.Status)
		assert.Equal(t, 1, order.Version)
		assert.True(t, order.InteractionDeadline.After(before.AddDate(0, 0, DefaultDeadlineDays-1)))
		assert.True(t, order.IsWithinDeadline())
		assert.False(t, order.HasProposals())
		assert.True(t, order.Totals.GrossValue.IsZero())
		require.Len(t, order.PendingEvents(), 1)
		assert.Equal(t, EventTypeOrderCreated, order.PendingEvents()[0].EventType())
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := NewOrder(uuid.Nil, uuid.New(), uuid.New(), 7)
		assert.ErrorIs(t, err, shared.ErrValidation)

		_, err = NewOrder(uuid.New(), uuid.Nil, uuid.New(), 7)
		assert.ErrorIs(t, err, shared.ErrValidation)

		_, err = NewOrder(uuid.New(), uuid.New(), uuid.New(), 0)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestOrder_Close(t *testing.T) {
	t.Run("empty order cannot close", func(t *testing.T) {
		order := newTestOrder(t)

		err := order.Close()

		assert.ErrorIs(t, err, shared.ErrEmptyOrder)
		assert.Equal(t, OrderStatusInNegotiation, order.Status)
	})

	t.Run("closes with items", func(t *testing.T) {
		order := newTestOrder(t)
		require.NoError(t, order.AddItem(newTestItem(t, "10", "5", "0")))

		require.NoError(t, order.Close())

		assert.Equal(t, OrderStatusClosed, order.Status)
		assert.NotNil(t, order.ClosedAt)
	})

	t.Run("cannot close twice", func(t *testing.T) {
		order := newTestOrder(t)
		require.NoError(t, order.AddItem(newTestItem(t, "1", "5", "0")))
		require.NoError(t, order.Close())

		assert.ErrorIs(t, order.Close(), shared.ErrInvalidState)
	})
}

func TestOrder_Cancellation(t *testing.T) {
	t.Run("buyer cancellation", func(t *testing.T) {
		order := newTestOrder(t)
		require.NoError(t, order.CancelByBuyer())
		assert.Equal(t, OrderStatusCancelledByBuyer, order.Status)
		assert.NotNil(t, order.CancelledAt)
	})

	t.Run("deadline cancellation", func(t *testing.T) {
		order := newTestOrder(t)
		require.NoError(t, order.CancelByDeadline())
		assert.Equal(t, OrderStatusCancelledByDeadline, order.Status)
	})

	t.Run("terminal states are final", func(t *testing.T) {
		order := newTestOrder(t)
		require.NoError(t, order.CancelByDeadline())

		assert.ErrorIs(t, order.CancelByBuyer(), shared.ErrInvalidState)
		assert.ErrorIs(t, order.Close(), shared.ErrInvalidState)
		assert.ErrorIs(t, order.ExtendDeadline(3), shared.ErrInvalidState)
		assert.Equal(t, OrderStatusCancelledByDeadline, order.Status)
	})
}

func TestOrder_ItemsOnlyWhileNegotiating(t *testing.T) {
	order := newTestOrder(t)
	item := newTestItem(t, "2", "10", "0")
	require.NoError(t, order.AddItem(item))
	assert.Equal(t, order.ID, order.Items[0].OrderID)

	require.NoError(t, order.Close())

	err := order.AddItem(newTestItem(t, "1", "1", "0"))
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = order.RemoveItem(item.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Len(t, order.Items, 1)
}

func TestOrder_RemoveItem(t *testing.T) {
	order := newTestOrder(t)
	first := newTestItem(t, "1", "10", "0")
	second := newTestItem(t, "2", "10", "0")
	require.NoError(t, order.AddItem(first))
	require.NoError(t, order.AddItem(second))

	removed, err := order.RemoveItem(first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, removed.ID)
	assert.Len(t, order.Items, 1)
	assert.Equal(t, []uuid.UUID{first.ID}, order.RemovedItemIDs())

	_, err = order.RemoveItem(uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOrder_ExtendDeadline(t *testing.T) {
	order := newTestOrder(t)

	assert.ErrorIs(t, order.ExtendDeadline(0), shared.ErrValidation)
	assert.ErrorIs(t, order.ExtendDeadline(-2), shared.ErrValidation)

	before := time.Now()
	require.NoError(t, order.ExtendDeadline(10))
	assert.True(t, order.InteractionDeadline.After(before.AddDate(0, 0, 10).Add(-time.Second)))
}

func TestOrder_IsWithinDeadlineAt(t *testing.T) {
	order := newTestOrder(t)
	deadline := order.InteractionDeadline

	assert.True(t, order.IsWithinDeadlineAt(deadline.Add(-time.Minute)))
	assert.True(t, order.IsWithinDeadlineAt(deadline))
	assert.False(t, order.IsWithinDeadlineAt(deadline.Add(time.Second)))
	assert.False(t, order.IsWithinDeadlineAt(time.Now().AddDate(0, 0, 8)))
}

func TestOrder_RecordProposal_SuppressesRepeatedAction(t *testing.T) {
	order := newTestOrder(t)
	buyer := Buyer{ID: uuid.New()}

	assert.True(t, order.RecordProposal(ProposalActionStarted, buyer, "start"))
	assert.False(t, order.RecordProposal(ProposalActionStarted, buyer, "again"))
	assert.True(t, order.RecordProposal(ProposalActionCartChanged, buyer, "added"))
	assert.False(t, order.RecordProposal(ProposalActionCartChanged, buyer, "added more"))
	assert.True(t, order.RecordProposal(ProposalActionStarted, buyer, "back"))

	pending := order.PendingProposals()
	require.Len(t, pending, 3)
	assert.Equal(t, ProposalActionStarted, pending[0].Action)
	assert.Equal(t, ProposalActionCartChanged, pending[1].Action)
	assert.Equal(t, ActorRoleBuyer, pending[1].ActorRole)
	assert.Equal(t, buyer.ID, pending[1].ActorUserID)

	order.ClearPendingProposals()
	assert.Empty(t, order.PendingProposals())
	assert.True(t, order.HasProposals())
}

func TestOrderItem_Values(t *testing.T) {
	tests := []struct {
		qty, price, discount string
	}{
		{"10", "25.50", "0"},
		{"3", "99.99", "12.5"},
		{"1200", "1.37", "7"},
		{"0.5", "8000", "100"},
	}

	for _, tt := range tests {
		t.Run(tt.qty+"x"+tt.price+"-"+tt.discount, func(t *testing.T) {
			item := newTestItem(t, tt.qty, tt.price, tt.discount)

			qty := decimal.RequireFromString(tt.qty)
			price := decimal.RequireFromString(tt.price)
			pct := decimal.RequireFromString(tt.discount)
			expected := qty.Mul(price).Mul(decimal.NewFromInt(1).Sub(pct.Div(decimal.NewFromInt(100))))

			assert.True(t, expected.Sub(item.FinalValue()).Abs().LessThan(decimal.RequireFromString("0.0001")),
				"expected %s got %s", expected, item.FinalValue())
		})
	}
}

func TestOrderItem_Validation(t *testing.T) {
	_, err := NewOrderItem(uuid.New(), uuid.New(), "x", decimal.Zero, decimal.NewFromInt(1), decimal.Zero, ItemAuxData{})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewOrderItem(uuid.New(), uuid.New(), "x", decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(101), ItemAuxData{})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewOrderItem(uuid.New(), uuid.Nil, "x", decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.Zero, ItemAuxData{})
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, shared.CodeValidation, domainErr.Code)
}

func TestOrder_UpdateItemPricing_RespectsAllocation(t *testing.T) {
	order := newTestOrder(t)
	item := newTestItem(t, "100", "10", "0")
	item.Transports = []Transport{{ID: uuid.New(), Quantity: decimal.NewFromInt(60)}}
	require.NoError(t, order.AddItem(item))

	_, err := order.UpdateItemPricing(item.ID, decimal.NewFromInt(50), decimal.Zero, DiscountResult{})
	assert.ErrorIs(t, err, shared.ErrValidation)

	updated, err := order.UpdateItemPricing(item.ID, decimal.NewFromInt(80), decimal.NewFromInt(5), DiscountResult{AppliedSegment: "GOLD"})
	require.NoError(t, err)
	assert.True(t, updated.Quantity.Equal(decimal.NewFromInt(80)))
	assert.True(t, updated.DiscountPercent.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "GOLD", updated.AuxData.DiscountSegment)
	assert.True(t, updated.AuxData.LineTotal.Equal(decimal.NewFromInt(800)))
	assert.True(t, updated.AvailableQuantity().Equal(decimal.NewFromInt(20)))
}
