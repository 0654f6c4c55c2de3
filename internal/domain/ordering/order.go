package ordering

import (
	"fmt"
	"time"

	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultDeadlineDays is the negotiation window given to new orders
const DefaultDeadlineDays = 7

// Order is the aggregate root for a cart under negotiation between one producer and one supplier.
// Status is the current snapshot; the proposal history lives in an insert-only store.
type Order struct {
	shared.BaseAggregateRoot
	SupplierID          uuid.UUID
	ProducerID          uuid.UUID
	BuyerUserID         uuid.UUID
	AllowContact        bool
	Negotiable          bool
	Status              OrderStatus
	InteractionDeadline time.Time
	Items               []OrderItem
	Totals              TotalsSnapshot
	LastProposalAction  ProposalAction
	ClosedAt            *time.Time
	CancelledAt         *time.Time

	pendingProposals []Proposal
	removedItemIDs   []uuid.UUID
}

// NewOrder creates a new order in negotiation with deadline now+deadlineDays
func NewOrder(supplierID, producerID, buyerUserID uuid.UUID, deadlineDays int) (*Order, error) {
	if supplierID == uuid.Nil {
		return nil, shared.NewValidationError("Supplier ID cannot be empty")
	}
	if producerID == uuid.Nil {
		return nil, shared.NewValidationError("Producer ID cannot be empty")
	}
	if deadlineDays <= 0 {
		return nil, shared.NewValidationError("Deadline days must be positive")
	}

	order := &Order{
		BaseAggregateRoot:   shared.NewBaseAggregateRoot(),
		SupplierID:          supplierID,
		ProducerID:          producerID,
		BuyerUserID:         buyerUserID,
		Negotiable:          true,
		Status:              OrderStatusInNegotiation,
		InteractionDeadline: time.Now().AddDate(0, 0, deadlineDays),
		Items:               make([]OrderItem, 0),
		Totals:              EmptyTotals(),
	}

	order.Raise(NewOrderCreatedEvent(order))

	return order, nil
}

// SetContactPreferences sets whether the supplier may contact the buyer and whether prices are negotiable
func (o *Order) SetContactPreferences(allowContact, negotiable bool) {
	o.AllowContact = allowContact
	o.Negotiable = negotiable
	o.Touch()
}

// ensureModifiable returns an error unless the cart can still change
func (o *Order) ensureModifiable(operation string) error {
	if o.Status != OrderStatusInNegotiation {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot %s in %s status", operation, o.Status))
	}
	return nil
}

// EnsureModifiable reports whether cart operations are allowed
func (o *Order) EnsureModifiable() error {
	return o.ensureModifiable("modify order items")
}

// AddItem adds a priced item to the cart
func (o *Order) AddItem(item *OrderItem) error {
	if err := o.ensureModifiable("add items"); err != nil {
		return err
	}
	if item == nil {
		return shared.NewValidationError("Item cannot be empty")
	}
	if item.Quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("Quantity must be positive")
	}

	item.OrderID = o.ID
	o.Items = append(o.Items, *item)
	o.Touch()

	o.Raise(NewCartChangedEvent(o, CartChangeItemAdded, item))

	return nil
}

// UpdateItemPricing changes an item's quantity and discount
func (o *Order) UpdateItemPricing(itemID uuid.UUID, quantity, discountPercent decimal.Decimal, discount DiscountResult) (*OrderItem, error) {
	if err := o.ensureModifiable("update items"); err != nil {
		return nil, err
	}
	item := o.GetItem(itemID)
	if item == nil {
		return nil, shared.NewNotFoundError("Order item", itemID)
	}

	lineTotal := item.UnitPrice.Mul(quantity)
	if err := item.reprice(quantity, discountPercent, discount, lineTotal); err != nil {
		return nil, err
	}
	o.Touch()

	o.Raise(NewCartChangedEvent(o, CartChangeItemUpdated, item))

	return item, nil
}

// RemoveItem removes an item from the cart and returns it
func (o *Order) RemoveItem(itemID uuid.UUID) (*OrderItem, error) {
	if err := o.ensureModifiable("remove items"); err != nil {
		return nil, err
	}

	for i := range o.Items {
		if o.Items[i].ID == itemID {
			removed := o.Items[i]
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			o.removedItemIDs = append(o.removedItemIDs, itemID)
			o.Touch()

			o.Raise(NewCartChangedEvent(o, CartChangeItemRemoved, &removed))

			return &removed, nil
		}
	}

	return nil, shared.NewNotFoundError("Order item", itemID)
}

// Close accepts the negotiated cart
func (o *Order) Close() error {
	if !o.Status.CanTransitionTo(OrderStatusClosed) {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot close order in %s status", o.Status))
	}
	if len(o.Items) == 0 {
		return shared.ErrEmptyOrder
	}

	now := time.Now()
	o.Status = OrderStatusClosed
	o.ClosedAt = &now
	o.UpdatedAt = now

	o.Raise(NewOrderClosedEvent(o))

	return nil
}

// CancelByBuyer cancels the negotiation on the buyer's request
func (o *Order) CancelByBuyer() error {
	return o.cancel(OrderStatusCancelledByBuyer)
}

// CancelByDeadline cancels the negotiation after its deadline passed. System-triggered only.
func (o *Order) CancelByDeadline() error {
	return o.cancel(OrderStatusCancelledByDeadline)
}

func (o *Order) cancel(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = target
	o.CancelledAt = &now
	o.UpdatedAt = now

	o.Raise(NewOrderCancelledEvent(o))

	return nil
}

// ExtendDeadline resets the interaction deadline to now+days
func (o *Order) ExtendDeadline(days int) error {
	if days <= 0 {
		return shared.NewValidationError("Deadline extension must be a positive number of days")
	}
	if o.Status.IsTerminal() {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot extend deadline of order in %s status", o.Status))
	}

	previous := o.InteractionDeadline
	now := time.Now()
	o.InteractionDeadline = now.AddDate(0, 0, days)
	o.UpdatedAt = now

	o.Raise(NewDeadlineExtendedEvent(o, previous))

	return nil
}

// IsWithinDeadline reports whether the negotiation deadline has not yet passed
func (o *Order) IsWithinDeadline() bool {
	return o.IsWithinDeadlineAt(time.Now())
}

// IsWithinDeadlineAt is IsWithinDeadline evaluated at the given instant
func (o *Order) IsWithinDeadlineAt(at time.Time) bool {
	return !at.After(o.InteractionDeadline)
}

// UpdateTotals replaces the totals snapshot
func (o *Order) UpdateTotals(snapshot TotalsSnapshot) {
	o.Totals = snapshot
	o.Touch()
}

// HasProposals reports whether any proposal was ever recorded for the order
func (o *Order) HasProposals() bool {
	return o.LastProposalAction != ""
}

// RecordProposal queues a proposal unless it repeats the immediately preceding action.
// Returns true when a record was queued.
func (o *Order) RecordProposal(action ProposalAction, actor Actor, note string) bool {
	if o.LastProposalAction == action {
		return false
	}

	o.pendingProposals = append(o.pendingProposals, NewProposal(o.ID, action, actor, note))
	o.LastProposalAction = action
	return true
}

// RecordNote queues a free-text proposal. Notes are always appended and do not take part in
// the duplicate check, so LastProposalAction keeps tracking the state actions only.
func (o *Order) RecordNote(actor Actor, note string) Proposal {
	p := NewProposal(o.ID, ProposalActionStarted, actor, note)
	o.pendingProposals = append(o.pendingProposals, p)
	return p
}

// PendingProposals returns proposals recorded since the order was loaded
func (o *Order) PendingProposals() []Proposal {
	return o.pendingProposals
}

// ClearPendingProposals is called once pending proposals are persisted
func (o *Order) ClearPendingProposals() {
	o.pendingProposals = nil
}

// RemovedItemIDs returns items removed since the order was loaded
func (o *Order) RemovedItemIDs() []uuid.UUID {
	return o.removedItemIDs
}

// ClearRemovedItems is called once removals are persisted
func (o *Order) ClearRemovedItems() {
	o.removedItemIDs = nil
}

// GetItem returns the item with the given id or nil
func (o *Order) GetItem(itemID uuid.UUID) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// ItemCount returns the number of cart lines
func (o *Order) ItemCount() int {
	return len(o.Items)
}

// IsInNegotiation reports whether the order still accepts negotiation actions
func (o *Order) IsInNegotiation() bool {
	return o.Status == OrderStatusInNegotiation
}
