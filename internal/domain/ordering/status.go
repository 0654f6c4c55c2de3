package ordering

// OrderStatus represents the negotiation status of an order
type OrderStatus string

const (
	OrderStatusInNegotiation       OrderStatus = "IN_NEGOTIATION"
	OrderStatusClosed              OrderStatus = "CLOSED"
	OrderStatusCancelledByBuyer    OrderStatus = "CANCELLED_BY_BUYER"
	OrderStatusCancelledByDeadline OrderStatus = "CANCELLED_BY_DEADLINE"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusInNegotiation, OrderStatusClosed, OrderStatusCancelledByBuyer, OrderStatusCancelledByDeadline:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusClosed || s.IsCancelled()
}

// IsCancelled reports whether the order was cancelled by either party or by the deadline
func (s OrderStatus) IsCancelled() bool {
	return s == OrderStatusCancelledByBuyer || s == OrderStatusCancelledByDeadline
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusInNegotiation:
		return target == OrderStatusClosed ||
			target == OrderStatusCancelledByBuyer ||
			target == OrderStatusCancelledByDeadline
	case OrderStatusClosed, OrderStatusCancelledByBuyer, OrderStatusCancelledByDeadline:
		return false // Terminal states
	}
	return false
}

// ProposalAction is the action recorded by a negotiation proposal
type ProposalAction string

const (
	ProposalActionStarted     ProposalAction = "STARTED"
	ProposalActionAccepted    ProposalAction = "ACCEPTED"
	ProposalActionCancelled   ProposalAction = "CANCELLED"
	ProposalActionCartChanged ProposalAction = "CART_CHANGED"
)

// IsValid checks if the action is a known ProposalAction
func (a ProposalAction) IsValid() bool {
	switch a {
	case ProposalActionStarted, ProposalActionAccepted, ProposalActionCancelled, ProposalActionCartChanged:
		return true
	}
	return false
}

// String returns the string representation of ProposalAction
func (a ProposalAction) String() string {
	return string(a)
}

// ParseProposalAction parses a client supplied action. Empty input yields an empty action.
func ParseProposalAction(value string) (ProposalAction, bool) {
	if value == "" {
		return "", true
	}
	action := ProposalAction(value)
	return action, action.IsValid()
}
