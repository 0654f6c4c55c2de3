package ordering

import (
	"fmt"
	"strings"

	"github.com/agrolink/backend/internal/domain/shared"
)

// StartedNegotiationNote is recorded for a buyer's first action on an order
const StartedNegotiationNote = "Started negotiation"

// NegotiationRequest is an action requested by one of the parties
type NegotiationRequest struct {
	Actor Actor
	// RequestedAction is empty when the client sent none
	RequestedAction ProposalAction
	Note            string
}

// NegotiationOutcome reports what a request did to the order
type NegotiationOutcome struct {
	RecordedAction   ProposalAction
	ProposalAppended bool
	PreviousStatus   OrderStatus
	Status           OrderStatus
}

// Negotiate applies a negotiation request to the order. It performs the state transition and queues the
// proposal record; persistence is left to the caller, which must save both atomically.
// When the proposal repeats the previous action its row is suppressed but the transition still applies.
func Negotiate(order *Order, req NegotiationRequest) (NegotiationOutcome, error) {
	if err := ensureOpenForNegotiation(order); err != nil {
		return NegotiationOutcome{}, err
	}

	outcome := NegotiationOutcome{PreviousStatus: order.Status}

	var err error
	switch actor := req.Actor.(type) {
	case Buyer:
		err = handleBuyerAction(order, actor, req, &outcome)
	case Supplier:
		err = handleSupplierAction(order, actor, req, &outcome)
	default:
		err = shared.NewValidationError("Only the buyer or the supplier can act on a negotiation")
	}
	if err != nil {
		return NegotiationOutcome{}, err
	}

	outcome.Status = order.Status
	return outcome, nil
}

func ensureOpenForNegotiation(order *Order) error {
	switch {
	case order.Status.IsCancelled():
		return shared.NewInvalidStateError("The order has been cancelled")
	case order.Status == OrderStatusClosed:
		return shared.NewInvalidStateError("The order has been closed")
	case order.Status != OrderStatusInNegotiation:
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot negotiate order in %s status", order.Status))
	}
	return nil
}

// handleBuyerAction: the first buyer action always opens the negotiation, whatever was requested.
// Afterwards Accepted closes and Cancelled cancels the order.
func handleBuyerAction(order *Order, buyer Buyer, req NegotiationRequest, outcome *NegotiationOutcome) error {
	if !order.HasProposals() {
		outcome.RecordedAction = ProposalActionStarted
		outcome.ProposalAppended = order.RecordProposal(ProposalActionStarted, buyer, StartedNegotiationNote)
		return nil
	}

	switch req.RequestedAction {
	case ProposalActionAccepted:
		if err := order.Close(); err != nil {
			return err
		}
	case ProposalActionCancelled:
		if err := order.CancelByBuyer(); err != nil {
			return err
		}
	case "":
		return shared.NewValidationError("An action is required")
	default:
		return shared.NewValidationError(fmt.Sprintf("Action %s cannot be requested by the buyer", req.RequestedAction))
	}

	outcome.RecordedAction = req.RequestedAction
	outcome.ProposalAppended = order.RecordProposal(req.RequestedAction, buyer, strings.TrimSpace(req.Note))
	return nil
}

// handleSupplierAction records the supplier's note without changing the order status.
// The supplier cannot accept or cancel; its rows carry Started and never suppress or hide buyer actions.
func handleSupplierAction(order *Order, supplier Supplier, req NegotiationRequest, outcome *NegotiationOutcome) error {
	switch req.RequestedAction {
	case "", ProposalActionStarted:
	default:
		return shared.NewValidationError(fmt.Sprintf("Action %s cannot be requested by the supplier", req.RequestedAction))
	}

	note := strings.TrimSpace(req.Note)
	if note == "" {
		return shared.NewValidationError("The supplier must provide a note")
	}

	outcome.RecordedAction = order.RecordNote(supplier, note).Action
	outcome.ProposalAppended = true
	return nil
}
