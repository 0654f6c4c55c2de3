package ordering

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActorRole identifies the party behind a proposal
type ActorRole string

const (
	ActorRoleBuyer    ActorRole = "BUYER"
	ActorRoleSupplier ActorRole = "SUPPLIER"
	ActorRoleSystem   ActorRole = "SYSTEM"
)

// Actor is the party performing an action on an order.
// The set of implementations is closed: Buyer, Supplier and System.
type Actor interface {
	UserID() uuid.UUID
	Role() ActorRole
	isActor()
}

// Buyer is the producer side of a negotiation
type Buyer struct {
	ID uuid.UUID
}

// UserID returns the acting user
func (b Buyer) UserID() uuid.UUID { return b.ID }

// Role returns ActorRoleBuyer
func (b Buyer) Role() ActorRole { return ActorRoleBuyer }

func (Buyer) isActor() {}

// Supplier is the selling side of a negotiation
type Supplier struct {
	ID uuid.UUID
}

// UserID returns the acting user
func (s Supplier) UserID() uuid.UUID { return s.ID }

// Role returns ActorRoleSupplier
func (s Supplier) Role() ActorRole { return ActorRoleSupplier }

func (Supplier) isActor() {}

// System attributes actions taken by background processes
type System struct{}

// UserID returns uuid.Nil
func (System) UserID() uuid.UUID { return uuid.Nil }

// Role returns ActorRoleSystem
func (System) Role() ActorRole { return ActorRoleSystem }

func (System) isActor() {}

// NewActor builds the actor variant for a role name
func NewActor(role ActorRole, userID uuid.UUID) (Actor, error) {
	switch role {
	case ActorRoleBuyer:
		return Buyer{ID: userID}, nil
	case ActorRoleSupplier:
		return Supplier{ID: userID}, nil
	case ActorRoleSystem:
		return System{}, nil
	}
	return nil, fmt.Errorf("unknown actor role %q", role)
}

// Proposal is an immutable record of a negotiation action or cart change
type Proposal struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Action      ProposalAction
	ActorUserID uuid.UUID
	ActorRole   ActorRole
	Note        string
	CreatedAt   time.Time
}

// NewProposal creates a proposal record for an order
func NewProposal(orderID uuid.UUID, action ProposalAction, actor Actor, note string) Proposal {
	return Proposal{
		ID:          uuid.New(),
		OrderID:     orderID,
		Action:      action,
		ActorUserID: actor.UserID(),
		ActorRole:   actor.Role(),
		Note:        note,
		CreatedAt:   time.Now(),
	}
}
