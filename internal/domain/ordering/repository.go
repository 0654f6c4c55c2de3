package ordering

import (
	"context"
	"time"

	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderRepository persists the Order aggregate with its items.
// Loaded orders carry their items and each item's transports.
type OrderRepository interface {
	// FindByID returns the order or a NOT_FOUND DomainError
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindItemByID returns an item with its transports
	FindItemByID(ctx context.Context, itemID uuid.UUID) (*OrderItem, error)
	// LockItemForAllocation returns the item and holds a row lock on it until the transaction ends
	LockItemForAllocation(ctx context.Context, itemID uuid.UUID) (*OrderItem, error)
	// FindAll returns a page of orders matching the filter (supplier_id, producer_id, status)
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, int64, error)
	// FindExpiredNegotiations returns orders in negotiation whose deadline is before now
	FindExpiredNegotiations(ctx context.Context, now time.Time, limit int) ([]Order, error)
	// FindDeadlineApproaching returns orders in negotiation whose deadline falls in (now, until]
	FindDeadlineApproaching(ctx context.Context, now, until time.Time, limit int) ([]Order, error)
	// Create inserts a new order
	Create(ctx context.Context, order *Order) error
	// SaveWithLock updates the order only if its version is unchanged since it was loaded.
	// Returns a CONCURRENCY_CONFLICT DomainError otherwise.
	SaveWithLock(ctx context.Context, order *Order) error
}

// ProposalRepository is the insert-only proposal log
type ProposalRepository interface {
	Append(ctx context.Context, proposals ...Proposal) error
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]Proposal, error)
}

// TransportRepository persists transports
type TransportRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Transport, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]Transport, error)
	// SumAllocatedQuantity returns the quantity already on transports for the item
	SumAllocatedQuantity(ctx context.Context, orderItemID uuid.UUID) (decimal.Decimal, error)
	Create(ctx context.Context, transport *Transport) error
	// SaveWithLock updates the transport with a version check
	SaveWithLock(ctx context.Context, transport *Transport) error
	Delete(ctx context.Context, id uuid.UUID) error
}
