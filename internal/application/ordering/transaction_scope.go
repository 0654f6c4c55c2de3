package ordering

import (
	"context"

	"github.com/agrolink/backend/internal/domain/ordering"
)

// TransactionScope provides transactional access to ordering repositories.
// All repository operations inside Execute are committed or rolled back together.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ordering repositories within a transaction.
//
//   - OrderRepo: the Order aggregate with its items. Item removal cascades to transports.
//   - ProposalRepo: append-only negotiation history.
//   - TransportRepo: transports are stored apart from the order so allocation can be
//     re-checked under an item row lock without rewriting the aggregate.
type TransactionalRepositories interface {
	OrderRepo() ordering.OrderRepository
	ProposalRepo() ordering.ProposalRepository
	TransportRepo() ordering.TransportRepository
}

// NoOpTransactionScope runs the function against plain repositories without a transaction.
// Used by tests.
type NoOpTransactionScope struct {
	orderRepo     ordering.OrderRepository
	proposalRepo  ordering.ProposalRepository
	transportRepo ordering.TransportRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	orderRepo ordering.OrderRepository,
	proposalRepo ordering.ProposalRepository,
	transportRepo ordering.TransportRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		orderRepo:     orderRepo,
		proposalRepo:  proposalRepo,
		transportRepo: transportRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// OrderRepo returns the order repository.
func (s *NoOpTransactionScope) OrderRepo() ordering.OrderRepository {
	return s.orderRepo
}

// ProposalRepo returns the proposal repository.
func (s *NoOpTransactionScope) ProposalRepo() ordering.ProposalRepository {
	return s.proposalRepo
}

// TransportRepo returns the transport repository.
func (s *NoOpTransactionScope) TransportRepo() ordering.TransportRepository {
	return s.transportRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
