package persistence

import (
	"context"

	appordering "github.com/agrolink/backend/internal/application/ordering"
	"github.com/agrolink/backend/internal/domain/ordering"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// Driver errors that escape fn are translated so serialization failures surface as conflicts.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appordering.TransactionalRepositories) error) error {
	return translateError(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	}))
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// OrderRepo returns the order repository scoped to the current transaction.
func (r *gormTransactionalRepositories) OrderRepo() ordering.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

// ProposalRepo returns the proposal repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ProposalRepo() ordering.ProposalRepository {
	return NewGormProposalRepository(r.tx)
}

// TransportRepo returns the transport repository scoped to the current transaction.
func (r *gormTransactionalRepositories) TransportRepo() ordering.TransportRepository {
	return NewGormTransportRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appordering.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appordering.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
