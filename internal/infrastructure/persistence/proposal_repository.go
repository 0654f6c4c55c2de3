package persistence

import (
	"context"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProposalRepository implements the insert-only proposal log using GORM
type GormProposalRepository struct {
	db *gorm.DB
}

// NewGormProposalRepository creates a new GormProposalRepository
func NewGormProposalRepository(db *gorm.DB) *GormProposalRepository {
	return &GormProposalRepository{db: db}
}

// Append inserts proposals. Rows are never updated; re-appending an existing ID is a no-op.
func (r *GormProposalRepository) Append(ctx context.Context, proposals ...ordering.Proposal) error {
	if len(proposals) == 0 {
		return nil
	}

	rows := make([]models.ProposalModel, len(proposals))
	for i, p := range proposals {
		rows[i] = models.ProposalModelFromDomain(p)
	}

	return translateError(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error)
}

// FindByOrder returns the proposal history of an order, oldest first
func (r *GormProposalRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]ordering.Proposal, error) {
	var rows []models.ProposalModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}

	proposals := make([]ordering.Proposal, len(rows))
	for i := range rows {
		proposals[i] = rows[i].ToDomain()
	}
	return proposals, nil
}

// Ensure GormProposalRepository implements ProposalRepository
var _ ordering.ProposalRepository = (*GormProposalRepository)(nil)
