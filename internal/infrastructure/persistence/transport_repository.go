package persistence

import (
	"context"
	"time"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/agrolink/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormTransportRepository implements TransportRepository using GORM
type GormTransportRepository struct {
	db *gorm.DB
}

// NewGormTransportRepository creates a new GormTransportRepository
func NewGormTransportRepository(db *gorm.DB) *GormTransportRepository {
	return &GormTransportRepository{db: db}
}

// FindByID finds a transport by ID
func (r *GormTransportRepository) FindByID(ctx context.Context, id uuid.UUID) (*ordering.Transport, error) {
	var model models.TransportModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "Transport", id)
	}
	return model.ToDomain(), nil
}

// FindByOrder returns every transport of an order ordered by scheduled date
func (r *GormTransportRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]ordering.Transport, error) {
	var rows []models.TransportModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("scheduled_date ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}

	transports := make([]ordering.Transport, len(rows))
	for i := range rows {
		transports[i] = *rows[i].ToDomain()
	}
	return transports, nil
}

// SumAllocatedQuantity returns the total quantity on transports for the item
func (r *GormTransportRepository) SumAllocatedQuantity(ctx context.Context, orderItemID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.WithContext(ctx).
		Model(&models.TransportModel{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("order_item_id = ?", orderItemID).
		Scan(&total).Error; err != nil {
		return decimal.Zero, translateError(err)
	}
	return total, nil
}

// Create inserts a new transport
func (r *GormTransportRepository) Create(ctx context.Context, transport *ordering.Transport) error {
	return translateError(r.db.WithContext(ctx).Create(models.TransportModelFromDomain(transport)).Error)
}

// SaveWithLock updates the transport if its version is unchanged since it was loaded
func (r *GormTransportRepository) SaveWithLock(ctx context.Context, transport *ordering.Transport) error {
	expectedVersion := transport.Version
	now := time.Now()
	model := models.TransportModelFromDomain(transport)

	result := r.db.WithContext(ctx).
		Model(&models.TransportModel{}).
		Where("id = ? AND version = ?", transport.ID, expectedVersion).
		Updates(map[string]interface{}{
			"freight_value":  model.FreightValue,
			"scheduled_date": model.ScheduledDate,
			"origin":         model.Origin,
			"destination":    model.Destination,
			"observations":   model.Observations,
			"audit_info":     model.AuditInfo,
			"version":        expectedVersion + 1,
			"updated_at":     now,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	transport.Version = expectedVersion + 1
	transport.UpdatedAt = now
	return nil
}

// Delete removes a transport, releasing its allocated quantity
func (r *GormTransportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.TransportModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Transport", id)
	}
	return nil
}

// Ensure GormTransportRepository implements TransportRepository
var _ ordering.TransportRepository = (*GormTransportRepository)(nil)
