package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/agrolink/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Items.Transports", func(db *gorm.DB) *gorm.DB {
			return db.Order("scheduled_date ASC")
		})
}

// FindByID finds an order by ID with its items and their transports
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*ordering.Order, error) {
	var model models.OrderModel
	if err := preloadItems(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "Order", id)
	}
	return model.ToDomain(), nil
}

// FindItemByID finds an order item with its transports
func (r *GormOrderRepository) FindItemByID(ctx context.Context, itemID uuid.UUID) (*ordering.OrderItem, error) {
	var model models.OrderItemModel
	if err := r.db.WithContext(ctx).
		Preload("Transports").
		First(&model, "id = ?", itemID).Error; err != nil {
		return nil, notFound(err, "Order item", itemID)
	}
	return model.ToDomain(), nil
}

// LockItemForAllocation loads the item with SELECT ... FOR UPDATE.
// The lock is only meaningful when the repository is bound to a transaction.
func (r *GormOrderRepository) LockItemForAllocation(ctx context.Context, itemID uuid.UUID) (*ordering.OrderItem, error) {
	var model models.OrderItemModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", itemID).Error; err != nil {
		return nil, notFound(err, "Order item", itemID)
	}

	var transports []models.TransportModel
	if err := r.db.WithContext(ctx).
		Where("order_item_id = ?", itemID).
		Order("scheduled_date ASC").
		Find(&transports).Error; err != nil {
		return nil, translateError(err)
	}
	model.Transports = transports

	return model.ToDomain(), nil
}

// FindAll finds orders matching supplier_id, producer_id and status filters
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]ordering.Order, int64, error) {
	var total int64
	if err := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	query := r.applyFilterWithoutPagination(preloadItems(r.db.WithContext(ctx)), filter)
	var orderModels []models.OrderModel
	if err := r.applyPagination(query, filter).Find(&orderModels).Error; err != nil {
		return nil, 0, translateError(err)
	}

	return toDomainOrders(orderModels), total, nil
}

// FindExpiredNegotiations finds orders still in negotiation whose deadline is before now
func (r *GormOrderRepository) FindExpiredNegotiations(ctx context.Context, now time.Time, limit int) ([]ordering.Order, error) {
	var orderModels []models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND interaction_deadline < ?", string(ordering.OrderStatusInNegotiation), now.UTC()).
		Order("interaction_deadline ASC").
		Limit(limit).
		Find(&orderModels).Error; err != nil {
		return nil, translateError(err)
	}
	return toDomainOrders(orderModels), nil
}

// FindDeadlineApproaching finds orders in negotiation whose deadline falls in (now, until]
func (r *GormOrderRepository) FindDeadlineApproaching(ctx context.Context, now, until time.Time, limit int) ([]ordering.Order, error) {
	var orderModels []models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND interaction_deadline > ? AND interaction_deadline <= ?",
			string(ordering.OrderStatusInNegotiation), now.UTC(), until.UTC()).
		Order("interaction_deadline ASC").
		Limit(limit).
		Find(&orderModels).Error; err != nil {
		return nil, translateError(err)
	}
	return toDomainOrders(orderModels), nil
}

// CountOpenNegotiations returns the number of orders still in negotiation
func (r *GormOrderRepository) CountOpenNegotiations(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("status = ?", string(ordering.OrderStatusInNegotiation)).
		Count(&count).Error; err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

// Create inserts a new order with its items
func (r *GormOrderRepository) Create(ctx context.Context, order *ordering.Order) error {
	model := models.OrderModelFromDomain(order)
	if err := r.db.WithContext(ctx).Omit("Items.Transports").Create(model).Error; err != nil {
		return translateError(err)
	}
	order.ClearRemovedItems()
	return nil
}

// SaveWithLock updates the order only if the stored version still matches the loaded one.
// Items removed since load are deleted with their transports; remaining items are upserted.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, order *ordering.Order) error {
	expectedVersion := order.Version
	now := time.Now()
	model := models.OrderModelFromDomain(order)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", order.ID, expectedVersion).
			Updates(map[string]interface{}{
				"allow_contact":        model.AllowContact,
				"negotiable":           model.Negotiable,
				"status":               model.Status,
				"interaction_deadline": model.InteractionDeadline,
				"totals_snapshot":      model.TotalsSnapshot,
				"last_proposal_action": model.LastProposalAction,
				"closed_at":            model.ClosedAt,
				"cancelled_at":         model.CancelledAt,
				"version":              expectedVersion + 1,
				"updated_at":           now,
			})
		if result.Error != nil {
			return translateError(result.Error)
		}
		if result.RowsAffected == 0 {
			return r.missingOrConflict(tx, order.ID)
		}

		if removed := order.RemovedItemIDs(); len(removed) > 0 {
			if err := tx.Where("order_item_id IN ?", removed).
				Delete(&models.TransportModel{}).Error; err != nil {
				return translateError(err)
			}
			if err := tx.Where("order_id = ? AND id IN ?", order.ID, removed).
				Delete(&models.OrderItemModel{}).Error; err != nil {
				return translateError(err)
			}
		}

		for i := range model.Items {
			model.Items[i].OrderID = order.ID
			if err := guardAllocatedQuantity(tx, &model.Items[i]); err != nil {
				return err
			}
			if err := tx.Omit(clause.Associations).Save(&model.Items[i]).Error; err != nil {
				return translateError(err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	order.Version = expectedVersion + 1
	order.UpdatedAt = now
	order.ClearRemovedItems()
	return nil
}

// guardAllocatedQuantity locks the stored row of item and rejects a quantity below what
// transports committed after the order was loaded already allocate. New items pass through.
func guardAllocatedQuantity(tx *gorm.DB, item *models.OrderItemModel) error {
	var stored models.OrderItemModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "quantity").
		Where("id = ?", item.ID).
		Take(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return translateError(err)
	}
	if !item.Quantity.LessThan(stored.Quantity) {
		return nil
	}

	var allocated decimal.Decimal
	if err := tx.Model(&models.TransportModel{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("order_item_id = ?", item.ID).
		Scan(&allocated).Error; err != nil {
		return translateError(err)
	}
	if item.Quantity.LessThan(allocated) {
		return shared.NewValidationError(fmt.Sprintf(
			"Quantity cannot be lower than the %s already allocated to transports", allocated.String()))
	}
	return nil
}

// missingOrConflict distinguishes a deleted order from a stale version after a zero-row update
func (r *GormOrderRepository) missingOrConflict(tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.OrderModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return translateError(err)
	}
	if count == 0 {
		return shared.NewNotFoundError("Order", id)
	}
	return shared.ErrConcurrencyConflict
}

func (r *GormOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for _, key := range []string{"supplier_id", "producer_id", "status"} {
		if value, ok := filter.Filters[key]; ok && value != nil && value != "" {
			query = query.Where(fmt.Sprintf("%s = ?", key), value)
		}
	}
	return query
}

func (r *GormOrderRepository) applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = query.Clauses(orderSort.orderBy(filter.OrderBy, filter.OrderDir))

	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}
	return query
}

func toDomainOrders(orderModels []models.OrderModel) []ordering.Order {
	orders := make([]ordering.Order, len(orderModels))
	for i := range orderModels {
		orders[i] = *orderModels[i].ToDomain()
	}
	return orders
}

// Ensure GormOrderRepository implements OrderRepository
var _ ordering.OrderRepository = (*GormOrderRepository)(nil)
