package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/magpieiq/backend/internal/domain/commerce"
	"github.com/magpieiq/backend/internal/domain/shared"
	"github.com/magpieiq/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements commerce.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID loads an order with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*commerce.Order, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByExternalID loads an order with its items by its derived identity
func (r *GormOrderRepository) FindByExternalID(ctx context.Context, externalID string) (*commerce.Order, error) {
	return r.first(ctx, "external_id = ?", externalID)
}

func (r *GormOrderRepository) first(ctx context.Context, query string, arg any) (*commerce.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).Preload("Items").Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, storeError(err)
	}
	return model.ToDomain(), nil
}

// Create inserts the order row and its items
func (r *GormOrderRepository) Create(ctx context.Context, order *commerce.Order) error {
	model := models.OrderModelFromDomain(order)
	if len(model.Items) == 0 {
		model.Items = nil
	}
	return storeError(r.db.WithContext(ctx).Create(model).Error)
}

// Update rewrites the order row; items are left alone
func (r *GormOrderRepository) Update(ctx context.Context, order *commerce.Order) error {
	model := models.OrderModelFromDomain(order)
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", model.ID).
		Omit(clause.Associations).
		Updates(map[string]any{
			"customer_ref":   model.CustomerRef,
			"status":         model.Status,
			"total_amount":   model.TotalAmount,
			"created_at":     model.CreatedAt,
			"updated_at":     model.UpdatedAt,
			"last_synced_at": model.LastSyncedAt,
		})
	if result.Error != nil {
		return storeError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ReplaceItems deletes every item of the order and inserts items in their place
func (r *GormOrderRepository) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []commerce.OrderItem) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", orderID).Delete(&models.OrderItemModel{}).Error; err != nil {
		return storeError(err)
	}
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.OrderItemModel, len(items))
	for i := range items {
		rows[i] = *models.OrderItemModelFromDomain(&items[i])
		rows[i].OrderID = orderID
	}
	return storeError(db.Create(&rows).Error)
}

// Count returns the number of orders
func (r *GormOrderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).Count(&count).Error; err != nil {
		return 0, storeError(err)
	}
	return count, nil
}

// Ensure GormOrderRepository implements commerce.OrderRepository
var _ commerce.OrderRepository = (*GormOrderRepository)(nil)
