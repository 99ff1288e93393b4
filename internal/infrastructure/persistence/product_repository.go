package persistence

import (
	"context"
	"errors"

	"github.com/magpieiq/backend/internal/domain/commerce"
	"github.com/magpieiq/backend/internal/domain/shared"
	"github.com/magpieiq/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProductRepository implements commerce.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByExternalID finds a product by its feed id
func (r *GormProductRepository) FindByExternalID(ctx context.Context, externalID string) (*commerce.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, storeError(err)
	}
	return model.ToDomain(), nil
}

// FindAll returns every product ordered by external id
func (r *GormProductRepository) FindAll(ctx context.Context) ([]commerce.Product, error) {
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).Order("external_id ASC").Find(&rows).Error; err != nil {
		return nil, storeError(err)
	}
	products := make([]commerce.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products, nil
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *commerce.Product) error {
	return storeError(r.db.WithContext(ctx).Save(models.ProductModelFromDomain(product)).Error)
}

// Count returns the number of products
func (r *GormProductRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProductModel{}).Count(&count).Error; err != nil {
		return 0, storeError(err)
	}
	return count, nil
}

// Ensure GormProductRepository implements commerce.ProductRepository
var _ commerce.ProductRepository = (*GormProductRepository)(nil)
