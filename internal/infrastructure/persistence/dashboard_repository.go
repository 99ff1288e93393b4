package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/magpieiq/backend/internal/domain/commerce"
	"github.com/magpieiq/backend/internal/domain/report"
	"github.com/magpieiq/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormDashboardRepository implements report.DashboardRepository using GORM.
// Day bucketing happens in the service so the queries stay dialect neutral.
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewGormDashboardRepository creates a new GormDashboardRepository
func NewGormDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

// GetStoreTotals returns revenue and count over all orders and the average product rating
func (r *GormDashboardRepository) GetStoreTotals(ctx context.Context) (*report.StoreTotals, error) {
	type orderTotals struct {
		TotalRevenue decimal.Decimal
		OrderCount   int64
	}
	type ratingAvg struct {
		AvgRating decimal.Decimal
	}

	var totals orderTotals
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Select("COALESCE(SUM(total_amount), 0) AS total_revenue, COUNT(*) AS order_count").
		Scan(&totals).Error; err != nil {
		return nil, storeError(err)
	}

	var rating ratingAvg
	if err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Select("COALESCE(AVG(rating), 0) AS avg_rating").
		Scan(&rating).Error; err != nil {
		return nil, storeError(err)
	}

	return &report.StoreTotals{
		TotalRevenue: totals.TotalRevenue,
		OrderCount:   totals.OrderCount,
		AvgRating:    rating.AvgRating,
	}, nil
}

// GetOrderPoints returns orders created in [from, to)
func (r *GormDashboardRepository) GetOrderPoints(ctx context.Context, from, to time.Time) ([]report.OrderPoint, error) {
	var points []report.OrderPoint
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Select("created_at, total_amount").
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Order("created_at ASC").
		Scan(&points).Error; err != nil {
		return nil, storeError(err)
	}
	return points, nil
}

// GetStatusDistribution returns the number of orders per status
func (r *GormDashboardRepository) GetStatusDistribution(ctx context.Context) ([]report.StatusCount, error) {
	var counts []report.StatusCount
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status ASC").
		Scan(&counts).Error; err != nil {
		return nil, storeError(err)
	}
	return counts, nil
}

// GetCategoryDistribution returns the number of products per category
func (r *GormDashboardRepository) GetCategoryDistribution(ctx context.Context) ([]report.CategoryCount, error) {
	var counts []report.CategoryCount
	if err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("count DESC, category ASC").
		Scan(&counts).Error; err != nil {
		return nil, storeError(err)
	}
	return counts, nil
}

// GetRevenueLines returns items of non-cancelled orders created in [from, to)
func (r *GormDashboardRepository) GetRevenueLines(ctx context.Context, from, to time.Time) ([]report.RevenueLine, error) {
	var lines []report.RevenueLine
	if err := r.db.WithContext(ctx).
		Table("order_items oi").
		Select("o.created_at, p.id AS product_id, p.external_id AS product_external_id, p.category, p.name AS product_name, oi.unit_price, oi.quantity").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Joins("JOIN products p ON p.id = oi.product_id").
		Where("o.status <> ?", commerce.OrderStatusCancelled).
		Where("o.created_at >= ? AND o.created_at < ?", from.UTC(), to.UTC()).
		Order("o.created_at ASC").
		Scan(&lines).Error; err != nil {
		return nil, storeError(err)
	}
	return lines, nil
}

// GetTopProductsByPrice returns up to limit products, most expensive first
func (r *GormDashboardRepository) GetTopProductsByPrice(ctx context.Context, limit int) ([]report.TopProduct, error) {
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).
		Order("price DESC, external_id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, storeError(err)
	}
	products := make([]report.TopProduct, len(rows))
	for i, row := range rows {
		products[i] = report.TopProduct{
			ID:         row.ID,
			ExternalID: row.ExternalID,
			Name:       row.Name,
			Category:   row.Category,
			Price:      row.Price,
			Rating:     row.Rating,
			ImageURL:   row.ImageURL,
		}
	}
	return products, nil
}

// GetRecentOrders returns up to limit orders, newest first, with their item counts
func (r *GormDashboardRepository) GetRecentOrders(ctx context.Context, limit int) ([]report.RecentOrder, error) {
	type recentRow struct {
		ID          uuid.UUID
		ExternalID  *string
		CustomerRef string
		Status      string
		TotalAmount decimal.Decimal
		ItemCount   int64
		CreatedAt   time.Time
	}

	var rows []recentRow
	if err := r.db.WithContext(ctx).
		Table("orders o").
		Select(`o.id, o.external_id, o.customer_ref, o.status, o.total_amount, o.created_at,
			(SELECT COUNT(*) FROM order_items oi WHERE oi.order_id = o.id) AS item_count`).
		Order("o.created_at DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, storeError(err)
	}

	orders := make([]report.RecentOrder, len(rows))
	for i, row := range rows {
		orders[i] = report.RecentOrder{
			ID:          row.ID,
			Customer:    row.CustomerRef,
			Status:      row.Status,
			TotalAmount: row.TotalAmount,
			ItemCount:   row.ItemCount,
			CreatedAt:   row.CreatedAt,
		}
		if row.ExternalID != nil {
			orders[i].ExternalID = *row.ExternalID
		}
	}
	return orders, nil
}

// GetLastSyncTime returns the latest product or order update, nil on an empty store
func (r *GormDashboardRepository) GetLastSyncTime(ctx context.Context) (*time.Time, error) {
	var latest *time.Time
	for _, model := range []any{&models.ProductModel{}, &models.OrderModel{}} {
		var stamps []time.Time
		if err := r.db.WithContext(ctx).
			Model(model).
			Order("updated_at DESC").
			Limit(1).
			Pluck("updated_at", &stamps).Error; err != nil {
			return nil, storeError(err)
		}
		if len(stamps) > 0 && (latest == nil || stamps[0].After(*latest)) {
			t := stamps[0].UTC()
			latest = &t
		}
	}
	return latest, nil
}

// Ensure GormDashboardRepository implements report.DashboardRepository
var _ report.DashboardRepository = (*GormDashboardRepository)(nil)
