package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Metrics holds the store-wide aggregates shown on the dashboard header
type Metrics struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalOrders   int64           `json:"total_orders"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
	AvgRating     decimal.Decimal `json:"avg_rating"`
}

// MetricKey identifies a dashboard metric
type MetricKey string

const (
	MetricRevenue       MetricKey = "revenue"
	MetricOrders        MetricKey = "orders"
	MetricAvgOrderValue MetricKey = "avgOrderValue"
	MetricAvgRating     MetricKey = "avgRating"
)

// MetricFormat tells the client how to render a metric value
type MetricFormat string

const (
	FormatCurrency MetricFormat = "currency"
	FormatNumber   MetricFormat = "number"
	FormatRating   MetricFormat = "rating"
)

// ChartPoint is one day of a metric series. Date is YYYY-MM-DD in UTC.
type ChartPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// MetricWithDelta compares the current 7-day window with the previous one
type MetricWithDelta struct {
	Key           MetricKey    `json:"key"`
	Label         string       `json:"label"`
	Value         float64      `json:"value"`
	PreviousValue float64      `json:"previousValue"`
	Delta         float64      `json:"delta"`
	Format        MetricFormat `json:"format"`
	ChartData     []ChartPoint `json:"chartData"`
}

// StatusCount is the number of orders in a status
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// CategoryCount is the number of products in a category
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// BreakdownItem is one ranked slice of a revenue breakdown
type BreakdownItem struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// DailyBreakdown maps breakdown names to revenue for one day
type DailyBreakdown struct {
	Date   string             `json:"date"`
	Values map[string]float64 `json:"values"`
}

// RevenueInsights is the revenue breakdown over the trailing week
type RevenueInsights struct {
	TotalRevenue    float64           `json:"totalRevenue"`
	ByCategory      []BreakdownItem   `json:"byCategory"`
	ByProduct       []BreakdownItem   `json:"byProduct"`
	DailyByCategory []DailyBreakdown  `json:"dailyByCategory"`
	DailyByProduct  []DailyBreakdown  `json:"dailyByProduct"`
	CategoryColors  map[string]string `json:"categoryColors"`
	ProductColors   map[string]string `json:"productColors"`
}

// TopProduct is a product ranked by price
type TopProduct struct {
	ID         uuid.UUID       `json:"id"`
	ExternalID string          `json:"external_id"`
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	Price      decimal.Decimal `json:"price"`
	Rating     decimal.Decimal `json:"rating"`
	ImageURL   string          `json:"image_url"`
}

// RecentOrder is a row of the recent orders table
type RecentOrder struct {
	ID          uuid.UUID       `json:"id"`
	ExternalID  string          `json:"external_id"`
	Customer    string          `json:"customer"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int64           `json:"item_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Dashboard bundles every dashboard panel in one read model
type Dashboard struct {
	Metrics              Metrics           `json:"metrics"`
	MetricsWithDelta     []MetricWithDelta `json:"metrics_with_delta"`
	StatusDistribution   []StatusCount     `json:"status_distribution"`
	CategoryDistribution []CategoryCount   `json:"category_distribution"`
	Revenue              RevenueInsights   `json:"revenue"`
	TopProducts          []TopProduct      `json:"top_products"`
	RecentOrders         []RecentOrder     `json:"recent_orders"`
	LastSyncedAt         *time.Time        `json:"last_synced_at"`
	GeneratedAt          time.Time         `json:"generated_at"`
}

// StoreTotals are the raw store-wide sums
type StoreTotals struct {
	TotalRevenue decimal.Decimal
	OrderCount   int64
	AvgRating    decimal.Decimal
}

// OrderPoint is an order's placement time and total
type OrderPoint struct {
	CreatedAt   time.Time
	TotalAmount decimal.Decimal
}

// RevenueLine is a single non-cancelled order item with its product labels
type RevenueLine struct {
	CreatedAt         time.Time
	ProductID         uuid.UUID
	ProductExternalID string
	Category          string
	ProductName       string
	UnitPrice         decimal.Decimal
	Quantity          int
}

// Amount returns unit price × quantity
func (l RevenueLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// DashboardRepository defines the read-only queries behind the dashboard.
// Every method is side-effect free and may run concurrently with a sync.
type DashboardRepository interface {
	// GetStoreTotals returns revenue and count over all orders and the average product rating
	GetStoreTotals(ctx context.Context) (*StoreTotals, error)

	// GetOrderPoints returns orders created in [from, to)
	GetOrderPoints(ctx context.Context, from, to time.Time) ([]OrderPoint, error)

	GetStatusDistribution(ctx context.Context) ([]StatusCount, error)

	GetCategoryDistribution(ctx context.Context) ([]CategoryCount, error)

	// GetRevenueLines returns items of non-cancelled orders created in [from, to)
	GetRevenueLines(ctx context.Context, from, to time.Time) ([]RevenueLine, error)

	// GetTopProductsByPrice returns up to limit products, most expensive first
	GetTopProductsByPrice(ctx context.Context, limit int) ([]TopProduct, error)

	// GetRecentOrders returns up to limit orders, newest first
	GetRecentOrders(ctx context.Context, limit int) ([]RecentOrder, error)

	// GetLastSyncTime returns the latest product or order update, nil on an empty store
	GetLastSyncTime(ctx context.Context) (*time.Time, error)
}
