package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/magpieiq/backend/internal/domain/report"
)

// DashboardReader is the read side behind the dashboard endpoints;
// the application DashboardService implements it.
type DashboardReader interface {
	GetDashboard(ctx context.Context) (*report.Dashboard, error)
	GetMetrics(ctx context.Context) (*report.Metrics, error)
	GetMetricsWithDelta(ctx context.Context) ([]report.MetricWithDelta, error)
	GetStatusDistribution(ctx context.Context) ([]report.StatusCount, error)
	GetCategoryDistribution(ctx context.Context) ([]report.CategoryCount, error)
	GetRevenueInsights(ctx context.Context) (*report.RevenueInsights, error)
	GetTopProducts(ctx context.Context) ([]report.TopProduct, error)
	GetRecentOrders(ctx context.Context) ([]report.RecentOrder, error)
	GetLastSyncTime(ctx context.Context) (*time.Time, error)
}

// LastSyncResponse wraps the last sync timestamp, null on an empty store
type LastSyncResponse struct {
	LastSyncedAt *time.Time `json:"lastSyncedAt"`
}

// DashboardHandler serves the read-only analytics endpoints
type DashboardHandler struct {
	BaseHandler
	reader DashboardReader
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(reader DashboardReader) *DashboardHandler {
	return &DashboardHandler{reader: reader}
}

// respond runs one read and writes either its value or the mapped error
func respond[T any](h *DashboardHandler, c *gin.Context, read func(context.Context) (T, error)) {
	data, err := read(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, data)
}

// GetDashboard GET /api/v1/dashboard
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	respond(h, c, h.reader.GetDashboard)
}

// GetMetrics GET /api/v1/dashboard/metrics
func (h *DashboardHandler) GetMetrics(c *gin.Context) {
	respond(h, c, h.reader.GetMetrics)
}

// GetMetricsWithDelta GET /api/v1/dashboard/metrics/delta
func (h *DashboardHandler) GetMetricsWithDelta(c *gin.Context) {
	respond(h, c, h.reader.GetMetricsWithDelta)
}

// GetStatusDistribution GET /api/v1/dashboard/orders/status
func (h *DashboardHandler) GetStatusDistribution(c *gin.Context) {
	respond(h, c, h.reader.GetStatusDistribution)
}

// GetCategoryDistribution GET /api/v1/dashboard/products/categories
func (h *DashboardHandler) GetCategoryDistribution(c *gin.Context) {
	respond(h, c, h.reader.GetCategoryDistribution)
}

// GetRevenueInsights GET /api/v1/dashboard/revenue
func (h *DashboardHandler) GetRevenueInsights(c *gin.Context) {
	respond(h, c, h.reader.GetRevenueInsights)
}

// GetTopProducts GET /api/v1/dashboard/products/top
func (h *DashboardHandler) GetTopProducts(c *gin.Context) {
	respond(h, c, h.reader.GetTopProducts)
}

// GetRecentOrders GET /api/v1/dashboard/orders/recent
func (h *DashboardHandler) GetRecentOrders(c *gin.Context) {
	respond(h, c, h.reader.GetRecentOrders)
}

// GetLastSyncTime GET /api/v1/dashboard/last-sync
func (h *DashboardHandler) GetLastSyncTime(c *gin.Context) {
	respond(h, c, func(ctx context.Context) (LastSyncResponse, error) {
		last, err := h.reader.GetLastSyncTime(ctx)
		return LastSyncResponse{LastSyncedAt: last}, err
	})
}
