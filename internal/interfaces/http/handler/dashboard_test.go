package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/magpieiq/backend/internal/application/ingest"
	"github.com/magpieiq/backend/internal/domain/report"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDashboardReader struct {
	err      error
	lastSync *time.Time
}

func (s *stubDashboardReader) GetDashboard(context.Context) (*report.Dashboard, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &report.Dashboard{TopProducts: []report.TopProduct{{Name: "Lamp"}}}, nil
}

func (s *stubDashboardReader) GetMetrics(context.Context) (*report.Metrics, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &report.Metrics{TotalRevenue: decimal.RequireFromString("83.5"), TotalOrders: 4}, nil
}

func (s *stubDashboardReader) GetMetricsWithDelta(context.Context) ([]report.MetricWithDelta, error) {
	return []report.MetricWithDelta{{Key: report.MetricRevenue, Label: "Total Revenue", Delta: 50}}, s.err
}

func (s *stubDashboardReader) GetStatusDistribution(context.Context) ([]report.StatusCount, error) {
	return []report.StatusCount{{Status: "Delivered", Count: 3}}, s.err
}

func (s *stubDashboardReader) GetCategoryDistribution(context.Context) ([]report.CategoryCount, error) {
	return []report.CategoryCount{{Category: "home", Count: 2}}, s.err
}

func (s *stubDashboardReader) GetRevenueInsights(context.Context) (*report.RevenueInsights, error) {
	return &report.RevenueInsights{TotalRevenue: 83}, s.err
}

func (s *stubDashboardReader) GetTopProducts(context.Context) ([]report.TopProduct, error) {
	return []report.TopProduct{{Name: "Lamp"}}, s.err
}

func (s *stubDashboardReader) GetRecentOrders(context.Context) ([]report.RecentOrder, error) {
	return []report.RecentOrder{{Customer: "Guest"}}, s.err
}

func (s *stubDashboardReader) GetLastSyncTime(context.Context) (*time.Time, error) {
	return s.lastSync, s.err
}

func newDashboardEngine(reader DashboardReader) *gin.Engine {
	h := NewDashboardHandler(reader)
	engine := newTestEngine()
	engine.GET("/dashboard", h.GetDashboard)
	engine.GET("/dashboard/metrics", h.GetMetrics)
	engine.GET("/dashboard/metrics/delta", h.GetMetricsWithDelta)
	engine.GET("/dashboard/orders/status", h.GetStatusDistribution)
	engine.GET("/dashboard/products/categories", h.GetCategoryDistribution)
	engine.GET("/dashboard/revenue", h.GetRevenueInsights)
	engine.GET("/dashboard/products/top", h.GetTopProducts)
	engine.GET("/dashboard/orders/recent", h.GetRecentOrders)
	engine.GET("/dashboard/last-sync", h.GetLastSyncTime)
	return engine
}

func TestDashboardHandler_Endpoints(t *testing.T) {
	synced := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	engine := newDashboardEngine(&stubDashboardReader{lastSync: &synced})

	tests := []struct {
		path string
		want string
	}{
		{"/dashboard", `"name":"Lamp"`},
		{"/dashboard/metrics", `"total_revenue":"83.5"`},
		{"/dashboard/metrics/delta", `"label":"Total Revenue"`},
		{"/dashboard/orders/status", `"status":"Delivered"`},
		{"/dashboard/products/categories", `"category":"home"`},
		{"/dashboard/revenue", `"totalRevenue":83`},
		{"/dashboard/products/top", `"name":"Lamp"`},
		{"/dashboard/orders/recent", `"customer":"Guest"`},
		{"/dashboard/last-sync", `"lastSyncedAt":"2026-03-10T12:00:00Z"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := perform(engine, http.MethodGet, tt.path, "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.True(t, decode(t, w).Success)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestDashboardHandler_EmptyStoreLastSync(t *testing.T) {
	engine := newDashboardEngine(&stubDashboardReader{})

	w := perform(engine, http.MethodGet, "/dashboard/last-sync", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp LastSyncResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	assert.Nil(t, resp.LastSyncedAt)
}

func TestDashboardHandler_Errors(t *testing.T) {
	t.Run("store unavailable maps to 503", func(t *testing.T) {
		engine := newDashboardEngine(&stubDashboardReader{err: fmt.Errorf("query: %w", ingest.ErrStoreUnavailable)})

		w := perform(engine, http.MethodGet, "/dashboard/metrics", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "ERR_SERVICE_UNAVAILABLE", decode(t, w).Error.Code)
	})

	t.Run("unknown error maps to 500", func(t *testing.T) {
		engine := newDashboardEngine(&stubDashboardReader{err: fmt.Errorf("boom")})

		w := perform(engine, http.MethodGet, "/dashboard", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		env := decode(t, w)
		assert.Equal(t, "ERR_INTERNAL", env.Error.Code)
		assert.NotContains(t, w.Body.String(), "boom")
	})
}
