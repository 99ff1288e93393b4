package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/magpieiq/backend/internal/interfaces/http/handler"
	"github.com/magpieiq/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers are the endpoint groups mounted by RegisterRoutes
type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Dashboard *handler.DashboardHandler
	Sync      *handler.SyncHandler
	// Metrics serves the Prometheus exposition; nil leaves /metrics unmounted
	Metrics http.Handler
}

// Security holds what the protected routes need
type Security struct {
	Tokens middleware.TokenValidator
	// LoginLimiter throttles POST /auth/login per client; nil disables it
	LoginLimiter *middleware.RateLimiter
}

// RegisterRoutes mounts the public endpoints on the engine root and the
// authenticated API under /api/v1.
func RegisterRoutes(engine *gin.Engine, h Handlers, sec Security, log *zap.Logger) {
	engine.GET("/health", h.Health.Health)
	if h.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(h.Metrics))
	}

	requireAuth := middleware.JWTAuth(sec.Tokens, log)

	login := []gin.HandlerFunc{h.Auth.Login}
	if sec.LoginLimiter != nil {
		login = append([]gin.HandlerFunc{middleware.RateLimit(sec.LoginLimiter)}, login...)
	}
	authRoutes := NewDomainGroup("auth", "/auth")
	authRoutes.POST("/login", login...)
	authRoutes.GET("/me", requireAuth, h.Auth.Me)

	dashboardRoutes := NewDomainGroup("dashboard", "/dashboard").Use(requireAuth)
	dashboardRoutes.GET("", h.Dashboard.GetDashboard)
	dashboardRoutes.GET("/metrics", h.Dashboard.GetMetrics)
	dashboardRoutes.GET("/metrics/delta", h.Dashboard.GetMetricsWithDelta)
	dashboardRoutes.GET("/orders/status", h.Dashboard.GetStatusDistribution)
	dashboardRoutes.GET("/orders/recent", h.Dashboard.GetRecentOrders)
	dashboardRoutes.GET("/products/categories", h.Dashboard.GetCategoryDistribution)
	dashboardRoutes.GET("/products/top", h.Dashboard.GetTopProducts)
	dashboardRoutes.GET("/revenue", h.Dashboard.GetRevenueInsights)
	dashboardRoutes.GET("/last-sync", h.Dashboard.GetLastSyncTime)

	syncRoutes := NewDomainGroup("sync", "/sync").Use(requireAuth)
	syncRoutes.POST("/runs", h.Sync.StartRun)
	syncRoutes.GET("/runs", h.Sync.ListRuns)
	syncRoutes.GET("/status", h.Sync.GetStatus)

	NewRouter(engine, WithAPIVersion("v1")).
		Register(authRoutes).
		Register(dashboardRoutes).
		Register(syncRoutes).
		Setup()
}
