package router

import (
	"github.com/gin-gonic/gin"
	"github.com/magpieiq/backend/internal/infrastructure/config"
	"github.com/magpieiq/backend/internal/infrastructure/logger"
	"github.com/magpieiq/backend/internal/infrastructure/telemetry"
	"github.com/magpieiq/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// serverName names the HTTP server on request spans
const serverName = "magpie-api"

// NewEngine builds the gin engine with the global middleware chain.
// mp and tp may be nil, in which case HTTP metrics or spans are skipped.
func NewEngine(cfg config.HTTPConfig, log *zap.Logger, mp *telemetry.MeterProvider, tp *telemetry.TracerProvider) (*gin.Engine, error) {
	engine := gin.New()
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			return nil, err
		}
	} else if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	engine.Use(middleware.RequestID())
	if tp.IsEnabled() {
		engine.Use(middleware.Tracing(serverName, tp.Provider()))
		engine.Use(middleware.SpanAttributes())
	}
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.HTTPMetrics(mp))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	if cfg.RateLimitEnabled && cfg.RateLimitRequests > 0 {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)))
	}
	return engine, nil
}
