package main

import (
	"math/rand/v2"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/magpieiq/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ServerOptions shape how the mock feed misbehaves
type ServerOptions struct {
	// FailRate is the probability in [0, 1] that a request answers 503
	FailRate float64
	// Roll draws the failure decision; nil uses math/rand/v2
	Roll func() float64
}

// NewServer serves the catalog on /products and /orders
func NewServer(cat Catalog, opts ServerOptions, log *zap.Logger) *gin.Engine {
	roll := opts.Roll
	if roll == nil {
		roll = rand.Float64
	}
	flaky := func(c *gin.Context) {
		if opts.FailRate > 0 && roll() < opts.FailRate {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "feed temporarily unavailable"})
			return
		}
		c.Next()
	}

	engine := gin.New()
	engine.Use(logger.Recovery(log), logger.GinMiddleware(log), flaky)
	engine.GET("/products", func(c *gin.Context) {
		c.JSON(http.StatusOK, cat.Products)
	})
	engine.GET("/orders", func(c *gin.Context) {
		c.JSON(http.StatusOK, cat.Orders)
	})
	return engine
}
