package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/magpieiq/backend/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGenerateCatalog(t *testing.T) {
	cat := GenerateCatalog(7, 20, 10)
	require.Len(t, cat.Products, 20)
	require.Len(t, cat.Orders, 10)

	ids := make(map[int]bool)
	for _, p := range cat.Products {
		ids[p.ProductID] = true
		assert.NotEmpty(t, p.Name)
		assert.GreaterOrEqual(t, p.Rating, 1.0)
		assert.LessOrEqual(t, p.Rating, 5.0)
	}
	for _, o := range cat.Orders {
		assert.NotEmpty(t, o.Items)
		for _, item := range o.Items {
			assert.True(t, ids[item.ProductID], "order %d references unknown product %d", o.OrderID, item.ProductID)
		}
	}

	assert.Equal(t, cat, GenerateCatalog(7, 20, 10))
}

func TestGenerateCatalog_NoProducts(t *testing.T) {
	cat := GenerateCatalog(1, 0, 3)
	require.Len(t, cat.Orders, 3)
	for _, o := range cat.Orders {
		assert.Empty(t, o.Items)
	}
}

func TestServer(t *testing.T) {
	cat := GenerateCatalog(3, 5, 2)

	t.Run("serves both feeds", func(t *testing.T) {
		engine := NewServer(cat, ServerOptions{}, zap.NewNop())

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var products []integration.FeedProduct
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
		assert.Equal(t, cat.Products, products)

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"order_id":1001`)
	})

	t.Run("fails when the roll lands under the rate", func(t *testing.T) {
		engine := NewServer(cat, ServerOptions{FailRate: 0.5, Roll: func() float64 { return 0.1 }}, zap.NewNop())

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
