package ecommerce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/magpieiq/backend/internal/domain/integration"
	"github.com/magpieiq/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const productsJSON = `[
  {"product_id": 1, "name": "Apples", "description": "Crisp", "price": 2.5, "unit": "kg",
   "image": "https://img/1.png", "discount": 0, "availability": true, "brand": "Orchard",
   "category": "Fruit", "rating": 4.2},
  {"product_id": 2, "name": "Bread", "price": 3, "category": "Bakery", "rating": 3.9}
]`

const ordersJSON = `[
  {"order_id": 101, "user_id": 7, "items": [{"product_id": 1, "quantity": 2}],
   "total_price": 5, "status": "pending"}
]`

func createMockFeedServer(t *testing.T, productsStatus, ordersStatus int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/products":
			w.WriteHeader(productsStatus)
			_, _ = w.Write([]byte(productsJSON))
		case "/api/orders":
			w.WriteHeader(ordersStatus)
			_, _ = w.Write([]byte(ordersJSON))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func feedConfig(baseURL string) config.FeedConfig {
	return config.FeedConfig{
		BaseURL:            baseURL + "/api",
		ProductsPath:       "/products",
		OrdersPath:         "/orders",
		Timeout:            5 * time.Second,
		MaxResponseBytes:   1 << 20,
		BreakerMaxFailures: 3,
		BreakerOpenTimeout: time.Minute,
	}
}

func newTestFeedClient(t *testing.T, cfg config.FeedConfig, opts ...FeedClientOption) *FeedClient {
	t.Helper()
	client, err := NewFeedClient(cfg, zap.NewNop(), opts...)
	require.NoError(t, err)
	return client
}

func TestNewFeedClient_RequiresBaseURL(t *testing.T) {
	_, err := NewFeedClient(config.FeedConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestFeedClient_FetchCatalogAndOrders(t *testing.T) {
	server := createMockFeedServer(t, http.StatusOK, http.StatusOK)
	client := newTestFeedClient(t, feedConfig(server.URL))

	snap, err := client.FetchCatalogAndOrders(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Products, 2)
	p := snap.Products[0]
	assert.Equal(t, "1", p.ExternalID())
	assert.Equal(t, "Apples", p.Name)
	assert.Equal(t, 2.5, p.Price)
	assert.Equal(t, "https://img/1.png", p.Image)
	assert.True(t, p.Availability)
	assert.Equal(t, 4.2, p.Rating)

	require.Len(t, snap.Orders, 1)
	o := snap.Orders[0]
	assert.Equal(t, "101", o.SourceID())
	assert.Equal(t, "7", o.CustomerRef())
	assert.Equal(t, []integration.FeedOrderItem{{ProductID: 1, Quantity: 2}}, o.Items)
	assert.Equal(t, "closed", client.BreakerState())
}

func TestFeedClient_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name        string
		products    int
		orders      int
		wantMessage string
	}{
		{"products fail", http.StatusInternalServerError, http.StatusOK, "failed to fetch data: products 500, orders 200"},
		{"orders fail", http.StatusOK, http.StatusServiceUnavailable, "failed to fetch data: products 200, orders 503"},
		{"both fail", http.StatusBadGateway, http.StatusNotFound, "failed to fetch data: products 502, orders 404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := createMockFeedServer(t, tt.products, tt.orders)
			client := newTestFeedClient(t, feedConfig(server.URL))

			snap, err := client.FetchCatalogAndOrders(context.Background())
			assert.Nil(t, snap)
			require.Error(t, err)
			assert.Equal(t, tt.wantMessage, err.Error())
			assert.ErrorIs(t, err, integration.ErrFetchFailed)

			var fetchErr *integration.FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.products, fetchErr.ProductsStatus)
			assert.Equal(t, tt.orders, fetchErr.OrdersStatus)
		})
	}
}

func TestFeedClient_TransportErrorReportsZeroStatus(t *testing.T) {
	server := createMockFeedServer(t, http.StatusOK, http.StatusOK)
	cfg := feedConfig(server.URL)
	server.Close()

	_, err := newTestFeedClient(t, cfg).FetchCatalogAndOrders(context.Background())
	require.Error(t, err)

	var fetchErr *integration.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Zero(t, fetchErr.ProductsStatus)
	assert.Zero(t, fetchErr.OrdersStatus)
	assert.NotNil(t, fetchErr.Cause)
}

func TestFeedClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/orders") {
			_, _ = w.Write([]byte(`{"not": "a list"`))
			return
		}
		_, _ = w.Write([]byte(productsJSON))
	}))
	defer server.Close()

	_, err := newTestFeedClient(t, feedConfig(server.URL)).FetchCatalogAndOrders(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, integration.ErrFetchFailed)
	assert.Contains(t, err.Error(), "products 200, orders 200")
}

func TestFeedClient_ResponseSizeLimit(t *testing.T) {
	server := createMockFeedServer(t, http.StatusOK, http.StatusOK)
	cfg := feedConfig(server.URL)
	cfg.MaxResponseBytes = 64

	_, err := newTestFeedClient(t, cfg).FetchCatalogAndOrders(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 64 bytes")
}

func TestFeedClient_NullBodiesBecomeEmptyLists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`null`))
	}))
	defer server.Close()

	snap, err := newTestFeedClient(t, feedConfig(server.URL)).FetchCatalogAndOrders(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.Products)
	assert.NotNil(t, snap.Orders)
}

func TestFeedClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var transitions []string
	client := newTestFeedClient(t, feedConfig(server.URL), WithBreakerStateFunc(func(_, from, to string) {
		transitions = append(transitions, from+"->"+to)
	}))

	for i := 0; i < 3; i++ {
		_, err := client.FetchCatalogAndOrders(context.Background())
		assert.ErrorIs(t, err, integration.ErrFetchFailed)
	}
	assert.Equal(t, "open", client.BreakerState())
	assert.Equal(t, []string{"closed->open"}, transitions)

	before := hits.Load()
	_, err := client.FetchCatalogAndOrders(context.Background())
	assert.ErrorIs(t, err, integration.ErrFeedUnavailable)
	assert.Equal(t, before, hits.Load())
}

func TestFeedClient_CancelledContext(t *testing.T) {
	server := createMockFeedServer(t, http.StatusOK, http.StatusOK)
	client := newTestFeedClient(t, feedConfig(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		_, err := client.FetchCatalogAndOrders(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", client.BreakerState())
}
