package ecommerce

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/magpieiq/backend/internal/domain/integration"
	"github.com/magpieiq/backend/internal/infrastructure/config"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const breakerName = "storefront-feed"

// errUnexpectedStatus marks a response outside 2xx; the status itself is
// carried by the FetchError.
var errUnexpectedStatus = errors.New("unexpected status")

// BreakerStateFunc is notified on every circuit breaker transition
type BreakerStateFunc func(name, from, to string)

// FeedClientOption configures a FeedClient
type FeedClientOption func(*FeedClient)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) FeedClientOption {
	return func(c *FeedClient) { c.httpClient = client }
}

// WithBreakerStateFunc registers a breaker transition callback, e.g. for metrics
func WithBreakerStateFunc(fn BreakerStateFunc) FeedClientOption {
	return func(c *FeedClient) { c.onState = fn }
}

// FeedClient fetches the storefront product and order feeds.
// It implements integration.FeedSource.
type FeedClient struct {
	productsURL      string
	ordersURL        string
	maxResponseBytes int64
	httpClient       *http.Client
	breaker          *gobreaker.CircuitBreaker[*integration.FeedSnapshot]
	onState          BreakerStateFunc
	logger           *zap.Logger
}

// NewFeedClient creates a FeedClient for the configured base URL
func NewFeedClient(cfg config.FeedConfig, logger *zap.Logger, opts ...FeedClientOption) (*FeedClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("feed: base url is required")
	}
	productsURL, err := url.JoinPath(cfg.BaseURL, cfg.ProductsPath)
	if err != nil {
		return nil, fmt.Errorf("feed: invalid products url: %w", err)
	}
	ordersURL, err := url.JoinPath(cfg.BaseURL, cfg.OrdersPath)
	if err != nil {
		return nil, fmt.Errorf("feed: invalid orders url: %w", err)
	}

	c := &FeedClient{
		productsURL:      productsURL,
		ordersURL:        ordersURL,
		maxResponseBytes: cfg.MaxResponseBytes,
		httpClient:       &http.Client{Timeout: cfg.Timeout},
		logger:           logger,
	}
	if c.maxResponseBytes <= 0 {
		c.maxResponseBytes = 10 << 20
	}
	for _, opt := range opts {
		opt(c)
	}

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	c.breaker = gobreaker.NewCircuitBreaker[*integration.FeedSnapshot](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// a cancelled run says nothing about upstream health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("Feed circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if c.onState != nil {
				c.onState(name, from.String(), to.String())
			}
		},
	})
	return c, nil
}

// FetchCatalogAndOrders requests both feeds concurrently and returns them
// together, or a *integration.FetchError. While the breaker is open it fails
// fast with integration.ErrFeedUnavailable.
func (c *FeedClient) FetchCatalogAndOrders(ctx context.Context) (*integration.FeedSnapshot, error) {
	snapshot, err := c.breaker.Execute(func() (*integration.FeedSnapshot, error) {
		return c.fetch(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", integration.ErrFeedUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// BreakerState returns the current breaker state name
func (c *FeedClient) BreakerState() string {
	return c.breaker.State().String()
}

func (c *FeedClient) fetch(ctx context.Context) (*integration.FeedSnapshot, error) {
	var (
		products                     []integration.FeedProduct
		orders                       []integration.FeedOrder
		productsStatus, ordersStatus int
		productsErr, ordersErr       error
	)

	start := time.Now()
	// both requests always run to completion so each side reports its status
	var g errgroup.Group
	g.Go(func() error {
		productsStatus, productsErr = c.get(ctx, c.productsURL, &products)
		return productsErr
	})
	g.Go(func() error {
		ordersStatus, ordersErr = c.get(ctx, c.ordersURL, &orders)
		return ordersErr
	})

	if err := g.Wait(); err != nil {
		fetchErr := &integration.FetchError{ProductsStatus: productsStatus, OrdersStatus: ordersStatus}
		for _, e := range []error{productsErr, ordersErr} {
			if e != nil && !errors.Is(e, errUnexpectedStatus) {
				fetchErr.Cause = e
				break
			}
		}
		c.logger.Warn("Feed fetch failed",
			zap.Int("products_status", productsStatus),
			zap.Int("orders_status", ordersStatus),
			zap.Error(fetchErr),
		)
		return nil, fetchErr
	}

	c.logger.Debug("Feed fetched",
		zap.Int("products", len(products)),
		zap.Int("orders", len(orders)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if products == nil {
		products = []integration.FeedProduct{}
	}
	if orders == nil {
		orders = []integration.FeedOrder{}
	}
	return &integration.FeedSnapshot{Products: products, Orders: orders}, nil
}

// get decodes the JSON body at rawURL into dst and returns the HTTP status,
// zero when no response arrived.
func (c *FeedClient) get(ctx context.Context, rawURL string, dst any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("feed: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("%w %d from %s", errUnexpectedStatus, resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("feed: failed to read response: %w", err)
	}
	if int64(len(body)) > c.maxResponseBytes {
		return resp.StatusCode, fmt.Errorf("feed: response from %s exceeds %d bytes", rawURL, c.maxResponseBytes)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return resp.StatusCode, fmt.Errorf("feed: failed to decode %s: %w", rawURL, err)
	}
	return resp.StatusCode, nil
}

var _ integration.FeedSource = (*FeedClient)(nil)
