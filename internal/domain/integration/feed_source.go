package integration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Feed Errors
// ---------------------------------------------------------------------------

var (
	ErrFetchFailed       = errors.New("integration: feed fetch failed")
	ErrFeedUnavailable   = errors.New("integration: feed temporarily unavailable")
	ErrFeedInvalidRecord = errors.New("integration: invalid feed record")
)

// FetchError is returned when either feed endpoint answers with a non-success
// status. A zero status means the request never produced a response.
type FetchError struct {
	ProductsStatus int
	OrdersStatus   int
	Cause          error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("failed to fetch data: products %d, orders %d", e.ProductsStatus, e.OrdersStatus)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap lets callers match both ErrFetchFailed and the transport cause.
func (e *FetchError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrFetchFailed}
	}
	return []error{ErrFetchFailed, e.Cause}
}

// ---------------------------------------------------------------------------
// Feed Records
// ---------------------------------------------------------------------------

// FeedProduct is a catalog record as served by the storefront feed.
type FeedProduct struct {
	ProductID    int     `json:"product_id" validate:"required,gt=0"`
	Name         string  `json:"name" validate:"required"`
	Description  string  `json:"description"`
	Price        float64 `json:"price" validate:"gte=0"`
	Unit         string  `json:"unit"`
	Image        string  `json:"image"`
	Discount     float64 `json:"discount" validate:"gte=0"`
	Availability bool    `json:"availability"`
	Brand        string  `json:"brand"`
	Category     string  `json:"category"`
	Rating       float64 `json:"rating" validate:"gte=0,lte=5"`
}

// ExternalID returns the catalog key used for reconciliation.
func (p FeedProduct) ExternalID() string {
	return strconv.Itoa(p.ProductID)
}

// FeedOrderItem is a line of a feed order.
type FeedOrderItem struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// FeedOrder is an order record as served by the storefront feed.
type FeedOrder struct {
	OrderID    int             `json:"order_id"`
	UserID     int             `json:"user_id"`
	Items      []FeedOrderItem `json:"items"`
	TotalPrice float64         `json:"total_price"`
	Status     string          `json:"status"`
}

// SourceID returns the order key used for identity derivation.
func (o FeedOrder) SourceID() string {
	return strconv.Itoa(o.OrderID)
}

// CustomerRef returns the customer reference stored on materialized orders.
func (o FeedOrder) CustomerRef() string {
	if o.UserID == 0 {
		return ""
	}
	return strconv.Itoa(o.UserID)
}

// FeedSnapshot is the result of a successful fetch: both feeds, never one alone.
type FeedSnapshot struct {
	Products []FeedProduct
	Orders   []FeedOrder
}

// ---------------------------------------------------------------------------
// FeedSource Port
// ---------------------------------------------------------------------------

// FeedSource pulls a full snapshot of the upstream catalog and order feeds.
// Implementations must return either a complete snapshot or an error, never a
// partial result.
type FeedSource interface {
	FetchCatalogAndOrders(ctx context.Context) (*FeedSnapshot, error)
}
