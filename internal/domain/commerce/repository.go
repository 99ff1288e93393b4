package commerce

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByExternalID returns shared.ErrNotFound when no product carries the id
	FindByExternalID(ctx context.Context, externalID string) (*Product, error)

	// FindAll returns every product ordered by external id
	FindAll(ctx context.Context) ([]Product, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error

	Count(ctx context.Context) (int64, error)
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID loads an order with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByExternalID returns shared.ErrNotFound when no order carries the id
	FindByExternalID(ctx context.Context, externalID string) (*Order, error)

	// Create inserts the order row and its items
	Create(ctx context.Context, order *Order) error

	// Update rewrites the order row only
	Update(ctx context.Context, order *Order) error

	// ReplaceItems deletes every item of the order and inserts items
	ReplaceItems(ctx context.Context, orderID uuid.UUID, items []OrderItem) error

	Count(ctx context.Context) (int64, error)
}
