package commerce

import (
	"strings"
	"time"

	"github.com/magpieiq/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry mirrored from the storefront feed.
// It is keyed by ExternalID and is never deleted by the sync job.
type Product struct {
	shared.BaseEntity
	ExternalID   string
	Name         string
	Description  string
	Price        decimal.Decimal
	Unit         string
	Category     string
	Brand        string
	ImageURL     string
	Rating       decimal.Decimal
	Available    bool
	Discount     decimal.Decimal
	LastSyncedAt time.Time
}

// ProductAttributes carries the mutable fields a feed record may overwrite.
type ProductAttributes struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Unit        string
	Category    string
	Brand       string
	ImageURL    string
	Rating      decimal.Decimal
	Available   bool
	Discount    decimal.Decimal
}

// NewProduct creates a product stamped as synced at syncedAt.
func NewProduct(externalID string, attrs ProductAttributes, syncedAt time.Time) (*Product, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "Product external ID cannot be empty")
	}
	if err := validateAttributes(attrs); err != nil {
		return nil, err
	}

	p := &Product{
		BaseEntity: shared.NewBaseEntity(syncedAt, syncedAt),
		ExternalID: externalID,
	}
	p.apply(attrs)
	p.LastSyncedAt = syncedAt
	return p, nil
}

// Overwrite replaces every mutable field and bumps both the update and
// sync timestamps, even when nothing changed.
func (p *Product) Overwrite(attrs ProductAttributes, syncedAt time.Time) error {
	if err := validateAttributes(attrs); err != nil {
		return err
	}
	p.apply(attrs)
	p.UpdatedAt = syncedAt
	p.LastSyncedAt = syncedAt
	return nil
}

func (p *Product) apply(attrs ProductAttributes) {
	p.Name = attrs.Name
	p.Description = attrs.Description
	p.Price = attrs.Price
	p.Unit = attrs.Unit
	p.Category = attrs.Category
	p.Brand = attrs.Brand
	p.ImageURL = attrs.ImageURL
	p.Rating = attrs.Rating
	p.Available = attrs.Available
	p.Discount = attrs.Discount
}

var maxRating = decimal.NewFromInt(5)

func validateAttributes(attrs ProductAttributes) error {
	if strings.TrimSpace(attrs.Name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if attrs.Price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Product price cannot be negative")
	}
	if attrs.Rating.IsNegative() || attrs.Rating.GreaterThan(maxRating) {
		return shared.NewDomainError("INVALID_RATING", "Product rating must be between 0 and 5")
	}
	return nil
}
