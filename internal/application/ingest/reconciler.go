package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/magpieiq/backend/internal/domain/commerce"
	"github.com/magpieiq/backend/internal/domain/integration"
	"github.com/magpieiq/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReconcileResult counts the outcome of one catalog pass. Written holds
// the records that were stored, in feed order; rejected records are absent.
type ReconcileResult struct {
	Created int
	Updated int
	Failed  int
	Errors  []*ReconcileError
	Written []integration.FeedProduct
}

// Synced returns the number of products written.
func (r ReconcileResult) Synced() int {
	return r.Created + r.Updated
}

// Reconciler upserts feed products into the catalog keyed by external id.
type Reconciler struct {
	products commerce.ProductRepository
	probe    StoreProbe
	validate *validator.Validate
	logger   *zap.Logger
}

// NewReconciler creates a Reconciler. probe may be nil.
func NewReconciler(products commerce.ProductRepository, probe StoreProbe, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		products: products,
		probe:    probe,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// ReconcileProducts creates absent products and overwrites present ones, in
// feed order. A bad record is counted and skipped; only ErrStoreUnavailable
// stops the pass.
func (r *Reconciler) ReconcileProducts(ctx context.Context, feed []integration.FeedProduct, syncedAt time.Time) (ReconcileResult, error) {
	var result ReconcileResult
	for _, fp := range feed {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		created, err := r.upsert(ctx, fp, syncedAt)
		if err != nil {
			if errors.Is(err, ErrStoreUnavailable) {
				return result, err
			}
			if unavailable := checkStore(ctx, r.probe, err); unavailable != nil {
				return result, unavailable
			}
			rerr := &ReconcileError{ExternalID: fp.ExternalID(), Err: err}
			result.Failed++
			result.Errors = append(result.Errors, rerr)
			r.logger.Warn("Product reconcile failed",
				zap.String("external_id", rerr.ExternalID),
				zap.Error(err),
			)
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
		result.Written = append(result.Written, fp)
	}
	return result, nil
}

func (r *Reconciler) upsert(ctx context.Context, fp integration.FeedProduct, syncedAt time.Time) (bool, error) {
	if err := r.validate.Struct(fp); err != nil {
		return false, fmt.Errorf("%w: %w", integration.ErrFeedInvalidRecord, err)
	}
	attrs := attributesFromFeed(fp)

	existing, err := r.products.FindByExternalID(ctx, fp.ExternalID())
	switch {
	case errors.Is(err, shared.ErrNotFound):
		p, err := commerce.NewProduct(fp.ExternalID(), attrs, syncedAt)
		if err != nil {
			return false, err
		}
		return true, r.products.Save(ctx, p)
	case err != nil:
		return false, err
	}

	if err := existing.Overwrite(attrs, syncedAt); err != nil {
		return false, err
	}
	return false, r.products.Save(ctx, existing)
}

func attributesFromFeed(fp integration.FeedProduct) commerce.ProductAttributes {
	return commerce.ProductAttributes{
		Name:        fp.Name,
		Description: fp.Description,
		Price:       decimal.NewFromFloat(fp.Price),
		Unit:        fp.Unit,
		Category:    fp.Category,
		Brand:       fp.Brand,
		ImageURL:    fp.Image,
		Rating:      decimal.NewFromFloat(fp.Rating),
		Available:   fp.Availability,
		Discount:    decimal.NewFromFloat(fp.Discount),
	}
}

// checkStore pings the store after an unexpected error. A failing ping turns
// the error into ErrStoreUnavailable.
func checkStore(ctx context.Context, probe StoreProbe, cause error) error {
	if probe == nil || ctx.Err() != nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(cause, &domainErr) || errors.Is(cause, integration.ErrFeedInvalidRecord) {
		return nil
	}
	if err := probe.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, cause)
	}
	return nil
}
