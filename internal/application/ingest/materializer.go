package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/magpieiq/backend/internal/domain/commerce"
	"github.com/magpieiq/backend/internal/domain/integration"
	"github.com/magpieiq/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogSnapshot is the catalog as stored by this run: external ids in
// feed order with their fetch-time prices.
type CatalogSnapshot struct {
	IDs    []string
	Prices map[string]decimal.Decimal
}

// NewCatalogSnapshot indexes the products a run wrote. Pass only records
// the reconciler accepted; a rejected record must not price any order.
func NewCatalogSnapshot(feed []integration.FeedProduct) CatalogSnapshot {
	snap := CatalogSnapshot{
		IDs:    make([]string, 0, len(feed)),
		Prices: make(map[string]decimal.Decimal, len(feed)),
	}
	for _, fp := range feed {
		id := fp.ExternalID()
		if _, seen := snap.Prices[id]; !seen {
			snap.IDs = append(snap.IDs, id)
		}
		snap.Prices[id] = decimal.NewFromFloat(fp.Price)
	}
	return snap
}

// RunContext carries the per-run values shared by every materialization.
type RunContext struct {
	StartedAt  time.Time
	Multiplier int
}

// MaterializeResult lists what one source order produced.
type MaterializeResult struct {
	Orders []*commerce.Order
	Errors []*MaterializeError
}

// Materializer turns a feed order into one or more persisted orders.
// Every expansion is written in its own unit of work.
type Materializer struct {
	uow    UnitOfWork
	probe  StoreProbe
	cfg    Config
	rng    Randomizer
	logger *zap.Logger
}

// NewMaterializer creates a Materializer. probe may be nil.
func NewMaterializer(uow UnitOfWork, probe StoreProbe, cfg Config, rng Randomizer, logger *zap.Logger) *Materializer {
	return &Materializer{uow: uow, probe: probe, cfg: cfg, rng: rng, logger: logger}
}

// plannedLine is a line item chosen before the transaction opens.
type plannedLine struct {
	externalID string
	quantity   int
	unitPrice  decimal.Decimal
}

// plannedOrder holds every random draw of one expansion, so the draws do
// not depend on what the store returns.
type plannedOrder struct {
	identity string
	status   commerce.OrderStatus
	placedAt time.Time
	lines    []plannedLine
}

// Materialize writes run.Multiplier expansions of src. A failed expansion is
// rolled back and reported in the result; ErrStoreUnavailable is returned and
// ends the call.
func (m *Materializer) Materialize(ctx context.Context, src integration.FeedOrder, catalog CatalogSnapshot, run RunContext) (MaterializeResult, error) {
	var result MaterializeResult
	expansions := max(run.Multiplier, 1)

	for i := 0; i < expansions; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		plan := m.plan(src, catalog, run, i)
		order, err := m.write(ctx, src, plan, run)
		if err != nil {
			if errors.Is(err, ErrStoreUnavailable) {
				return result, err
			}
			if unavailable := checkStore(ctx, m.probe, err); unavailable != nil {
				return result, unavailable
			}
			merr := &MaterializeError{SourceOrderID: src.SourceID(), Expansion: i, Err: err}
			result.Errors = append(result.Errors, merr)
			m.logger.Warn("Order materialization rolled back",
				zap.String("source_order_id", merr.SourceOrderID),
				zap.Int("expansion", i),
				zap.Error(err),
			)
			continue
		}
		result.Orders = append(result.Orders, order)
	}
	return result, nil
}

func (m *Materializer) plan(src integration.FeedOrder, catalog CatalogSnapshot, run RunContext, expansion int) plannedOrder {
	sourceID := src.SourceID()
	plan := plannedOrder{
		identity: m.cfg.Identity.OrderIdentity(sourceID, run.StartedAt, expansion),
		status:   m.cfg.Status.Assign(src, m.rng),
		placedAt: m.cfg.Placement.Place(sourceID, run.StartedAt, m.rng),
	}

	count := m.cfg.ItemCount.Draw(m.rng)
	ids := make([]string, len(catalog.IDs))
	copy(ids, catalog.IDs)
	m.rng.Shuffle(len(ids), func(a, b int) { ids[a], ids[b] = ids[b], ids[a] })
	if count > len(ids) {
		count = len(ids)
	}

	plan.lines = make([]plannedLine, 0, count)
	for _, id := range ids[:count] {
		plan.lines = append(plan.lines, plannedLine{
			externalID: id,
			quantity:   m.cfg.Quantity.Draw(m.rng),
			unitPrice:  catalog.Prices[id],
		})
	}
	return plan
}

func (m *Materializer) write(ctx context.Context, src integration.FeedOrder, plan plannedOrder, run RunContext) (*commerce.Order, error) {
	var written *commerce.Order
	err := m.uow.Execute(ctx, func(repos TransactionalRepositories) error {
		order, err := commerce.NewOrder(plan.identity, src.CustomerRef(), plan.status, plan.placedAt, run.StartedAt)
		if err != nil {
			return err
		}

		var existing *commerce.Order
		if m.cfg.Identity == IdentityBounded {
			existing, err = repos.OrderRepo().FindByExternalID(ctx, plan.identity)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			if existing != nil {
				order.ID = existing.ID
			}
		}

		for _, line := range plan.lines {
			product, err := repos.ProductRepo().FindByExternalID(ctx, line.externalID)
			if errors.Is(err, shared.ErrNotFound) {
				m.logger.Debug("Dropping line item for unpersisted product",
					zap.String("source_order_id", src.SourceID()),
					zap.String("product_external_id", line.externalID),
				)
				continue
			}
			if err != nil {
				return err
			}
			if err := order.AddItem(product.ID, line.quantity, line.unitPrice); err != nil {
				return err
			}
		}

		if existing == nil {
			if err := repos.OrderRepo().Create(ctx, order); err != nil {
				return err
			}
		} else {
			if err := repos.OrderRepo().Update(ctx, order); err != nil {
				return err
			}
			if err := repos.OrderRepo().ReplaceItems(ctx, order.ID, order.Items); err != nil {
				return err
			}
		}
		written = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return written, nil
}
