package ingest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/magpieiq/backend/internal/domain/commerce"
	"github.com/magpieiq/backend/internal/domain/integration"
	"github.com/magpieiq/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// memProductRepo is an in-memory commerce.ProductRepository
type memProductRepo struct {
	mu       sync.Mutex
	byExtID  map[string]commerce.Product
	saveErr  error
	failOnID string
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{byExtID: map[string]commerce.Product{}}
}

func (r *memProductRepo) FindByExternalID(_ context.Context, externalID string) (*commerce.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byExtID[externalID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (r *memProductRepo) FindAll(_ context.Context) ([]commerce.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]commerce.Product, 0, len(r.byExtID))
	for _, p := range r.byExtID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, nil
}

func (r *memProductRepo) Save(_ context.Context, p *commerce.Product) error {
	if r.saveErr != nil && (r.failOnID == "" || r.failOnID == p.ExternalID) {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byExtID[p.ExternalID] = *p
	return nil
}

func (r *memProductRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byExtID)), nil
}

// memOrderRepo is an in-memory commerce.OrderRepository
type memOrderRepo struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]commerce.Order
	createErr error
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{byID: map[uuid.UUID]commerce.Order{}}
}

func (r *memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*commerce.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &o, nil
}

func (r *memOrderRepo) FindByExternalID(_ context.Context, externalID string) (*commerce.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.byID {
		if o.ExternalIDValue() == externalID {
			return &o, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memOrderRepo) Create(_ context.Context, o *commerce.Order) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if o.ExternalID != nil && existing.ExternalIDValue() == *o.ExternalID {
			return errors.New("duplicate external id")
		}
	}
	r.byID[o.ID] = *o
	return nil
}

func (r *memOrderRepo) Update(_ context.Context, o *commerce.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[o.ID]
	if !ok {
		return shared.ErrNotFound
	}
	items := existing.Items
	existing = *o
	existing.Items = items
	r.byID[o.ID] = existing
	return nil
}

func (r *memOrderRepo) ReplaceItems(_ context.Context, orderID uuid.UUID, items []commerce.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[orderID]
	if !ok {
		return shared.ErrNotFound
	}
	o.Items = append([]commerce.OrderItem(nil), items...)
	r.byID[orderID] = o
	return nil
}

func (r *memOrderRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byID)), nil
}

func (r *memOrderRepo) all() []commerce.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]commerce.Order, 0, len(r.byID))
	for _, o := range r.byID {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalIDValue() < out[j].ExternalIDValue() })
	return out
}

// MockFeedSource is a mock implementation of integration.FeedSource
type MockFeedSource struct {
	mock.Mock
}

func (m *MockFeedSource) FetchCatalogAndOrders(ctx context.Context) (*integration.FeedSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.FeedSnapshot), args.Error(1)
}

// MockStoreProbe is a mock implementation of StoreProbe
type MockStoreProbe struct {
	mock.Mock
}

func (m *MockStoreProbe) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// fixedRandom replays a fixed IntN sequence and never reorders on Shuffle
type fixedRandom struct {
	values []int
	next   int
}

func (f *fixedRandom) IntN(n int) int {
	if len(f.values) == 0 {
		return 0
	}
	v := f.values[f.next%len(f.values)]
	f.next++
	if v >= n {
		return n - 1
	}
	return v
}

func (f *fixedRandom) Shuffle(int, func(i, j int)) {}

var (
	_ commerce.ProductRepository = (*memProductRepo)(nil)
	_ commerce.OrderRepository   = (*memOrderRepo)(nil)
	_ integration.FeedSource     = (*MockFeedSource)(nil)
	_ StoreProbe                 = (*MockStoreProbe)(nil)
	_ Randomizer                 = (*fixedRandom)(nil)
)

func feedProducts() []integration.FeedProduct {
	return []integration.FeedProduct{
		{ProductID: 1, Name: "Apples", Price: 2.5, Unit: "kg", Category: "Fruit", Brand: "Orchard", Rating: 4.2, Availability: true},
		{ProductID: 2, Name: "Bread", Price: 3, Unit: "loaf", Category: "Bakery", Brand: "Mill", Rating: 3.9, Availability: true},
		{ProductID: 3, Name: "Cheese", Price: 7.25, Unit: "pc", Category: "Dairy", Brand: "Alp", Rating: 4.8, Availability: false, Discount: 0.5},
	}
}

func feedOrders() []integration.FeedOrder {
	return []integration.FeedOrder{
		{OrderID: 101, UserID: 7, Status: "pending", Items: []integration.FeedOrderItem{{ProductID: 1, Quantity: 2}}},
		{OrderID: 102, UserID: 8, Status: "Delivered"},
	}
}

func decimalOf(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}
