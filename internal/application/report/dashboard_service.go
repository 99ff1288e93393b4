package report

import (
	"context"
	"fmt"
	"time"

	"github.com/magpieiq/backend/internal/domain/report"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// TopProductsLimit is the size of the top products panel
	TopProductsLimit = 5
	// RecentOrdersLimit is the size of the recent orders table
	RecentOrdersLimit = 5
	// BreakdownLimit caps the revenue breakdowns
	BreakdownLimit = 10
	// WindowDays is the length of a comparison window
	WindowDays = 7

	guestCustomer = "Guest"
)

// Palette colors breakdown slices by rank
var Palette = []string{
	"#F6C95F", "#EDB85A", "#F8DE97", "#F8D978", "#E0A43A",
	"#C98A2B", "#FBE7B5", "#D9B25F", "#F2C46D", "#B07A1F",
}

// DashboardCache stores the assembled dashboard between syncs
type DashboardCache interface {
	// Get returns ok=false on a miss
	Get(ctx context.Context) (*report.Dashboard, bool, error)
	Set(ctx context.Context, dashboard *report.Dashboard, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// DashboardOption configures a DashboardService
type DashboardOption func(*DashboardService)

// WithCache serves GetDashboard through cache for ttl
func WithCache(cache DashboardCache, ttl time.Duration) DashboardOption {
	return func(s *DashboardService) {
		s.cache = cache
		s.ttl = ttl
	}
}

// WithClock replaces the wall clock, for tests
func WithClock(now func() time.Time) DashboardOption {
	return func(s *DashboardService) { s.now = now }
}

// DashboardService computes the dashboard read models. It never writes.
type DashboardService struct {
	repo   report.DashboardRepository
	cache  DashboardCache
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(repo report.DashboardRepository, logger *zap.Logger, opts ...DashboardOption) *DashboardService {
	s := &DashboardService{
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Windows are the two comparison windows, as half-open [start, end) ranges of
// whole UTC days. Current ends with today.
type Windows struct {
	PreviousStart time.Time
	CurrentStart  time.Time
	End           time.Time
}

// WindowsAt returns the comparison windows for the day containing now
func WindowsAt(now time.Time) Windows {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return Windows{
		PreviousStart: today.AddDate(0, 0, -2*WindowDays+1),
		CurrentStart:  today.AddDate(0, 0, -WindowDays+1),
		End:           today.AddDate(0, 0, 1),
	}
}

// CurrentDays lists the days of the current window as YYYY-MM-DD
func (w Windows) CurrentDays() []string {
	days := make([]string, WindowDays)
	for i := range days {
		days[i] = dayKey(w.CurrentStart.AddDate(0, 0, i))
	}
	return days
}

// CalcDelta returns the percentage change from previous to current.
// A zero previous gives 100 for any growth and 0 otherwise.
func CalcDelta(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

// GetMetrics returns the store-wide totals
func (s *DashboardService) GetMetrics(ctx context.Context) (*report.Metrics, error) {
	totals, err := s.repo.GetStoreTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("store totals: %w", err)
	}
	aov := decimal.Zero
	if totals.OrderCount > 0 {
		aov = totals.TotalRevenue.Div(decimal.NewFromInt(totals.OrderCount)).Round(2)
	}
	return &report.Metrics{
		TotalRevenue:  totals.TotalRevenue,
		TotalOrders:   totals.OrderCount,
		AvgOrderValue: aov,
		AvgRating:     totals.AvgRating.Round(2),
	}, nil
}

type dayTotals struct {
	revenue decimal.Decimal
	orders  int64
}

func (d dayTotals) aov() decimal.Decimal {
	if d.orders == 0 {
		return decimal.Zero
	}
	return d.revenue.Div(decimal.NewFromInt(d.orders))
}

// GetMetricsWithDelta compares the last 7 days with the 7 before them
func (s *DashboardService) GetMetricsWithDelta(ctx context.Context) ([]report.MetricWithDelta, error) {
	w := WindowsAt(s.now())

	points, err := s.repo.GetOrderPoints(ctx, w.PreviousStart, w.End)
	if err != nil {
		return nil, fmt.Errorf("order points: %w", err)
	}
	totals, err := s.repo.GetStoreTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("store totals: %w", err)
	}

	days := w.CurrentDays()
	daily := make(map[string]*dayTotals, len(days))
	for _, d := range days {
		daily[d] = &dayTotals{revenue: decimal.Zero}
	}
	current := dayTotals{revenue: decimal.Zero}
	previous := dayTotals{revenue: decimal.Zero}

	for _, p := range points {
		if p.CreatedAt.Before(w.CurrentStart) {
			previous.revenue = previous.revenue.Add(p.TotalAmount)
			previous.orders++
			continue
		}
		current.revenue = current.revenue.Add(p.TotalAmount)
		current.orders++
		if d, ok := daily[dayKey(p.CreatedAt)]; ok {
			d.revenue = d.revenue.Add(p.TotalAmount)
			d.orders++
		}
	}

	chart := func(value func(dayTotals) float64) []report.ChartPoint {
		out := make([]report.ChartPoint, len(days))
		for i, d := range days {
			out[i] = report.ChartPoint{Date: d, Value: value(*daily[d])}
		}
		return out
	}
	rating := round2(totals.AvgRating)

	return []report.MetricWithDelta{
		metricWithDelta(report.MetricRevenue, "Total Revenue", report.FormatCurrency,
			round2(current.revenue), round2(previous.revenue),
			chart(func(d dayTotals) float64 { return round2(d.revenue) })),
		metricWithDelta(report.MetricOrders, "Total Orders", report.FormatNumber,
			float64(current.orders), float64(previous.orders),
			chart(func(d dayTotals) float64 { return float64(d.orders) })),
		metricWithDelta(report.MetricAvgOrderValue, "Avg Order Value", report.FormatCurrency,
			round2(current.aov()), round2(previous.aov()),
			chart(func(d dayTotals) float64 { return round2(d.aov()) })),
		metricWithDelta(report.MetricAvgRating, "Avg Rating", report.FormatRating,
			rating, rating,
			chart(func(dayTotals) float64 { return rating })),
	}, nil
}

func metricWithDelta(key report.MetricKey, label string, format report.MetricFormat, value, previous float64, chart []report.ChartPoint) report.MetricWithDelta {
	return report.MetricWithDelta{
		Key:           key,
		Label:         label,
		Value:         value,
		PreviousValue: previous,
		Delta:         roundFloat(CalcDelta(value, previous)),
		Format:        format,
		ChartData:     chart,
	}
}

// GetStatusDistribution counts orders by status
func (s *DashboardService) GetStatusDistribution(ctx context.Context) ([]report.StatusCount, error) {
	counts, err := s.repo.GetStatusDistribution(ctx)
	if err != nil {
		return nil, fmt.Errorf("status distribution: %w", err)
	}
	return nonNil(counts), nil
}

// GetCategoryDistribution counts products by category
func (s *DashboardService) GetCategoryDistribution(ctx context.Context) ([]report.CategoryCount, error) {
	counts, err := s.repo.GetCategoryDistribution(ctx)
	if err != nil {
		return nil, fmt.Errorf("category distribution: %w", err)
	}
	return nonNil(counts), nil
}

// GetRevenueInsights breaks down the trailing week of non-cancelled revenue
func (s *DashboardService) GetRevenueInsights(ctx context.Context) (*report.RevenueInsights, error) {
	w := WindowsAt(s.now())
	lines, err := s.repo.GetRevenueLines(ctx, w.CurrentStart, w.End)
	if err != nil {
		return nil, fmt.Errorf("revenue lines: %w", err)
	}
	insights := BuildRevenueInsights(lines, w.CurrentDays())
	return &insights, nil
}

// GetTopProducts returns the most expensive products
func (s *DashboardService) GetTopProducts(ctx context.Context) ([]report.TopProduct, error) {
	products, err := s.repo.GetTopProductsByPrice(ctx, TopProductsLimit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	return nonNil(products), nil
}

// GetRecentOrders returns the newest orders
func (s *DashboardService) GetRecentOrders(ctx context.Context) ([]report.RecentOrder, error) {
	orders, err := s.repo.GetRecentOrders(ctx, RecentOrdersLimit)
	if err != nil {
		return nil, fmt.Errorf("recent orders: %w", err)
	}
	for i := range orders {
		if orders[i].Customer == "" {
			orders[i].Customer = guestCustomer
		}
	}
	return nonNil(orders), nil
}

// GetLastSyncTime returns the latest write of the sync job, nil on an empty store
func (s *DashboardService) GetLastSyncTime(ctx context.Context) (*time.Time, error) {
	t, err := s.repo.GetLastSyncTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("last sync time: %w", err)
	}
	return t, nil
}

// GetDashboard assembles every panel, serving from the cache when one is set.
// Cache failures are logged and fall through to the store.
func (s *DashboardService) GetDashboard(ctx context.Context) (*report.Dashboard, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			s.logger.Warn("Dashboard cache read failed", zap.Error(err))
		case ok:
			return cached, nil
		}
	}

	d, err := s.buildDashboard(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, d, s.ttl); err != nil {
			s.logger.Warn("Dashboard cache write failed", zap.Error(err))
		}
	}
	return d, nil
}

func (s *DashboardService) buildDashboard(ctx context.Context) (*report.Dashboard, error) {
	d := &report.Dashboard{GeneratedAt: s.now()}

	metrics, err := s.GetMetrics(ctx)
	if err != nil {
		return nil, err
	}
	d.Metrics = *metrics

	if d.MetricsWithDelta, err = s.GetMetricsWithDelta(ctx); err != nil {
		return nil, err
	}
	if d.StatusDistribution, err = s.GetStatusDistribution(ctx); err != nil {
		return nil, err
	}
	if d.CategoryDistribution, err = s.GetCategoryDistribution(ctx); err != nil {
		return nil, err
	}
	revenue, err := s.GetRevenueInsights(ctx)
	if err != nil {
		return nil, err
	}
	d.Revenue = *revenue
	if d.TopProducts, err = s.GetTopProducts(ctx); err != nil {
		return nil, err
	}
	if d.RecentOrders, err = s.GetRecentOrders(ctx); err != nil {
		return nil, err
	}
	if d.LastSyncedAt, err = s.GetLastSyncTime(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func dayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func roundFloat(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
