package report

import (
	"fmt"
	"sort"

	"github.com/magpieiq/backend/internal/domain/report"
	"github.com/shopspring/decimal"
)

// revenueTally sums revenue per key. Keys are unique; labels are what the
// dashboard shows and may repeat across keys.
type revenueTally struct {
	total     decimal.Decimal
	byKey     map[string]decimal.Decimal
	labels    map[string]string
	qualifier map[string]string
	byDay     map[string]map[string]decimal.Decimal
}

func newRevenueTally() *revenueTally {
	return &revenueTally{
		total:     decimal.Zero,
		byKey:     map[string]decimal.Decimal{},
		labels:    map[string]string{},
		qualifier: map[string]string{},
		byDay:     map[string]map[string]decimal.Decimal{},
	}
}

// add books amount under key. qualifier tells apart keys sharing a label.
func (t *revenueTally) add(day, key, label, qualifier string, amount decimal.Decimal) {
	t.total = t.total.Add(amount)
	t.byKey[key] = t.byKey[key].Add(amount)
	t.labels[key] = label
	t.qualifier[key] = qualifier
	if t.byDay[day] == nil {
		t.byDay[day] = map[string]decimal.Decimal{}
	}
	t.byDay[day][key] = t.byDay[day][key].Add(amount)
}

// ranked returns the top keys by revenue, ties broken by label then key
func (t *revenueTally) ranked() []string {
	keys := make([]string, 0, len(t.byKey))
	for k := range t.byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := t.byKey[keys[i]], t.byKey[keys[j]]
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		if t.labels[keys[i]] != t.labels[keys[j]] {
			return t.labels[keys[i]] < t.labels[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > BreakdownLimit {
		keys = keys[:BreakdownLimit]
	}
	return keys
}

// names returns the display name of each key. A label shared by several
// ranked keys gets its qualifier appended.
func (t *revenueTally) names(keys []string) []string {
	seen := make(map[string]int, len(keys))
	for _, k := range keys {
		seen[t.labels[k]]++
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = t.labels[k]
		if seen[out[i]] > 1 && t.qualifier[k] != "" {
			out[i] = fmt.Sprintf("%s #%s", out[i], t.qualifier[k])
		}
	}
	return out
}

func (t *revenueTally) breakdown(keys, names []string) ([]report.BreakdownItem, map[string]string) {
	items := make([]report.BreakdownItem, len(keys))
	colors := make(map[string]string, len(keys))
	for i, k := range keys {
		pct := decimal.Zero
		if t.total.IsPositive() {
			pct = t.byKey[k].Div(t.total).Mul(decimal.NewFromInt(100))
		}
		color := Palette[i%len(Palette)]
		items[i] = report.BreakdownItem{
			Name:       names[i],
			Value:      round2(t.byKey[k]),
			Percentage: round2(pct),
			Color:      color,
		}
		colors[names[i]] = color
	}
	return items, colors
}

func (t *revenueTally) daily(days, keys, names []string) []report.DailyBreakdown {
	out := make([]report.DailyBreakdown, len(days))
	for i, d := range days {
		values := make(map[string]float64, len(keys))
		for j, k := range keys {
			values[names[j]] = round2(t.byDay[d][k])
		}
		out[i] = report.DailyBreakdown{Date: d, Values: values}
	}
	return out
}

// BuildRevenueInsights aggregates revenue lines by category and by product.
// Products are told apart by id, so two products sharing a name stay
// separate entries. Lines are expected to exclude cancelled orders already.
func BuildRevenueInsights(lines []report.RevenueLine, days []string) report.RevenueInsights {
	categories := newRevenueTally()
	products := newRevenueTally()
	for _, l := range lines {
		day := dayKey(l.CreatedAt)
		amount := l.Amount()
		categories.add(day, l.Category, l.Category, "", amount)
		products.add(day, l.ProductID.String(), l.ProductName, l.ProductExternalID, amount)
	}

	catKeys := categories.ranked()
	catNames := categories.names(catKeys)
	prodKeys := products.ranked()
	prodNames := products.names(prodKeys)
	byCategory, categoryColors := categories.breakdown(catKeys, catNames)
	byProduct, productColors := products.breakdown(prodKeys, prodNames)

	return report.RevenueInsights{
		TotalRevenue:    round2(categories.total),
		ByCategory:      byCategory,
		ByProduct:       byProduct,
		DailyByCategory: categories.daily(days, catKeys, catNames),
		DailyByProduct:  products.daily(days, prodKeys, prodNames),
		CategoryColors:  categoryColors,
		ProductColors:   productColors,
	}
}
