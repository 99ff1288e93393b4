package ingest

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/magpieiq/backend/internal/domain/commerce"
	"github.com/magpieiq/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Identity
// ---------------------------------------------------------------------------

// IdentityMode decides how materialized orders are keyed.
type IdentityMode string

const (
	// IdentityBounded keys orders by the source id so reruns update the same rows
	IdentityBounded IdentityMode = "bounded"
	// IdentityUnbounded synthesizes a fresh key per run so history only grows
	IdentityUnbounded IdentityMode = "unbounded"
)

// ParseIdentityMode parses a configured identity mode
func ParseIdentityMode(s string) (IdentityMode, error) {
	switch IdentityMode(strings.ToLower(strings.TrimSpace(s))) {
	case IdentityBounded:
		return IdentityBounded, nil
	case IdentityUnbounded, "":
		return IdentityUnbounded, nil
	}
	return "", fmt.Errorf("unknown identity mode %q", s)
}

// OrderIdentity derives the external id of one expansion.
// Bounded: "<source>" for the first expansion, "<source>-<n>" after it.
// Unbounded: "<source>-<runUnixMilli>-<n>".
func (m IdentityMode) OrderIdentity(sourceID string, startedAt time.Time, expansion int) string {
	if m == IdentityBounded {
		if expansion == 0 {
			return sourceID
		}
		return fmt.Sprintf("%s-%d", sourceID, expansion)
	}
	return fmt.Sprintf("%s-%d-%d", sourceID, startedAt.UnixMilli(), expansion)
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// StatusStrategy assigns the status of a materialized order.
type StatusStrategy interface {
	Assign(src integration.FeedOrder, rng Randomizer) commerce.OrderStatus
	Name() string
}

// RandomStatus ignores the feed and draws uniformly over every status.
type RandomStatus struct{}

func (RandomStatus) Assign(_ integration.FeedOrder, rng Randomizer) commerce.OrderStatus {
	return commerce.AllOrderStatuses[rng.IntN(len(commerce.AllOrderStatuses))]
}

func (RandomStatus) Name() string { return "random" }

// SourceStatus trusts the feed. Unknown values fall back to Processing.
type SourceStatus struct{}

func (SourceStatus) Assign(src integration.FeedOrder, _ Randomizer) commerce.OrderStatus {
	if st, ok := commerce.ParseOrderStatus(src.Status); ok {
		return st
	}
	return commerce.OrderStatusProcessing
}

func (SourceStatus) Name() string { return "source" }

// FixedStatus assigns the same status to every order.
type FixedStatus struct {
	Status commerce.OrderStatus
}

func (f FixedStatus) Assign(integration.FeedOrder, Randomizer) commerce.OrderStatus {
	return f.Status
}

func (f FixedStatus) Name() string { return "fixed:" + string(f.Status) }

// ParseStatusStrategy parses random, source or fixed:<Status>
func ParseStatusStrategy(s string) (StatusStrategy, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "random":
		return RandomStatus{}, nil
	case "source":
		return SourceStatus{}, nil
	}
	if name, ok := strings.CutPrefix(s, "fixed:"); ok {
		st, valid := commerce.ParseOrderStatus(name)
		if !valid {
			return nil, fmt.Errorf("unknown order status %q", name)
		}
		return FixedStatus{Status: st}, nil
	}
	return nil, fmt.Errorf("unknown status strategy %q", s)
}

// ---------------------------------------------------------------------------
// Placement
// ---------------------------------------------------------------------------

// PlacementPolicy picks the placement time of a materialized order.
// The result is never after startedAt.
type PlacementPolicy interface {
	Place(sourceID string, startedAt time.Time, rng Randomizer) time.Time
	Name() string
}

// RecentWindow places orders a whole number of minutes before the run,
// within Window.
type RecentWindow struct {
	Window time.Duration
}

func (p RecentWindow) Place(_ string, startedAt time.Time, rng Randomizer) time.Time {
	minutes := int(p.Window / time.Minute)
	if minutes <= 0 {
		return startedAt
	}
	return startedAt.Add(-time.Duration(rng.IntN(minutes)) * time.Minute)
}

func (p RecentWindow) Name() string { return "recent" }

// HashedSpread backdates orders across Days days. The day offset is a hash of
// the source id, so one source order always lands on the same day relative
// to the run; the minute within the day is random.
type HashedSpread struct {
	Days int
}

func (p HashedSpread) Place(sourceID string, startedAt time.Time, rng Randomizer) time.Time {
	days := max(p.Days, 1)
	h := fnv.New32a()
	_, _ = h.Write([]byte(sourceID))
	offset := int(h.Sum32() % uint32(days))
	minute := rng.IntN(24 * 60)
	return startedAt.
		AddDate(0, 0, -offset).
		Add(-time.Duration(minute) * time.Minute)
}

func (p HashedSpread) Name() string { return "hashed" }

// ParsePlacementPolicy parses recent or hashed
func ParsePlacementPolicy(s string, window time.Duration, days int) (PlacementPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "recent":
		return RecentWindow{Window: window}, nil
	case "hashed":
		return HashedSpread{Days: days}, nil
	}
	return nil, fmt.Errorf("unknown placement policy %q", s)
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config gathers every data-shaping knob of a run.
type Config struct {
	Identity   IdentityMode
	Status     StatusStrategy
	Placement  PlacementPolicy
	Multiplier IntRange
	ItemCount  IntRange
	Quantity   IntRange
}

// DefaultConfig mirrors the defaults of the sync configuration section.
func DefaultConfig() Config {
	return Config{
		Identity:   IdentityUnbounded,
		Status:     RandomStatus{},
		Placement:  RecentWindow{Window: time.Hour},
		Multiplier: IntRange{Min: 1, Max: 3},
		ItemCount:  IntRange{Min: 1, Max: 3},
		Quantity:   IntRange{Min: 1, Max: 5},
	}
}
