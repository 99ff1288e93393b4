package ingest

import (
	"math/rand/v2"
	"sync"
)

// Randomizer is the single source of randomness for a run. Injecting it
// makes a run reproducible under a fixed seed.
type Randomizer interface {
	// IntN returns a value in [0, n). n must be positive.
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// SeededRandom is a Randomizer over a PCG generator. It is safe for
// concurrent use.
type SeededRandom struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededRandom creates a generator whose sequence is fixed by seed.
func NewSeededRandom(seed uint64) *SeededRandom {
	return &SeededRandom{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SeededRandom) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *SeededRandom) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(n, swap)
}

// IntRange is an inclusive [Min, Max] range.
type IntRange struct {
	Min int
	Max int
}

// Draw picks a value uniformly from the range.
func (r IntRange) Draw(rng Randomizer) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.IntN(r.Max-r.Min+1)
}

var _ Randomizer = (*SeededRandom)(nil)
