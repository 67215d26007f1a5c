package simulation

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source yields uniform samples in [0,1). Implementations must be safe for
// concurrent use when shared across goroutines.
type Source interface {
	Float64() float64
}

// LockedSource serializes access to a seeded PCG generator
type LockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource returns a reproducible source for the given seed
func NewSeededSource(seed uint64) *LockedSource {
	return &LockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewTimeSource seeds a source from the wall clock
func NewTimeSource() *LockedSource {
	return NewSeededSource(uint64(time.Now().UnixNano()))
}

func (s *LockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// FixedSource always returns the same sample
type FixedSource float64

func (f FixedSource) Float64() float64 {
	return float64(f)
}

// SequenceSource replays samples in order and wraps around
type SequenceSource struct {
	mu      sync.Mutex
	samples []float64
	next    int
}

func NewSequenceSource(samples ...float64) *SequenceSource {
	return &SequenceSource{samples: samples}
}

func (s *SequenceSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.samples) == 0 {
		return 0
	}
	v := s.samples[s.next%len(s.samples)]
	s.next++
	return v
}

// Uniform draws from [lo, hi) using src
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}
