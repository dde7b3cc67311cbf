// Package entropy provides the single random stream behind every stochastic
// decision in a run. A Source is seeded once; the same seed always yields the
// same sequence of Bernoulli outcomes and receiver samples.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand"
)

// Decider is the randomness contract consumed by the simulation engine.
type Decider interface {
	// Decide runs one Bernoulli trial that succeeds with the given probability.
	Decide(probability float64) bool
	// Sample returns k distinct indices drawn uniformly from [0, n).
	Sample(n, k int) []int
}

// Source is a seeded pseudo-random Decider. It is not safe for concurrent
// use; each run owns its own Source.
type Source struct {
	seed int64
	rng  *mrand.Rand
}

// New creates a Source seeded with seed.
func New(seed int64) *Source {
	return &Source{
		seed: seed,
		rng:  mrand.New(mrand.NewSource(seed)),
	}
}

// Seed returns the seed the Source was created with.
func (s *Source) Seed() int64 {
	return s.seed
}

// Decide draws one float in [0, 1) and reports whether it falls below
// probability. A draw is consumed even for probabilities of 0 or 1 so the
// stream position depends only on how many trials were run.
func (s *Source) Decide(probability float64) bool {
	return s.rng.Float64() < probability
}

// Sample draws k distinct indices from [0, n) using Floyd's algorithm.
// It panics if k is negative or exceeds n.
func (s *Source) Sample(n, k int) []int {
	if k < 0 || k > n {
		panic(fmt.Sprintf("entropy: invalid sample of %d from %d", k, n))
	}
	out := make([]int, 0, k)
	for j := n - k; j < n; j++ {
		t := s.rng.Intn(j + 1)
		if contains(out, t) {
			t = j
		}
		out = append(out, t)
	}
	return out
}

func contains(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// Fixed is a Decider that treats every draw as the same value. Fixed(0)
// succeeds every trial with a positive probability; Fixed(1) fails them all.
// Samples are always the first k indices.
type Fixed float64

// Decide reports whether the fixed draw falls below probability.
func (f Fixed) Decide(probability float64) bool {
	return float64(f) < probability
}

// Sample returns 0..k-1.
func (f Fixed) Sample(n, k int) []int {
	if k < 0 || k > n {
		panic(fmt.Sprintf("entropy: invalid sample of %d from %d", k, n))
	}
	out := make([]int, k)
	for i := range out {
		out[i] = i
	}
	return out
}

// NewSeed generates a seed from crypto/rand for runs that do not pin one.
func NewSeed() (int64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	// Keep it positive so it reads well in logs and config files.
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1), nil
}
