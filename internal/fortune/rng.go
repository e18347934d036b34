package fortune

import "math/rand/v2"

// RNG abstracts random number generation for deterministic testing.
type RNG interface {
	// IntN returns a non-negative random int in [0, n).
	IntN(n int) int
}

// stdRNG delegates to math/rand/v2 (auto-seeded).
type stdRNG struct{}

func (stdRNG) IntN(n int) int { return rand.IntN(n) }

// DefaultRNG returns the process-wide auto-seeded generator.
func DefaultRNG() RNG { return stdRNG{} }
