/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package rotation

import (
	"math/rand/v2"
)

// RNG is the randomness the engine draws from. IntN must return a uniform
// value in [0, n). *rand.Rand from math/rand/v2 satisfies it.
type RNG interface {
	IntN(n int) int
}

// globalRNG uses the math/rand/v2 top-level source, which is randomly seeded
// and safe for concurrent use.
type globalRNG struct{}

func (globalRNG) IntN(n int) int { return rand.IntN(n) }

func DefaultRNG() RNG { return globalRNG{} }

// NewSeededRNG returns a reproducible source. It must not be shared between
// goroutines.
func NewSeededRNG(seed uint64) RNG {
	return rand.New(rand.NewPCG(seed, 0))
}

// Shuffle permutes s in place with Fisher-Yates; every permutation is equally
// likely as long as rng is uniform.
func Shuffle(s []string, rng RNG) {
	if rng == nil {
		rng = DefaultRNG()
	}

	for i := len(s) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
