package rotation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShuffleUniform(t *testing.T) {
	const n = 60000

	rng := NewSeededRNG(7)
	seen := make(map[string]int)

	for range n {
		s := []string{"a", "b", "c"}
		Shuffle(s, rng)
		seen[strings.Join(s, "")]++
	}

	assert.Len(t, seen, 6)
	for perm, count := range seen {
		// expected 10000 each; 5% is several standard deviations out
		assert.InDelta(t, n/6, count, 500, "permutation %s", perm)
	}
}

func TestShuffleKeepsElements(t *testing.T) {
	s := []string{"a", "b", "c", "d", "e"}
	Shuffle(s, nil)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, s)

	Shuffle(nil, nil)
	one := []string{"x"}
	Shuffle(one, NewSeededRNG(1))
	assert.Equal(t, []string{"x"}, one)
}

func TestShuffleScripted(t *testing.T) {
	s := []string{"a", "b", "c", "d"}
	Shuffle(s, keepRNG{})
	assert.Equal(t, []string{"a", "b", "c", "d"}, s)
}

func TestSeededRNGReproducible(t *testing.T) {
	a, b := NewSeededRNG(99), NewSeededRNG(99)
	for range 100 {
		assert.Equal(t, a.IntN(1000), b.IntN(1000))
	}
}
