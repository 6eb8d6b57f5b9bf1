package autopilot

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func scoredInts(scores ...float64) []Scored[int] {
	items := make([]Scored[int], len(scores))
	for i, s := range scores {
		items[i] = Scored[int]{Item: i, Score: s}
	}

	return items
}

func itemsOf(chosen []Scored[int]) []int {
	out := make([]int, len(chosen))
	for i, c := range chosen {
		out[i] = c.Item
	}

	return out
}

// TestChooseNFewerThanN checks that all candidates are returned when there
// are not enough of them.
func TestChooseNFewerThanN(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 1))
	items := scoredInts(0, 0.5, 0)

	chosen := ChooseN(items, 5, rng)
	require.ElementsMatch(t, []int{0, 1, 2}, itemsOf(chosen))

	require.Empty(t, ChooseN(items, 0, rng))
	require.Empty(t, ChooseN[int](nil, 3, rng))
}

// TestChooseNZeroWeights checks the uniform fallback once only zero
// weights are left.
func TestChooseNZeroWeights(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 7))

	// Everything zero: a uniform draw of distinct items.
	chosen := ChooseN(scoredInts(0, 0, 0, 0), 4, rng)
	require.ElementsMatch(t, []int{0, 1, 2, 3}, itemsOf(chosen))

	// The positive item is always drawn first.
	for i := 0; i < 50; i++ {
		chosen = ChooseN(scoredInts(0, 0, 1, 0), 2, rng)
		require.Equal(t, 2, chosen[0].Item)
		require.NotEqual(t, 2, chosen[1].Item)
	}

	// Negative and NaN weights behave like zero.
	for i := 0; i < 50; i++ {
		chosen = ChooseN(scoredInts(-1, math.NaN(), 0.1), 1, rng)
		require.Equal(t, 2, chosen[0].Item)
	}
}

// TestChooseNFrequency checks that higher weights are drawn more often.
func TestChooseNFrequency(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(42, 1337))
	items := scoredInts(0.1, 0.3, 0.6)

	counts := make([]int, len(items))
	const rounds = 10000
	for i := 0; i < rounds; i++ {
		chosen := ChooseN(items, 1, rng)
		counts[chosen[0].Item]++
	}

	require.Less(t, counts[0], counts[1])
	require.Less(t, counts[1], counts[2])
	require.InDelta(t, 0.6, float64(counts[2])/rounds, 0.03)
}

// TestChooseNProperties checks that exactly n distinct items are drawn and
// that zero weight items are only drawn once nothing else is left.
func TestChooseNProperties(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		scores := rapid.SliceOfN(
			rapid.OneOf(
				rapid.Just(0.0),
				rapid.Float64Range(0, 10),
			), 0, 30,
		).Draw(rt, "scores")
		n := rapid.IntRange(0, 35).Draw(rt, "n")
		seed := rapid.Uint64().Draw(rt, "seed")

		items := scoredInts(scores...)
		chosen := ChooseN(items, n, rand.New(rand.NewPCG(seed, seed)))

		require.Len(rt, chosen, min(n, len(items)))

		seen := make(map[int]bool)
		for _, c := range chosen {
			require.False(rt, seen[c.Item], "item drawn twice")
			seen[c.Item] = true
		}

		if n >= len(items) {
			return
		}

		var positive int
		for _, s := range scores {
			if s > 0 {
				positive++
			}
		}

		// As long as positive weights are left, every draw must be
		// one of them.
		for i, c := range chosen {
			if i < positive {
				require.Greater(rt, c.Score, 0.0)
			}
		}
	})
}
