package autopilot

import (
	"math"
	"math/rand/v2"
)

// Scored pairs an item with its selection weight.
type Scored[T any] struct {
	Item  T
	Score float64
}

// ChooseN draws up to n items from the given candidates without
// replacement, each draw picking an item with probability proportional to
// its score among the items not yet drawn. If there are fewer than n
// candidates all of them are returned.
//
// Negative and NaN scores count as zero. Once only zero weights remain the
// draw falls back to picking uniformly among the remaining items, so a call
// with at least n candidates always returns exactly n distinct items.
func ChooseN[T any](items []Scored[T], n int, rng *rand.Rand) []Scored[T] {
	if n <= 0 {
		return nil
	}

	if len(items) < n {
		chosen := make([]Scored[T], len(items))
		copy(chosen, items)

		return chosen
	}

	weights := make([]float64, len(items))
	for i, item := range items {
		w := item.Score
		if math.IsNaN(w) || w < 0 {
			w = 0
		}
		weights[i] = w
	}

	drawn := make([]bool, len(items))
	chosen := make([]Scored[T], 0, n)
	for len(chosen) < n {
		i := drawWeighted(weights, drawn, rng)

		drawn[i] = true
		weights[i] = 0
		chosen = append(chosen, items[i])
	}

	return chosen
}

// drawWeighted picks the index of an undrawn item. At least one item must be
// undrawn.
func drawWeighted(weights []float64, drawn []bool, rng *rand.Rand) int {
	var total float64
	for _, w := range weights {
		total += w
	}

	if total <= 0 || math.IsInf(total, 0) || math.IsNaN(total) {
		return drawUniform(drawn, rng)
	}

	target := rng.Float64() * total
	last := -1
	var cum float64
	for i, w := range weights {
		if w == 0 {
			continue
		}

		cum += w
		last = i
		if target < cum {
			return i
		}
	}

	// Rounding can leave target at the very end of the range.
	return last
}

// drawUniform picks one of the undrawn items with equal probability.
func drawUniform(drawn []bool, rng *rand.Rand) int {
	var remaining int
	for _, d := range drawn {
		if !d {
			remaining++
		}
	}

	k := rng.IntN(remaining)
	for i, d := range drawn {
		if d {
			continue
		}
		if k == 0 {
			return i
		}
		k--
	}

	// Unreachable while at least one item is undrawn.
	return -1
}
