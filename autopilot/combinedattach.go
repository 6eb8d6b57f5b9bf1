package autopilot

import (
	"context"
	"fmt"
	"math"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/nervosnetwork/fnpilot/fnwire"
)

// weightSumTolerance absorbs float rounding when checking that weights sum
// to one.
const weightSumTolerance = 1e-9

// WeightedHeuristic is a tuple that associates a weight to an
// AttachmentHeuristic. This is used to determining a node's final score when
// querying several heuristics for scores.
type WeightedHeuristic struct {
	// Weight is this AttachmentHeuristic's relative weight factor. It
	// should be between 0.0 and 1.0.
	Weight float64

	AttachmentHeuristic
}

// WeightedCombAttachment is an implementation of the AttachmentHeuristic
// interface that combines the scores given by several sub-heuristics into one.
type WeightedCombAttachment struct {
	heuristics []*WeightedHeuristic
}

// NewWeightedCombAttachment creates a new instance of a WeightedCombAttachment.
// Weights that don't sum to 1.0 are accepted as given, with a warning, and
// the combined scores are not renormalized.
func NewWeightedCombAttachment(h ...*WeightedHeuristic) *WeightedCombAttachment {
	c := &WeightedCombAttachment{
		heuristics: h,
	}

	if sum := c.WeightSum(); math.Abs(sum-1.0) > weightSumTolerance {
		log.Warnf("Heuristic weights sum to %v instead of 1.0, "+
			"scores will not be renormalized", sum)
	}

	return c
}

// A compile time assertion to ensure WeightedCombAttachment meets the
// AttachmentHeuristic interface.
var _ AttachmentHeuristic = (*WeightedCombAttachment)(nil)

// Name returns the name of this heuristic.
//
// NOTE: This is a part of the AttachmentHeuristic interface.
func (c *WeightedCombAttachment) Name() string {
	return "weightedcomb"
}

// WeightSum returns the sum of all sub-heuristic weights.
func (c *WeightedCombAttachment) WeightSum() float64 {
	var sum float64
	for _, w := range c.heuristics {
		sum += w.Weight
	}

	return sum
}

// NodeScores is a method that given the current channel graph scores the
// given nodes according to the preference of opening a channel with them.
//
// The scores is determined by querying the set of sub-heuristics, then
// combining these scores into a final score according to the active
// configuration. Every sub-heuristic is queried exactly once, and must
// return a score for every requested node.
//
// NOTE: This is a part of the AttachmentHeuristic interface.
func (c *WeightedCombAttachment) NodeScores(ctx context.Context,
	g *TopologyGraph, nodes fn.Set[fnwire.PeerID]) (
	map[fnwire.PeerID]float64, error) {

	// We now query each heuristic to determine the score they give to the
	// nodes.
	subScores := make([]map[fnwire.PeerID]float64, 0, len(c.heuristics))
	for _, h := range c.heuristics {
		log.Tracef("Getting scores from sub heuristic %v", h.Name())

		s, err := h.NodeScores(ctx, g, nodes)
		if err != nil {
			return nil, fmt.Errorf("unable to get sub score: %w",
				err)
		}

		subScores = append(subScores, s)
	}

	// We combine the scores given by the sub-heuristics by using the
	// heuristics' given weight factor.
	scores := make(map[fnwire.PeerID]float64, len(nodes))
	for peer := range nodes {
		var score float64
		for i, h := range c.heuristics {
			sub, ok := subScores[i][peer]
			if !ok {
				return nil, missingScoreError(h.Name(), peer)
			}

			// Use the heuristic's weight factor to determine of
			// how much weight we should give to this particular
			// score.
			subScore := h.Weight * sub
			log.Tracef("Giving node %v a sub score of %v "+
				"(%v * %v) from sub heuristic %v", peer,
				subScore, h.Weight, sub, h.Name())

			score += subScore
		}

		log.Tracef("Node %v got final combined score %v", peer, score)

		scores[peer] = score
	}

	return scores, nil
}
