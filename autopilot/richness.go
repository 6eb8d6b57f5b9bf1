package autopilot

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/nervosnetwork/fnpilot/fnwire"
)

// RichnessAttachment favours nodes that have many well funded channels. A
// channel counts for its endpoint if its capacity reaches a quarter of the
// network's median capacity, and against it otherwise.
type RichnessAttachment struct{}

// A compile time assertion to ensure RichnessAttachment meets the
// AttachmentHeuristic interface.
var _ AttachmentHeuristic = (*RichnessAttachment)(nil)

// NewRichnessAttachment creates a new RichnessAttachment.
func NewRichnessAttachment() *RichnessAttachment {
	return &RichnessAttachment{}
}

// Name returns the name of the heuristic.
func (r *RichnessAttachment) Name() string {
	return "richness"
}

// NodeScores scores the requested nodes by their net count of well funded
// channels, normalized by the highest net count among them. Nodes with no
// positive net count score zero.
func (r *RichnessAttachment) NodeScores(_ context.Context, g *TopologyGraph,
	nodes fn.Set[fnwire.PeerID]) (map[fnwire.PeerID]float64, error) {

	scores := make(map[fnwire.PeerID]float64, len(nodes))
	for peer := range nodes {
		scores[peer] = 0
	}

	median, ok := medianCapacity(g.Edges())
	if !ok {
		return scores, nil
	}
	floor := median / 4

	counts := make(map[fnwire.PeerID]int64, len(nodes))
	tally := func(id NodeID, delta int64) {
		peer, ok := g.PeerOf(id)
		if !ok || !nodes.Contains(peer) {
			return
		}
		counts[peer] += delta
	}

	for _, e := range g.Edges() {
		delta := int64(1)
		if e.Capacity < floor {
			delta = -1
		}

		tally(e.Node1, delta)
		tally(e.Node2, delta)
	}

	var maxCount int64
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	log.Tracef("Richness: median capacity %v, floor %v, max net "+
		"count %d", median, floor, maxCount)

	if maxCount <= 0 {
		return scores, nil
	}

	for peer, c := range counts {
		if c <= 0 {
			continue
		}
		scores[peer] = float64(c) / float64(maxCount)
	}

	return scores, nil
}
