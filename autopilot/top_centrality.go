package autopilot

import (
	"context"
	"errors"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/nervosnetwork/fnpilot/fnwire"
)

// TopCentrality is a simple greedy technique to create connections to nodes
// with the top betweenness centrality value. This algorithm is usually
// referred to as TopK in the literature. The idea is that by opening
// channels to nodes with top betweenness centrality we also increase our own
// betweenness centrality (given we already have at least one channel, or
// create at least two new channels).
// A different and much better approach is instead of selecting nodes with
// top centrality value, we extend the graph in a loop by inserting a new
// non existing edge and recalculate the betweenness centrality of each node.
// This technique is usually referred to as "greedy" algorithm and gives
// better results than TopK but is considerably slower too.
type TopCentrality struct {
	centralityMetric *BetweennessCentrality
}

// A compile time assertion to ensure TopCentrality meets the
// AttachmentHeuristic interface.
var _ AttachmentHeuristic = (*TopCentrality)(nil)

// NewTopCentrality constructs and returns a new TopCentrality heuristic
// computing centrality on the given number of workers.
func NewTopCentrality(workers int) (*TopCentrality, error) {
	metric, err := NewBetweennessCentralityMetric(workers)
	if err != nil {
		return nil, err
	}

	return &TopCentrality{
		centralityMetric: metric,
	}, nil
}

// Name returns the name of the heuristic.
func (g *TopCentrality) Name() string {
	return "top_centrality"
}

// NodeScores will return a [0,1] normalized map of scores for the given
// nodes except for the ones we already have channels with. The scores will
// simply be the betweenness centrality values of the nodes.
// As our current implementation of betweenness centrality is non-incremental,
// NodeScores will recalculate the centrality values on every call, which is
// slow for large graphs.
//
// When every node has the same centrality there is nothing to prefer, so
// each requested node is given the same score of 1.0.
func (g *TopCentrality) NodeScores(ctx context.Context, graph *TopologyGraph,
	nodes fn.Set[fnwire.PeerID]) (map[fnwire.PeerID]float64, error) {

	// Calculate betweenness centrality for the whole graph.
	if err := g.centralityMetric.Refresh(ctx, graph); err != nil {
		return nil, fmt.Errorf("unable to refresh centrality: %w", err)
	}

	normalize := true
	centrality, err := g.centralityMetric.GetMetric(normalize)
	switch {
	case errors.Is(err, ErrDegenerateInput):
		log.Warnf("Falling back to uniform scores: %v", err)
		centrality = nil

	case err != nil:
		return nil, err
	}

	result := make(map[fnwire.PeerID]float64, len(nodes))
	for peer := range nodes {
		if centrality == nil {
			result[peer] = 1.0
			continue
		}

		// Nodes missing from the graph have no paths through them.
		result[peer] = centrality[peer]
	}

	return result, nil
}
