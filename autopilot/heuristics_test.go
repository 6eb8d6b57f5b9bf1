package autopilot

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/nervosnetwork/fnpilot/fnwire"
	"github.com/stretchr/testify/require"
)

// peerSet returns the set of peers of the given nodes.
func peerSet(nodes ...NodeRecord) fn.Set[fnwire.PeerID] {
	set := fn.NewSet[fnwire.PeerID]()
	for _, n := range nodes {
		set.Add(n.Peer)
	}

	return set
}

// staticHeuristic returns fixed scores.
type staticHeuristic struct {
	name   string
	scores map[fnwire.PeerID]float64
	calls  int
}

func (s *staticHeuristic) Name() string {
	return s.name
}

func (s *staticHeuristic) NodeScores(_ context.Context, _ *TopologyGraph,
	nodes fn.Set[fnwire.PeerID]) (map[fnwire.PeerID]float64, error) {

	s.calls++

	scores := make(map[fnwire.PeerID]float64)
	for peer := range nodes {
		if score, ok := s.scores[peer]; ok {
			scores[peer] = score
		}
	}

	return scores, nil
}

// TestTopCentralityScores checks that only the requested nodes are scored
// with their normalized centrality.
func TestTopCentralityScores(t *testing.T) {
	t.Parallel()

	// A path a - b - c, where b is the only node in the middle of a
	// shortest path.
	g, nodes := buildTestGraph(t, testGraphDesc{
		nodes: 3,
		edges: map[int][]int{0: {1}, 1: {2}},
	})

	h, err := NewTopCentrality(2)
	require.NoError(t, err)

	scores, err := h.NodeScores(
		context.Background(), g, peerSet(nodes[0], nodes[1]),
	)
	require.NoError(t, err)
	require.Equal(t, map[fnwire.PeerID]float64{
		nodes[0].Peer: 0,
		nodes[1].Peer: 1,
	}, scores)
}

// TestTopCentralityDegenerateFallback checks that every requested node
// gets a uniform score when the centrality can't be normalized.
func TestTopCentralityDegenerateFallback(t *testing.T) {
	t.Parallel()

	g, nodes := buildTestGraph(t, testGraphDesc{nodes: 3})
	outsider := testNode(t)

	h, err := NewTopCentrality(1)
	require.NoError(t, err)

	scores, err := h.NodeScores(
		context.Background(), g, peerSet(nodes[0], nodes[2], outsider),
	)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	for _, score := range scores {
		require.Equal(t, 1.0, score)
	}
}

// TestRandomAttachment checks the score range and that every node is
// scored.
func TestRandomAttachment(t *testing.T) {
	t.Parallel()

	_, nodes := buildTestGraph(t, testGraphDesc{nodes: 20})
	h := NewRandomAttachment(rand.New(rand.NewPCG(1, 2)))

	scores, err := h.NodeScores(
		context.Background(), nil, peerSet(nodes...),
	)
	require.NoError(t, err)
	require.Len(t, scores, len(nodes))
	for _, score := range scores {
		require.GreaterOrEqual(t, score, 0.0)
		require.Less(t, score, 1.0)
	}

	// A nil source is replaced by a seeded one.
	scores, err = NewRandomAttachment(nil).NodeScores(
		context.Background(), nil, peerSet(nodes[0]),
	)
	require.NoError(t, err)
	require.Len(t, scores, 1)
}

// TestRichnessAttachment checks the scoring of well and poorly funded
// channels against the network median.
func TestRichnessAttachment(t *testing.T) {
	t.Parallel()

	a, b, c, d := testNode(t), testNode(t), testNode(t), testNode(t)
	isolated := testNode(t)

	tests := []struct {
		name   string
		edges  []ChannelEdge
		scores map[fnwire.PeerID]float64
	}{
		{
			// The median is 10, so the floor is 2 and every
			// channel counts. a has four, the others one each.
			name: "all above floor",
			edges: []ChannelEdge{
				testEdge(a, b, 10),
				testEdge(a, c, 10),
				testEdge(a, d, 10),
				testEdge(a, b, 100),
			},
			scores: map[fnwire.PeerID]float64{
				a.Peer:        1,
				b.Peer:        0.5,
				c.Peer:        0.25,
				d.Peer:        0.25,
				isolated.Peer: 0,
			},
		},
		{
			// The median is 100 and the floor 25, so the two small
			// channels count against a and d.
			name: "below floor",
			edges: []ChannelEdge{
				testEdge(a, b, 100),
				testEdge(a, c, 100),
				testEdge(a, d, 1),
				testEdge(a, d, 1),
				testEdge(b, c, 100),
			},
			scores: map[fnwire.PeerID]float64{
				a.Peer:        0,
				b.Peer:        1,
				c.Peer:        1,
				d.Peer:        0,
				isolated.Peer: 0,
			},
		},
		{
			name: "no channels",
			scores: map[fnwire.PeerID]float64{
				a.Peer:        0,
				b.Peer:        0,
				c.Peer:        0,
				d.Peer:        0,
				isolated.Peer: 0,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			g := NewTopologyGraph(
				[]NodeRecord{a, b, c, d, isolated}, test.edges,
			)
			scores, err := NewRichnessAttachment().NodeScores(
				context.Background(), g,
				peerSet(a, b, c, d, isolated),
			)
			require.NoError(t, err)
			require.Equal(t, test.scores, scores)
		})
	}
}

// TestWeightedCombAttachment checks that sub scores are weighted and summed
// without renormalization.
func TestWeightedCombAttachment(t *testing.T) {
	t.Parallel()

	a, b := testNode(t), testNode(t)
	nodes := peerSet(a, b)

	first := &staticHeuristic{
		name: "first",
		scores: map[fnwire.PeerID]float64{
			a.Peer: 1.0,
			b.Peer: 0.5,
		},
	}
	second := &staticHeuristic{
		name: "second",
		scores: map[fnwire.PeerID]float64{
			a.Peer: 0.0,
			b.Peer: 1.0,
		},
	}

	t.Run("single heuristic", func(t *testing.T) {
		single := &staticHeuristic{scores: first.scores}
		comb := NewWeightedCombAttachment(&WeightedHeuristic{
			Weight:              1.0,
			AttachmentHeuristic: single,
		})

		scores, err := comb.NodeScores(context.Background(), nil, nodes)
		require.NoError(t, err)
		require.Equal(t, first.scores, scores)
		require.Equal(t, 1, single.calls)
	})

	t.Run("weights below one", func(t *testing.T) {
		comb := NewWeightedCombAttachment(
			&WeightedHeuristic{
				Weight:              0.25,
				AttachmentHeuristic: first,
			},
			&WeightedHeuristic{
				Weight:              0.25,
				AttachmentHeuristic: second,
			},
		)
		require.InDelta(t, 0.5, comb.WeightSum(), 1e-12)

		scores, err := comb.NodeScores(context.Background(), nil, nodes)
		require.NoError(t, err)
		require.InDelta(t, 0.25, scores[a.Peer], 1e-12)
		require.InDelta(t, 0.375, scores[b.Peer], 1e-12)
	})

	t.Run("missing score", func(t *testing.T) {
		partial := &staticHeuristic{
			name: "partial",
			scores: map[fnwire.PeerID]float64{
				a.Peer: 1.0,
			},
		}
		comb := NewWeightedCombAttachment(&WeightedHeuristic{
			Weight:              1.0,
			AttachmentHeuristic: partial,
		})

		_, err := comb.NodeScores(context.Background(), nil, nodes)
		require.ErrorIs(t, err, ErrMissingScore)
	})
}

// TestHeuristicKind checks parsing and construction of every kind.
func TestHeuristicKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		kind  HeuristicKind
		name  string
	}{
		{input: "Centrality", kind: Centrality, name: "top_centrality"},
		{input: "centrality", kind: Centrality, name: "top_centrality"},
		{input: "Random", kind: Random, name: "random"},
		{input: "RICHNESS", kind: Richness, name: "richness"},
	}

	for _, test := range tests {
		kind, err := ParseHeuristicKind(test.input)
		require.NoError(t, err)
		require.Equal(t, test.kind, kind)

		var decoded HeuristicKind
		text, err := kind.MarshalText()
		require.NoError(t, err)
		require.NoError(t, decoded.UnmarshalText(text))
		require.Equal(t, kind, decoded)

		h, err := NewHeuristic(kind, &HeuristicConfig{})
		require.NoError(t, err)
		require.Equal(t, test.name, h.Name())
	}

	_, err := ParseHeuristicKind("PrefAttach")
	require.Error(t, err)

	_, err = NewHeuristic(HeuristicKind(42), &HeuristicConfig{})
	require.Error(t, err)
	require.Equal(t, "HeuristicKind(42)", HeuristicKind(42).String())
}
