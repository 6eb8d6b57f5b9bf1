package autopilot

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/nervosnetwork/fnpilot/fnwire"
	"github.com/stretchr/testify/require"
)

// testGraphDesc is a helper type to describe a test graph.
type testGraphDesc struct {
	nodes int
	edges map[int][]int
}

// testNode creates a node record with a fresh identity key and one
// address.
func testNode(t testing.TB) NodeRecord {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	id := fnwire.NewPubkey(priv.PubKey())
	peer, err := fnwire.NewPeerID(id)
	require.NoError(t, err)

	return NodeRecord{
		ID:   id,
		Peer: peer,
		Name: "node-" + peer.String()[:8],
		Addrs: []fnwire.MultiAddr{
			fnwire.MultiAddr("/ip4/10.0.0.1/tcp/8228/p2p/" +
				peer.String()),
		},
	}
}

// testEdge creates a CKB channel between two nodes.
func testEdge(u, v NodeRecord, capacity fnwire.Amount) ChannelEdge {
	return ChannelEdge{
		Node1:    u.ID,
		Node2:    v.ID,
		Capacity: capacity,
		Asset:    fn.None[fnwire.Script](),
	}
}

// buildTestGraph builds a test graph from a passed graph descriptor. The
// returned node records are indexed like the descriptor.
func buildTestGraph(t testing.TB, desc testGraphDesc) (*TopologyGraph,
	[]NodeRecord) {

	t.Helper()

	nodes := make([]NodeRecord, desc.nodes)
	for i := range nodes {
		nodes[i] = testNode(t)
	}

	const chanCapacity = 100_0000_0000
	var edges []ChannelEdge
	for u := 0; u < desc.nodes; u++ {
		for _, v := range desc.edges[u] {
			edges = append(
				edges, testEdge(nodes[u], nodes[v], chanCapacity),
			)
		}
	}

	return NewTopologyGraph(nodes, edges), nodes
}

// TestTopologyGraphAdjacency checks that every channel with known endpoints
// results in two symmetric adjacency entries.
func TestTopologyGraphAdjacency(t *testing.T) {
	t.Parallel()

	g, nodes := buildTestGraph(t, testGraphDesc{
		nodes: 4,
		edges: map[int][]int{
			0: {1, 2},
			1: {2},
		},
	})

	require.Equal(t, 4, g.NumNodes())
	require.Len(t, g.Edges(), 3)
	require.Zero(t, g.Skipped())

	require.ElementsMatch(t, []int{1, 2}, g.Adj(0))
	require.ElementsMatch(t, []int{0, 2}, g.Adj(1))
	require.ElementsMatch(t, []int{0, 1}, g.Adj(2))
	require.Empty(t, g.Adj(3))

	var total int
	for i := 0; i < g.NumNodes(); i++ {
		total += len(g.Adj(i))
	}
	require.Equal(t, 2*len(g.Edges()), total)

	i, ok := g.PeerIndex(nodes[2].Peer)
	require.True(t, ok)
	require.Equal(t, 2, i)

	rec, ok := g.NodeByPeer(nodes[3].Peer)
	require.True(t, ok)
	require.Equal(t, nodes[3].ID, rec.ID)

	peer, ok := g.PeerOf(nodes[1].ID)
	require.True(t, ok)
	require.Equal(t, nodes[1].Peer, peer)
}

// TestTopologyGraphSkipsUnknownEndpoints checks that channels referencing a
// node that is not part of the node list are counted but not traversed.
func TestTopologyGraphSkipsUnknownEndpoints(t *testing.T) {
	t.Parallel()

	known := []NodeRecord{testNode(t), testNode(t)}
	unknown := testNode(t)

	edges := []ChannelEdge{
		testEdge(known[0], known[1], 10),
		testEdge(known[0], unknown, 10),
		testEdge(unknown, known[1], 10),
	}

	g := NewTopologyGraph(known, edges)
	require.Equal(t, 2, g.Skipped())
	require.Len(t, g.Edges(), 3)
	require.Equal(t, []int{1}, g.Adj(0))
	require.Equal(t, []int{0}, g.Adj(1))

	_, ok := g.NodeByPeer(unknown.Peer)
	require.False(t, ok)
}

// TestTopologyGraphEmpty checks that an empty snapshot gives an empty graph.
func TestTopologyGraphEmpty(t *testing.T) {
	t.Parallel()

	g := NewTopologyGraph(nil, nil)
	require.Zero(t, g.NumNodes())
	require.Zero(t, g.Skipped())

	_, ok := medianCapacity(g.Edges())
	require.False(t, ok)
}

// TestMedianCapacity checks that the upper median is used.
func TestMedianCapacity(t *testing.T) {
	t.Parallel()

	a, b := testNode(t), testNode(t)
	edges := []ChannelEdge{
		testEdge(a, b, 40),
		testEdge(a, b, 10),
		testEdge(a, b, 30),
		testEdge(a, b, 20),
	}

	median, ok := medianCapacity(edges)
	require.True(t, ok)
	require.Equal(t, fnwire.Amount(30), median)

	median, ok = medianCapacity(edges[:3])
	require.True(t, ok)
	require.Equal(t, fnwire.Amount(30), median)
}
