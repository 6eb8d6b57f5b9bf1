package autopilot

import (
	"sort"

	"github.com/nervosnetwork/fnpilot/fnwire"
)

// TopologyGraph is an immutable, index based snapshot of the network graph
// built once per agent cycle. Nodes are addressed by their position in the
// node list, which keeps the centrality computation free of map lookups.
type TopologyGraph struct {
	nodes []NodeRecord
	edges []ChannelEdge

	// adj holds, for each node index, the indices of its neighbours. A
	// node appears once per channel, so parallel channels show up as
	// repeated entries.
	adj [][]int

	index   map[NodeID]int
	peers   map[fnwire.PeerID]int
	skipped int
}

// NewTopologyGraph builds a graph from a node and channel snapshot. Channels
// with an endpoint missing from the node list are kept in the edge list but
// left out of the adjacency, and are counted as skipped. When a node is
// listed twice the last record wins.
func NewTopologyGraph(nodes []NodeRecord, edges []ChannelEdge) *TopologyGraph {
	g := &TopologyGraph{
		nodes: nodes,
		edges: edges,
		adj:   make([][]int, len(nodes)),
		index: make(map[NodeID]int, len(nodes)),
		peers: make(map[fnwire.PeerID]int, len(nodes)),
	}

	for i, n := range nodes {
		g.index[n.ID] = i
		g.peers[n.Peer] = i
	}

	for _, e := range edges {
		u, ok1 := g.index[e.Node1]
		v, ok2 := g.index[e.Node2]
		if !ok1 || !ok2 {
			g.skipped++
			continue
		}

		g.adj[u] = append(g.adj[u], v)
		g.adj[v] = append(g.adj[v], u)
	}

	if g.skipped > 0 {
		log.Debugf("Skipped %d of %d channels with unknown endpoints",
			g.skipped, len(edges))
	}

	return g
}

// Nodes returns the node records in graph order.
func (g *TopologyGraph) Nodes() []NodeRecord {
	return g.nodes
}

// Edges returns every channel of the snapshot, including skipped ones.
func (g *TopologyGraph) Edges() []ChannelEdge {
	return g.edges
}

// Adj returns the neighbour indices of the node at index i.
func (g *TopologyGraph) Adj(i int) []int {
	return g.adj[i]
}

// Skipped returns the number of channels left out of the adjacency.
func (g *TopologyGraph) Skipped() int {
	return g.skipped
}

// NumNodes returns the number of nodes in the graph.
func (g *TopologyGraph) NumNodes() int {
	return len(g.nodes)
}

// PeerIndex returns the graph index of the given peer.
func (g *TopologyGraph) PeerIndex(peer fnwire.PeerID) (int, bool) {
	i, ok := g.peers[peer]
	return i, ok
}

// NodeByPeer returns the record of the given peer.
func (g *TopologyGraph) NodeByPeer(peer fnwire.PeerID) (*NodeRecord, bool) {
	i, ok := g.peers[peer]
	if !ok {
		return nil, false
	}

	return &g.nodes[i], true
}

// PeerOf returns the peer id of the node with the given identity key.
func (g *TopologyGraph) PeerOf(id NodeID) (fnwire.PeerID, bool) {
	i, ok := g.index[id]
	if !ok {
		return "", false
	}

	return g.nodes[i].Peer, true
}

// medianCapacity returns the upper median of the capacities of all channels
// in the snapshot, and false if there are none.
func medianCapacity(edges []ChannelEdge) (fnwire.Amount, bool) {
	if len(edges) == 0 {
		return 0, false
	}

	caps := make([]fnwire.Amount, len(edges))
	for i, e := range edges {
		caps[i] = e.Capacity
	}
	sort.Slice(caps, func(i, j int) bool {
		return caps[i] < caps[j]
	})

	return caps[len(caps)/2], true
}
