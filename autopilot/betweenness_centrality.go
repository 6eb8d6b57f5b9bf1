package autopilot

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/nervosnetwork/fnpilot/fnwire"
)

// stack is a simple int stack to help with readability of Brandes'
// betweenness centrality implementation below.
type stack struct {
	stack []int
}

func (s *stack) push(v int) {
	s.stack = append(s.stack, v)
}

func (s *stack) top() int {
	return s.stack[len(s.stack)-1]
}

func (s *stack) pop() {
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *stack) empty() bool {
	return len(s.stack) == 0
}

// queue is a simple int queue to help with readability of Brandes'
// betweenness centrality implementation below.
type queue struct {
	queue []int
}

func (q *queue) push(v int) {
	q.queue = append(q.queue, v)
}

func (q *queue) front() int {
	return q.queue[0]
}

func (q *queue) pop() {
	q.queue = q.queue[1:]
}

func (q *queue) empty() bool {
	return len(q.queue) == 0
}

// ErrDegenerateInput is matched by DegenerateInputError with errors.Is.
var ErrDegenerateInput = errors.New("degenerate centrality input")

// DegenerateInputError is returned when centrality values can't be
// normalized because every node has the same centrality. This is the case
// for graphs with a single node or without any usable channel.
type DegenerateInputError struct {
	// NumNodes is the number of nodes in the graph.
	NumNodes int

	// Value is the centrality every node shares.
	Value float64
}

// Error implements the error interface.
func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("all %d nodes have centrality %v, unable to "+
		"normalize", e.NumNodes, e.Value)
}

// Is lets errors.Is match the error against ErrDegenerateInput.
func (e *DegenerateInputError) Is(target error) bool {
	return target == ErrDegenerateInput
}

// DefaultCentralityWorkers is the default size of the centrality worker
// pool.
func DefaultCentralityWorkers() int {
	return runtime.NumCPU()
}

// BetweennessCentrality is a NodeMetric that calculates node betweenness
// centrality using Brandes' algorithm. Betweenness centrality for each node
// is the number of shortest paths passing through that node, not counting
// shortest paths starting or ending at that node. This is a useful metric
// to measure control of individual nodes over the whole network.
type BetweennessCentrality struct {
	// workers number of goroutines are used to parallelize
	// centrality calculation.
	workers int

	// centrality stores original (not normalized) centrality values for
	// each node in the graph.
	centrality map[fnwire.PeerID]float64

	// min is the minimum centrality in the graph.
	min float64

	// max is the maximum centrality in the graph.
	max float64
}

// NewBetweennessCentralityMetric creates a new BetweennessCentrality instance.
// Users can specify the number of workers to use for calculating centrality.
func NewBetweennessCentralityMetric(workers int) (*BetweennessCentrality, error) {
	// There should be at least one worker.
	if workers < 1 {
		return nil, fmt.Errorf("workers must be positive")
	}
	return &BetweennessCentrality{
		workers: workers,
	}, nil
}

// Name returns the name of the metric.
func (bc *BetweennessCentrality) Name() string {
	return "betweenness_centrality"
}

// betweennessCentrality is the core of Brandes' algorithm.
// We first calculate the shortest paths from the start node s to all other
// nodes with BFS, then update the betweenness centrality values by using
// Brandes' dependency trick.
// For detailed explanation please read:
// https://www.cl.cam.ac.uk/teaching/1617/MLRD/handbook/brandes.html
func betweennessCentrality(g *TopologyGraph, s int, centrality []float64) {
	n := g.NumNodes()

	// pred[w] is the list of nodes that immediately precede w on a
	// shortest path from s to t for each node t.
	pred := make([][]int, n)

	// sigma[t] is the number of shortest paths between nodes s and t
	// for each node t.
	sigma := make([]float64, n)
	sigma[s] = 1

	// dist[t] holds the distance between s and t for each node t.
	// We initialize this to -1 (meaning infinity) for each t != s.
	dist := make([]int, n)
	for i := range dist {
		dist[i] = -1
	}

	dist[s] = 0

	var (
		st stack
		q  queue
	)
	q.push(s)

	// BFS to calculate the shortest paths (sigma and pred)
	// from s to t for each node t.
	for !q.empty() {
		v := q.front()
		q.pop()
		st.push(v)

		for _, w := range g.Adj(v) {
			// If distance from s to w is infinity (-1)
			// then set it and enqueue w.
			if dist[w] < 0 {
				dist[w] = dist[v] + 1
				q.push(w)
			}

			// If w is on a shortest path the update
			// sigma and add v to w's predecessor list.
			if dist[w] == dist[v]+1 {
				sigma[w] += sigma[v]
				pred[w] = append(pred[w], v)
			}
		}
	}

	// delta[v] is the ratio of the shortest paths between s and t that go
	// through v and the total number of shortest paths between s and t.
	// If we have delta then the betweenness centrality is simply the sum
	// of delta[w] for each w != s.
	delta := make([]float64, n)

	for !st.empty() {
		w := st.top()
		st.pop()

		for _, v := range pred[w] {
			delta[v] += (sigma[v] / sigma[w]) * (1.0 + delta[w])
		}

		if w != s {
			centrality[w] += delta[w]
		}
	}
}

// Refresh recalculates and stores centrality values. Sources are handed out
// to a fixed pool of workers, each summing into a private partial vector,
// so no locking is needed until the partials are merged. A cancelled
// context stops the distribution of sources and leaves the previous values
// in place.
func (bc *BetweennessCentrality) Refresh(ctx context.Context,
	g *TopologyGraph) error {

	numNodes := g.NumNodes()

	var wg sync.WaitGroup
	work := make(chan int)
	partials := make(chan []float64, bc.workers)

	// Each worker will compute a partial result.
	// This partial result is a sum of centrality updates
	// on roughly N / workers nodes.
	worker := func() {
		defer wg.Done()
		partial := make([]float64, numNodes)

		// Consume the next node, update centrality
		// partial to avoid unnecessary synchronization.
		for node := range work {
			betweennessCentrality(g, node, partial)
		}
		partials <- partial
	}

	// Now start the N workers.
	wg.Add(bc.workers)
	for i := 0; i < bc.workers; i++ {
		go worker()
	}

	// Distribute work amongst workers.
	// Should be fair when the graph is sufficiently large.
	var cancelled bool
	for node := 0; node < numNodes && !cancelled; node++ {
		select {
		case work <- node:
		case <-ctx.Done():
			cancelled = true
		}
	}

	close(work)
	wg.Wait()
	close(partials)

	if cancelled {
		return ctx.Err()
	}

	// Collect and sum partials for final result.
	centrality := make([]float64, numNodes)
	for partial := range partials {
		for i := 0; i < len(partial); i++ {
			centrality[i] += partial[i]
		}
	}

	bc.centrality = make(map[fnwire.PeerID]float64, numNodes)
	bc.min, bc.max = 0, 0
	for u, value := range centrality {
		// Divide by two as this is an undirected graph.
		value /= 2.0

		if u == 0 || value < bc.min {
			bc.min = value
		}
		if u == 0 || value > bc.max {
			bc.max = value
		}

		bc.centrality[g.nodes[u].Peer] = value
	}

	log.Debugf("Refreshed %v for %d nodes with %d workers, "+
		"min=%v max=%v", bc.Name(), numNodes, bc.workers, bc.min, bc.max)

	return nil
}

// GetMetric returns the current centrality values for each node indexed by
// peer id. Normalized values are scaled to [0, 1] using the minimum and
// maximum centrality. If every node has the same centrality the values
// can't be normalized and a DegenerateInputError is returned.
func (bc *BetweennessCentrality) GetMetric(
	normalize bool) (map[fnwire.PeerID]float64, error) {

	if normalize && len(bc.centrality) > 0 && bc.max == bc.min {
		return nil, &DegenerateInputError{
			NumNodes: len(bc.centrality),
			Value:    bc.max,
		}
	}

	// Normalization factor.
	var z float64
	if (bc.max - bc.min) > 0 {
		z = 1.0 / (bc.max - bc.min)
	}

	centrality := make(map[fnwire.PeerID]float64, len(bc.centrality))
	for k, v := range bc.centrality {
		if normalize {
			v = (v - bc.min) * z
		}
		centrality[k] = v
	}

	return centrality, nil
}
