package autopilot

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/nervosnetwork/fnpilot/fnwire"
)

// RandomAttachment gives every node a uniformly random score. Combined with
// other heuristics it adds some noise so that agents with the same view of
// the network don't all pick the same peers.
type RandomAttachment struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// A compile time assertion to ensure RandomAttachment meets the
// AttachmentHeuristic interface.
var _ AttachmentHeuristic = (*RandomAttachment)(nil)

// NewRandomAttachment creates a RandomAttachment drawing from rng, or from
// a randomly seeded source if rng is nil.
func NewRandomAttachment(rng *rand.Rand) *RandomAttachment {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &RandomAttachment{
		rng: rng,
	}
}

// Name returns the name of the heuristic.
func (r *RandomAttachment) Name() string {
	return "random"
}

// NodeScores gives each requested node a score drawn from [0, 1).
func (r *RandomAttachment) NodeScores(_ context.Context, _ *TopologyGraph,
	nodes fn.Set[fnwire.PeerID]) (map[fnwire.PeerID]float64, error) {

	r.mu.Lock()
	defer r.mu.Unlock()

	scores := make(map[fnwire.PeerID]float64, len(nodes))
	for peer := range nodes {
		scores[peer] = r.rng.Float64()
	}

	return scores, nil
}
