package autopilot

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// HeuristicKind enumerates the heuristics an agent can be configured with.
type HeuristicKind uint8

const (
	// Centrality scores nodes by their betweenness centrality.
	Centrality HeuristicKind = iota

	// Random scores nodes uniformly at random.
	Random

	// Richness scores nodes by their number of well funded channels.
	Richness
)

// String returns the config name of the heuristic kind.
func (k HeuristicKind) String() string {
	switch k {
	case Centrality:
		return "Centrality"

	case Random:
		return "Random"

	case Richness:
		return "Richness"

	default:
		return fmt.Sprintf("HeuristicKind(%d)", uint8(k))
	}
}

// ParseHeuristicKind parses a heuristic name as it appears in the config
// file. Matching is case insensitive.
func ParseHeuristicKind(s string) (HeuristicKind, error) {
	switch strings.ToLower(s) {
	case "centrality", "top_centrality", "betweenness_centrality":
		return Centrality, nil

	case "random":
		return Random, nil

	case "richness":
		return Richness, nil

	default:
		return 0, fmt.Errorf("unknown heuristic %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k HeuristicKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *HeuristicKind) UnmarshalText(text []byte) error {
	kind, err := ParseHeuristicKind(string(text))
	if err != nil {
		return err
	}
	*k = kind

	return nil
}

// HeuristicConfig carries the knobs individual heuristics need.
type HeuristicConfig struct {
	// CentralityWorkers is the size of the centrality worker pool.
	CentralityWorkers int

	// Rand is the random source of the Random heuristic. A nil value
	// selects a randomly seeded source.
	Rand *rand.Rand
}

// NewHeuristic creates the heuristic of the given kind.
func NewHeuristic(kind HeuristicKind,
	cfg *HeuristicConfig) (AttachmentHeuristic, error) {

	switch kind {
	case Centrality:
		workers := cfg.CentralityWorkers
		if workers == 0 {
			workers = DefaultCentralityWorkers()
		}

		return NewTopCentrality(workers)

	case Random:
		return NewRandomAttachment(cfg.Rand), nil

	case Richness:
		return NewRichnessAttachment(), nil

	default:
		return nil, fmt.Errorf("unknown heuristic kind %v", kind)
	}
}
