package fncfg

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nervosnetwork/fnpilot/autopilot"
	"github.com/nervosnetwork/fnpilot/fnwire"
)

const (
	// TokenCkb is the token type of agents funding channels in CKB.
	TokenCkb = "Ckb"

	// TokenUdt is the token type of agents funding channels in a UDT.
	TokenUdt = "Udt"

	// DefaultInterval is the default number of seconds between two agent
	// cycles.
	DefaultInterval = 60
)

// Token selects the asset an agent opens channels in.
type Token struct {
	// Type is either Ckb or Udt.
	Type string `toml:"type"`

	// Name labels a UDT in logs and metrics.
	Name string `toml:"name"`

	// Script is the type script of a UDT.
	Script *fnwire.Script `toml:"script"`
}

// Validate checks that the token is either plain CKB or a fully specified
// UDT.
func (t *Token) Validate() error {
	switch {
	case strings.EqualFold(t.Type, TokenCkb):
		if t.Script != nil {
			return errors.New("ckb token must not have a script")
		}

		return nil

	case strings.EqualFold(t.Type, TokenUdt):
		if t.Name == "" {
			return errors.New("udt token needs a name")
		}
		if t.Script == nil {
			return fmt.Errorf("udt token %v needs a script", t.Name)
		}

		return t.Script.HashType.Validate()

	default:
		return fmt.Errorf("unknown token type %q", t.Type)
	}
}

// Asset returns the autopilot asset type of the token. The token must have
// been validated.
func (t *Token) Asset() autopilot.AssetType {
	if t.Script == nil {
		return autopilot.NativeAsset()
	}

	return autopilot.UdtAsset(t.Name, *t.Script)
}

// Heuristic is one weighted entry of an agent's heuristic list.
type Heuristic struct {
	Heuristic autopilot.HeuristicKind `toml:"heuristic"`
	Weight    float64                 `toml:"weight"`
}

// DefaultHeuristics is the heuristic list used when an agent has none
// configured.
func DefaultHeuristics() []Heuristic {
	return []Heuristic{{
		Heuristic: autopilot.Centrality,
		Weight:    1.0,
	}}
}

// Agent is the configuration of one autopilot agent. Agents are only read
// from the config file.
type Agent struct {
	// Token is the asset channels are funded with.
	Token Token `toml:"token"`

	// ExternalNodes are always considered with the top score.
	ExternalNodes []fnwire.MultiAddr `toml:"external_nodes"`

	// MaxChanNum is the maximum number of channels in the agent's asset.
	MaxChanNum int `toml:"max_chan_num"`

	// Interval is the number of seconds between two cycles.
	Interval uint64 `toml:"interval"`

	// MaxPending is the maximum number of openings in flight.
	MaxPending int `toml:"max_pending"`

	// MinChanFunds and MaxChanFunds bound the funding of a single
	// channel. Both accept decimal or 0x prefixed hex.
	MinChanFunds fnwire.Amount `toml:"min_chan_funds"`
	MaxChanFunds fnwire.Amount `toml:"max_chan_funds"`

	// Heuristics is the weighted list of scoring heuristics.
	Heuristics []Heuristic `toml:"heuristics"`

	// PendingTimeout drops openings that haven't become channels after
	// this long. Zero keeps them pending forever.
	PendingTimeout time.Duration `toml:"pending_timeout"`

	// OpenGracePeriod is the wait between connecting to a peer and
	// opening a channel with it. Nil selects the default.
	OpenGracePeriod *time.Duration `toml:"open_grace_period"`

	// Public announces the opened channels.
	Public *bool `toml:"public"`

	// CentralityWorkers is the size of the centrality worker pool. Zero
	// selects the number of CPUs.
	CentralityWorkers int `toml:"centrality_workers"`
}

// ApplyDefaults fills in the values left out of the config file.
func (a *Agent) ApplyDefaults() {
	if a.Interval == 0 {
		a.Interval = DefaultInterval
	}
	if len(a.Heuristics) == 0 {
		a.Heuristics = DefaultHeuristics()
	}
	if a.OpenGracePeriod == nil {
		grace := autopilot.DefaultOpenGracePeriod
		a.OpenGracePeriod = &grace
	}
	if a.Public == nil {
		public := true
		a.Public = &public
	}
}

// Name returns the label of the agent, the name of its token.
func (a *Agent) Name() string {
	if a.Token.Name != "" {
		return a.Token.Name
	}

	return strings.ToLower(TokenCkb)
}

// IntervalDuration returns the cycle interval.
func (a *Agent) IntervalDuration() time.Duration {
	return time.Duration(a.Interval) * time.Second
}

// WeightSum returns the sum of the configured heuristic weights.
func (a *Agent) WeightSum() float64 {
	var sum float64
	for _, h := range a.Heuristics {
		sum += h.Weight
	}

	return sum
}

// Validate checks the agent config. Defaults must have been applied.
func (a *Agent) Validate() error {
	name := a.Name()
	if err := a.Token.Validate(); err != nil {
		return fmt.Errorf("agent %v: %w", name, err)
	}

	switch {
	case a.MaxChanNum <= 0:
		return fmt.Errorf("agent %v: max_chan_num must be positive",
			name)

	case a.MaxPending <= 0:
		return fmt.Errorf("agent %v: max_pending must be positive",
			name)

	case a.Interval == 0:
		return fmt.Errorf("agent %v: interval must be positive", name)

	case a.MinChanFunds == 0:
		return fmt.Errorf("agent %v: min_chan_funds must be positive",
			name)

	case a.MaxChanFunds < a.MinChanFunds:
		return fmt.Errorf("agent %v: max_chan_funds %v below "+
			"min_chan_funds %v", name, a.MaxChanFunds,
			a.MinChanFunds)

	case a.PendingTimeout < 0:
		return fmt.Errorf("agent %v: pending_timeout must be "+
			"non-negative", name)

	case a.OpenGracePeriod != nil && *a.OpenGracePeriod < 0:
		return fmt.Errorf("agent %v: open_grace_period must be "+
			"non-negative", name)

	case a.CentralityWorkers < 0:
		return fmt.Errorf("agent %v: centrality_workers must be "+
			"non-negative", name)
	}

	for _, h := range a.Heuristics {
		if h.Weight < 0 {
			return fmt.Errorf("agent %v: heuristic %v has negative "+
				"weight %v", name, h.Heuristic, h.Weight)
		}
	}

	for _, addr := range a.ExternalNodes {
		if _, err := addr.PeerID(); err != nil {
			return fmt.Errorf("agent %v: external node: %w", name,
				err)
		}
	}

	return nil
}

// ValidateAgents checks a list of agents. Two agents trading the same
// asset would race each other for the same funds, so that is rejected.
func ValidateAgents(agents []*Agent) error {
	seen := make(map[string]struct{}, len(agents))
	for _, a := range agents {
		if err := a.Validate(); err != nil {
			return err
		}

		key := strings.ToLower(TokenCkb)
		if a.Token.Script != nil {
			key = a.Token.Script.String()
		}
		if _, ok := seen[key]; ok {
			return fmt.Errorf("agent %v: duplicate token", a.Name())
		}
		seen[key] = struct{}{}
	}

	return nil
}
