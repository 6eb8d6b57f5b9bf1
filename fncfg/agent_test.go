package fncfg_test

import (
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/nervosnetwork/fnpilot/autopilot"
	"github.com/nervosnetwork/fnpilot/fncfg"
	"github.com/nervosnetwork/fnpilot/fnwire"
	"github.com/stretchr/testify/require"
)

const testAgentsToml = `
[[agents]]
max_chan_num = 10
interval = 30
max_pending = 3
min_chan_funds = "0x174876e800"
max_chan_funds = 200000000000
external_nodes = [
  "/ip4/127.0.0.1/tcp/8228/p2p/QmXen3eUHhywmutEzydCsW4hXBoeVmdET2FJvMX69XJ1Eo",
]
heuristics = [
  { heuristic = "Centrality", weight = 0.6 },
  { heuristic = "Random", weight = 0.4 },
]
pending_timeout = "10m"

[agents.token]
type = "Ckb"

[[agents]]
max_chan_num = 2
max_pending = 1
min_chan_funds = "0x10"
max_chan_funds = "0x20"
public = false
open_grace_period = "0s"

[agents.token]
type = "Udt"
name = "RUSD"

[agents.token.script]
code_hash = "0x1142755a044bf2ee358cba9f2da187ce928c91cd4dc8692ded0337efa677d21a"
hash_type = "type"
args = "0x878fcc6f1f08d48e87bb1c3b3d5083f23f8a39c5d5c764f253b55b998526439b"
`

// TestDecodeAgents checks that agents are decoded from TOML in the format
// the config file uses, and that defaults are filled in.
func TestDecodeAgents(t *testing.T) {
	t.Parallel()

	var cfg struct {
		Agents []*fncfg.Agent `toml:"agents"`
	}
	md, err := toml.Decode(testAgentsToml, &cfg)
	require.NoError(t, err)
	require.Empty(t, md.Undecoded())
	require.Len(t, cfg.Agents, 2)

	for _, a := range cfg.Agents {
		a.ApplyDefaults()
	}
	require.NoError(t, fncfg.ValidateAgents(cfg.Agents))

	ckb := cfg.Agents[0]
	require.Equal(t, "ckb", ckb.Name())
	require.True(t, ckb.Token.Asset().IsNative())
	require.Equal(t, 30*time.Second, ckb.IntervalDuration())
	require.Equal(t, fnwire.Amount(100_000_000_000), ckb.MinChanFunds)
	require.Equal(t, fnwire.Amount(200_000_000_000), ckb.MaxChanFunds)
	require.Equal(t, 10*time.Minute, ckb.PendingTimeout)
	require.Len(t, ckb.ExternalNodes, 1)
	require.Equal(t, []fncfg.Heuristic{
		{Heuristic: autopilot.Centrality, Weight: 0.6},
		{Heuristic: autopilot.Random, Weight: 0.4},
	}, ckb.Heuristics)
	require.InDelta(t, 1.0, ckb.WeightSum(), 1e-9)
	require.True(t, *ckb.Public)
	require.Equal(t, autopilot.DefaultOpenGracePeriod, *ckb.OpenGracePeriod)

	udt := cfg.Agents[1]
	require.Equal(t, "RUSD", udt.Name())
	require.Equal(t, uint64(fncfg.DefaultInterval), udt.Interval)
	require.Equal(t, fncfg.DefaultHeuristics(), udt.Heuristics)
	require.False(t, *udt.Public)
	require.Zero(t, *udt.OpenGracePeriod)

	asset := udt.Token.Asset()
	require.False(t, asset.IsNative())
	require.Equal(t, "RUSD", asset.String())
	require.True(t, asset.Matches(autopilot.UdtAsset(
		"other", *udt.Token.Script,
	).Script))
}

// validAgent returns an agent config that passes validation.
func validAgent() *fncfg.Agent {
	a := &fncfg.Agent{
		Token:        fncfg.Token{Type: fncfg.TokenCkb},
		MaxChanNum:   5,
		MaxPending:   2,
		MinChanFunds: 100,
		MaxChanFunds: 1000,
	}
	a.ApplyDefaults()

	return a
}

// TestValidateAgent checks every rejected agent setting.
func TestValidateAgent(t *testing.T) {
	t.Parallel()

	negative := -time.Second
	tests := []struct {
		name   string
		modify func(a *fncfg.Agent)
		err    string
	}{
		{
			name:   "valid",
			modify: func(a *fncfg.Agent) {},
		},
		{
			name: "unknown token",
			modify: func(a *fncfg.Agent) {
				a.Token.Type = "btc"
			},
			err: "unknown token type",
		},
		{
			name: "udt without script",
			modify: func(a *fncfg.Agent) {
				a.Token = fncfg.Token{Type: "udt", Name: "x"}
			},
			err: "needs a script",
		},
		{
			name: "udt without name",
			modify: func(a *fncfg.Agent) {
				a.Token = fncfg.Token{
					Type:   fncfg.TokenUdt,
					Script: &fnwire.Script{},
				}
			},
			err: "needs a name",
		},
		{
			name: "udt bad hash type",
			modify: func(a *fncfg.Agent) {
				a.Token = fncfg.Token{
					Type: fncfg.TokenUdt,
					Name: "x",
					Script: &fnwire.Script{
						HashType: "data9",
					},
				}
			},
			err: "unknown script hash type",
		},
		{
			name: "zero channels",
			modify: func(a *fncfg.Agent) {
				a.MaxChanNum = 0
			},
			err: "max_chan_num",
		},
		{
			name: "zero pending",
			modify: func(a *fncfg.Agent) {
				a.MaxPending = 0
			},
			err: "max_pending",
		},
		{
			name: "zero min funds",
			modify: func(a *fncfg.Agent) {
				a.MinChanFunds = 0
			},
			err: "min_chan_funds",
		},
		{
			name: "max below min",
			modify: func(a *fncfg.Agent) {
				a.MaxChanFunds = 10
			},
			err: "below min_chan_funds",
		},
		{
			name: "negative grace",
			modify: func(a *fncfg.Agent) {
				a.OpenGracePeriod = &negative
			},
			err: "open_grace_period",
		},
		{
			name: "negative weight",
			modify: func(a *fncfg.Agent) {
				a.Heuristics = []fncfg.Heuristic{{
					Heuristic: autopilot.Random,
					Weight:    -1,
				}}
			},
			err: "negative weight",
		},
		{
			name: "external node without peer id",
			modify: func(a *fncfg.Agent) {
				a.ExternalNodes = []fnwire.MultiAddr{
					"/ip4/127.0.0.1/tcp/8228",
				}
			},
			err: "external node",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			a := validAgent()
			test.modify(a)

			err := a.Validate()
			if test.err == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, test.err)
		})
	}
}

// TestValidateAgentsDuplicate checks that two agents can't share a token.
func TestValidateAgentsDuplicate(t *testing.T) {
	t.Parallel()

	require.NoError(t, fncfg.ValidateAgents(nil))

	err := fncfg.ValidateAgents([]*fncfg.Agent{validAgent(), validAgent()})
	require.ErrorContains(t, err, "duplicate token")
}

// TestUnknownHeuristic checks that a misspelled heuristic fails decoding.
func TestUnknownHeuristic(t *testing.T) {
	t.Parallel()

	var a fncfg.Agent
	_, err := toml.Decode(
		`heuristics = [{ heuristic = "PageRank", weight = 1.0 }]`, &a,
	)
	require.ErrorContains(t, err, "unknown heuristic")
}
