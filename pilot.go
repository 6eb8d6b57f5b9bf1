package fnpilot

import (
	"context"
	"fmt"
	"strings"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/nervosnetwork/fnpilot/autopilot"
	"github.com/nervosnetwork/fnpilot/ckbrpc"
	"github.com/nervosnetwork/fnpilot/fncfg"
	"github.com/nervosnetwork/fnpilot/fnrpc"
	"github.com/nervosnetwork/fnpilot/fnutils"
	"github.com/nervosnetwork/fnpilot/fnwire"
	"github.com/nervosnetwork/fnpilot/monitoring"
)

// rpcGraphSource is an implementation of the autopilot.GraphSource interface
// that's backed by a running Fiber node and a CKB indexer.
type rpcGraphSource struct {
	fiber *fnrpc.Client
	ckb   *ckbrpc.Client
}

// A compile time assertion to ensure rpcGraphSource meets the
// autopilot.GraphSource interface.
var _ autopilot.GraphSource = (*rpcGraphSource)(nil)

// NodeInfo returns the identity and funding lock of the local node.
func (r *rpcGraphSource) NodeInfo(
	ctx context.Context) (*autopilot.SelfInfo, error) {

	info, err := r.fiber.NodeInfo(ctx)
	if err != nil {
		return nil, err
	}

	return &autopilot.SelfInfo{
		ID:          info.NodeID,
		Name:        info.NodeName,
		FundingLock: info.DefaultFundingLockScript,
	}, nil
}

// GraphNodes returns the announced nodes. Nodes whose key can't be turned
// into a peer id are skipped.
func (r *rpcGraphSource) GraphNodes(
	ctx context.Context) ([]autopilot.NodeRecord, error) {

	nodes, err := r.fiber.GraphNodes(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]autopilot.NodeRecord, 0, len(nodes))
	for _, node := range nodes {
		peer, err := fnwire.NewPeerID(node.NodeID)
		if err != nil {
			fnplLog.Warnf("Skipping graph node %v: %v", node.NodeID,
				err)
			continue
		}

		udts := make([]autopilot.UdtFunding, 0, len(node.UdtCfgInfos))
		for _, udt := range node.UdtCfgInfos {
			udts = append(udts, autopilot.UdtFunding{
				Script:     udt.Script,
				MinFunding: fn.OptionFromPtr(udt.AutoAcceptAmount),
			})
		}

		records = append(records, autopilot.NodeRecord{
			ID:            node.NodeID,
			Peer:          peer,
			Name:          node.NodeName,
			Timestamp:     uint64(node.Timestamp),
			Addrs:         node.Addresses,
			MinCkbFunding: node.AutoAcceptMinCkbFundingAmount,
			Udts:          udts,
		})
	}

	fnplLog.Tracef("Fetched %d graph nodes: %v", len(records),
		fnutils.NewLogClosure(func() string {
			names := make([]string, 0, len(records))
			for _, rec := range records {
				names = append(names, rec.Name)
			}

			return strings.Join(names, ", ")
		}))

	return records, nil
}

// GraphChannels returns the announced channels.
func (r *rpcGraphSource) GraphChannels(
	ctx context.Context) ([]autopilot.ChannelEdge, error) {

	channels, err := r.fiber.GraphChannels(ctx)
	if err != nil {
		return nil, err
	}

	edges := make([]autopilot.ChannelEdge, 0, len(channels))
	for _, c := range channels {
		edges = append(edges, autopilot.ChannelEdge{
			Outpoint:  c.ChannelOutpoint,
			Node1:     c.Node1,
			Node2:     c.Node2,
			Capacity:  c.Capacity,
			CreatedAt: uint64(c.CreatedTimestamp),
			Asset:     fn.OptionFromPtr(c.UdtTypeScript),
		})
	}

	return edges, nil
}

// LocalChannels returns the channels of the local node that aren't closed.
func (r *rpcGraphSource) LocalChannels(
	ctx context.Context) ([]autopilot.LocalChannel, error) {

	channels, err := r.fiber.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	local := make([]autopilot.LocalChannel, 0, len(channels))
	for _, c := range channels {
		local = append(local, autopilot.LocalChannel{
			ChanID:   c.ChannelID,
			Outpoint: c.ChannelOutpoint,
			Peer:     c.PeerID,
			Balance:  c.LocalBalance,
			Asset:    fn.OptionFromPtr(c.FundingUdtTypeScript),
		})
	}

	return local, nil
}

// ConnectPeer asks the Fiber node to dial addr.
func (r *rpcGraphSource) ConnectPeer(ctx context.Context,
	addr fnwire.MultiAddr) error {

	return r.fiber.ConnectPeer(ctx, addr)
}

// OpenChannel asks the Fiber node to open the requested channel.
func (r *rpcGraphSource) OpenChannel(ctx context.Context,
	req *autopilot.OpenChannelRequest) (fnwire.Hash256, error) {

	public := req.Public
	params := &fnrpc.OpenChannelParams{
		PeerID:        req.Peer,
		FundingAmount: req.Amount,
		Public:        &public,
	}
	req.Asset.Script.WhenSome(func(script fnwire.Script) {
		params.FundingUdtTypeScript = &script
	})

	return r.fiber.OpenChannel(ctx, params)
}

// GetBalance queries the indexer for the funds of the given asset guarded by
// lock.
func (r *rpcGraphSource) GetBalance(ctx context.Context, lock fnwire.Script,
	asset autopilot.AssetType) (fnwire.Amount, error) {

	if asset.IsNative() {
		return r.ckb.CkbBalance(ctx, lock)
	}

	return r.ckb.UdtBalance(ctx, lock, asset.Script.UnsafeFromSome())
}

// buildHeuristic creates the weighted combination of the heuristics
// configured for an agent.
func buildHeuristic(cfg *fncfg.Agent) (*autopilot.WeightedCombAttachment,
	error) {

	hcfg := &autopilot.HeuristicConfig{
		CentralityWorkers: cfg.CentralityWorkers,
	}

	heuristics := make([]*autopilot.WeightedHeuristic, 0,
		len(cfg.Heuristics))
	for _, h := range cfg.Heuristics {
		a, err := autopilot.NewHeuristic(h.Heuristic, hcfg)
		if err != nil {
			return nil, fmt.Errorf("agent %v: %w", cfg.Name(), err)
		}

		heuristics = append(heuristics, &autopilot.WeightedHeuristic{
			Weight:              h.Weight,
			AttachmentHeuristic: a,
		})
	}

	// Check found heuristics. We must have at least one to operate.
	if len(heuristics) == 0 {
		return nil, fmt.Errorf("agent %v: no active heuristics",
			cfg.Name())
	}

	return autopilot.NewWeightedCombAttachment(heuristics...), nil
}

// initAutoPilot initializes one autopilot agent per configured token. All
// agents share source. If metrics is non-nil every agent reports to it.
func initAutoPilot(agents []*fncfg.Agent, source autopilot.GraphSource,
	metrics *monitoring.AgentMetrics) ([]*autopilot.Agent, error) {

	pilots := make([]*autopilot.Agent, 0, len(agents))
	for _, cfg := range agents {
		fnplLog.Infof("Instantiating autopilot agent %v with "+
			"max_chan_num=%d, max_pending=%d, min_chan_funds=%v, "+
			"max_chan_funds=%v, interval=%v, public=%t", cfg.Name(),
			cfg.MaxChanNum, cfg.MaxPending, cfg.MinChanFunds,
			cfg.MaxChanFunds, cfg.IntervalDuration(), *cfg.Public)

		heuristic, err := buildHeuristic(cfg)
		if err != nil {
			return nil, err
		}

		// Set up the constraints the autopilot heuristics must adhere
		// to.
		constraints := autopilot.NewConstraints(
			cfg.MinChanFunds, cfg.MaxChanFunds, cfg.MaxChanNum,
			cfg.MaxPending,
		)

		pilotCfg := autopilot.Config{
			Name:            cfg.Name(),
			Source:          source,
			Heuristic:       heuristic,
			Constraints:     constraints,
			Asset:           cfg.Token.Asset(),
			ExternalNodes:   cfg.ExternalNodes,
			Public:          *cfg.Public,
			Ticker:          ticker.New(cfg.IntervalDuration()),
			OpenGracePeriod: *cfg.OpenGracePeriod,
			PendingTimeout:  cfg.PendingTimeout,
		}
		if metrics != nil {
			pilotCfg.Observer = metrics.ForAgent(cfg.Name())
		}

		pilot, err := autopilot.New(pilotCfg)
		if err != nil {
			return nil, fmt.Errorf("agent %v: %w", cfg.Name(), err)
		}

		pilots = append(pilots, pilot)
	}

	return pilots, nil
}
