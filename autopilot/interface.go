package autopilot

import (
	"context"
	"errors"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/nervosnetwork/fnpilot/fnwire"
)

var (
	// ErrMissingScore is returned when a heuristic did not score a node
	// it was asked to score.
	ErrMissingScore = errors.New("heuristic returned no score for node")

	// ErrInsufficientFunds is returned when the available balance can't
	// cover even the smallest channel the agent is allowed to open.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// NodeID is the serialized compressed identity key of a node in the channel
// graph.
type NodeID = fnwire.Pubkey

// AssetType is the token an agent opens channels in. The native CKB token
// carries no type script, a UDT is identified by its type script.
type AssetType struct {
	// Name is a human readable label used in logs and metrics.
	Name string

	// Script is the UDT type script, or None for native CKB.
	Script fn.Option[fnwire.Script]
}

// NativeAsset returns the asset type of the native CKB token.
func NativeAsset() AssetType {
	return AssetType{
		Name:   "ckb",
		Script: fn.None[fnwire.Script](),
	}
}

// UdtAsset returns the asset type of the UDT with the given type script.
func UdtAsset(name string, script fnwire.Script) AssetType {
	return AssetType{
		Name:   name,
		Script: fn.Some(script),
	}
}

// IsNative reports whether this is the native CKB asset.
func (a AssetType) IsNative() bool {
	return a.Script.IsNone()
}

// Matches reports whether a channel or record funded with the given UDT
// type script (None for CKB) is denominated in this asset.
func (a AssetType) Matches(script fn.Option[fnwire.Script]) bool {
	switch {
	case a.Script.IsNone() && script.IsNone():
		return true

	case a.Script.IsSome() && script.IsSome():
		want := a.Script.UnsafeFromSome()
		return want.Equal(script.UnsafeFromSome())

	default:
		return false
	}
}

// String returns the asset name.
func (a AssetType) String() string {
	return a.Name
}

// UdtFunding is the auto accept configuration a node advertises for one UDT.
type UdtFunding struct {
	// Script is the type script of the UDT.
	Script fnwire.Script

	// MinFunding is the smallest funding amount the node auto accepts.
	// None means the node does not auto accept channels in this UDT.
	MinFunding fn.Option[fnwire.Amount]
}

// NodeRecord is a node as announced in the network graph.
type NodeRecord struct {
	// ID is the identity key of the node.
	ID NodeID

	// Peer is the transport identity derived from ID.
	Peer fnwire.PeerID

	// Name is the announced node alias.
	Name string

	// Timestamp is the announcement time in milliseconds.
	Timestamp uint64

	// Addrs is the list of addresses the node can be reached at.
	Addrs []fnwire.MultiAddr

	// MinCkbFunding is the smallest CKB funding amount the node auto
	// accepts.
	MinCkbFunding fnwire.Amount

	// Udts lists the UDTs the node accepts channels in.
	Udts []UdtFunding
}

// MinFunding returns the minimum funding amount the node accepts for the
// given asset. The second return value is false if the node does not
// accept channels in this asset at all.
func (n *NodeRecord) MinFunding(asset AssetType) (fnwire.Amount, bool) {
	if asset.IsNative() {
		return n.MinCkbFunding, true
	}

	script := asset.Script.UnsafeFromSome()
	for _, udt := range n.Udts {
		if !udt.Script.Equal(script) {
			continue
		}

		return udt.MinFunding.UnwrapOr(0), udt.MinFunding.IsSome()
	}

	return 0, false
}

// ChannelEdge is a public channel as announced in the network graph.
type ChannelEdge struct {
	// Outpoint is the funding out point of the channel.
	Outpoint fnwire.OutPoint

	// Node1 and Node2 are the endpoints of the channel.
	Node1 NodeID
	Node2 NodeID

	// Capacity is the total capacity of the channel.
	Capacity fnwire.Amount

	// CreatedAt is the creation time of the channel in milliseconds.
	CreatedAt uint64

	// Asset is the UDT type script of the channel, None for CKB.
	Asset fn.Option[fnwire.Script]
}

// LocalChannel is a simple struct which contains relevant details of a
// particular channel the local node has.
type LocalChannel struct {
	// ChanID is the id of the channel.
	ChanID fnwire.Hash256

	// Outpoint is the funding out point, empty while the funding
	// transaction is unconfirmed.
	Outpoint fnwire.OutPoint

	// Peer is the remote party of the channel.
	Peer fnwire.PeerID

	// Balance is the local balance of the channel.
	Balance fnwire.Amount

	// Asset is the UDT type script of the channel, None for CKB.
	Asset fn.Option[fnwire.Script]
}

// SelfInfo describes the local node.
type SelfInfo struct {
	// ID is the identity key of the local node.
	ID NodeID

	// Name is the alias of the local node.
	Name string

	// FundingLock is the lock script that guards the funds the node
	// uses to open channels.
	FundingLock fnwire.Script
}

// OpenChannelRequest describes a channel the agent wants opened.
type OpenChannelRequest struct {
	// Peer is the node to open the channel with.
	Peer fnwire.PeerID

	// Amount is the funding amount of the channel.
	Amount fnwire.Amount

	// Asset is the token the channel is funded with.
	Asset AssetType

	// Public controls whether the channel is announced to the network.
	Public bool
}

// GraphSource is the view of the local node and the network the agent acts
// on. The production implementation talks to a Fiber node and a CKB
// indexer over JSON-RPC.
type GraphSource interface {
	// NodeInfo returns information about the local node.
	NodeInfo(ctx context.Context) (*SelfInfo, error)

	// GraphNodes returns all nodes of the network graph.
	GraphNodes(ctx context.Context) ([]NodeRecord, error)

	// GraphChannels returns all channels of the network graph.
	GraphChannels(ctx context.Context) ([]ChannelEdge, error)

	// LocalChannels returns the open channels of the local node.
	LocalChannels(ctx context.Context) ([]LocalChannel, error)

	// ConnectPeer dials the given address.
	ConnectPeer(ctx context.Context, addr fnwire.MultiAddr) error

	// OpenChannel starts opening a channel and returns its temporary
	// channel id. It returns once the request has been accepted, not
	// once the channel is usable.
	OpenChannel(ctx context.Context,
		req *OpenChannelRequest) (fnwire.Hash256, error)

	// GetBalance returns the spendable amount of the given asset that
	// is guarded by the lock script.
	GetBalance(ctx context.Context, lock fnwire.Script,
		asset AssetType) (fnwire.Amount, error)
}

// AttachmentHeuristic is one of the primary interfaces within this package.
// Implementations of this interface score nodes by how much the local node
// would gain from opening a channel with them.
type AttachmentHeuristic interface {
	// Name returns the name of this heuristic.
	Name() string

	// NodeScores scores each of the given nodes. The returned map must
	// contain an entry for every requested node, and the scores must be
	// in the range [0, 1.0].
	NodeScores(ctx context.Context, g *TopologyGraph,
		nodes fn.Set[fnwire.PeerID]) (map[fnwire.PeerID]float64, error)
}

// NodeMetric is a common interface for all graph metrics that are not
// directly used as autopilot node scores but may be used in compositional
// heuristics or statistical information exposed to users.
type NodeMetric interface {
	// Name returns the unique name of this metric.
	Name() string

	// Refresh refreshes the metric values based on the given graph.
	Refresh(ctx context.Context, g *TopologyGraph) error

	// GetMetric returns the latest value of this metric. Values in the
	// map are per node and can be in arbitrary domain. If normalize is
	// set to true, then the returned values are normalized to [0, 1].
	GetMetric(normalize bool) (map[fnwire.PeerID]float64, error)
}

// missingScoreError wraps ErrMissingScore with the heuristic and node.
func missingScoreError(heuristic string, peer fnwire.PeerID) error {
	return fmt.Errorf("%w: heuristic=%v, peer=%v", ErrMissingScore,
		heuristic, peer)
}
