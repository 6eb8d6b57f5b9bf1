package fnrpc

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/nervosnetwork/fnpilot/fnwire"
)

// NodeInfoResult is the result of node_info.
type NodeInfoResult struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`

	NodeID    fnwire.Pubkey      `json:"node_id"`
	NodeName  string             `json:"node_name"`
	Addresses []fnwire.MultiAddr `json:"addresses"`
	ChainHash fnwire.Hash256     `json:"chain_hash"`

	OpenChannelAutoAcceptMinCkbFundingAmount fnwire.Amount `json:"open_channel_auto_accept_min_ckb_funding_amount"`
	AutoAcceptChannelCkbFundingAmount        fnwire.Amount `json:"auto_accept_channel_ckb_funding_amount"`

	DefaultFundingLockScript fnwire.Script `json:"default_funding_lock_script"`

	ChannelCount        hexutil.Uint64 `json:"channel_count"`
	PendingChannelCount hexutil.Uint64 `json:"pending_channel_count"`
	PeersCount          hexutil.Uint64 `json:"peers_count"`
}

// PageParams are the paging parameters of graph_nodes and graph_channels.
type PageParams struct {
	Limit *hexutil.Uint64 `json:"limit,omitempty"`
	After hexutil.Bytes   `json:"after,omitempty"`
}

// UdtArgInfo is the auto accept configuration of a node for one UDT.
type UdtArgInfo struct {
	Name             string         `json:"name"`
	Script           fnwire.Script  `json:"script"`
	AutoAcceptAmount *fnwire.Amount `json:"auto_accept_amount,omitempty"`
}

// NodeInfo is a node announcement as returned by graph_nodes.
type NodeInfo struct {
	NodeName  string             `json:"node_name"`
	Addresses []fnwire.MultiAddr `json:"addresses"`
	NodeID    fnwire.Pubkey      `json:"node_id"`
	Timestamp hexutil.Uint64     `json:"timestamp"`
	ChainHash fnwire.Hash256     `json:"chain_hash"`

	AutoAcceptMinCkbFundingAmount fnwire.Amount `json:"auto_accept_min_ckb_funding_amount"`

	UdtCfgInfos []UdtArgInfo `json:"udt_cfg_infos"`
}

// GraphNodesResult is the result of graph_nodes.
type GraphNodesResult struct {
	Nodes      []NodeInfo    `json:"nodes"`
	LastCursor hexutil.Bytes `json:"last_cursor"`
}

// ChannelInfo is a channel announcement as returned by graph_channels.
type ChannelInfo struct {
	ChannelOutpoint  fnwire.OutPoint `json:"channel_outpoint"`
	Node1            fnwire.Pubkey   `json:"node1"`
	Node2            fnwire.Pubkey   `json:"node2"`
	CreatedTimestamp hexutil.Uint64  `json:"created_timestamp"`
	Capacity         fnwire.Amount   `json:"capacity"`
	ChainHash        fnwire.Hash256  `json:"chain_hash"`
	UdtTypeScript    *fnwire.Script  `json:"udt_type_script,omitempty"`
}

// GraphChannelsResult is the result of graph_channels.
type GraphChannelsResult struct {
	Channels   []ChannelInfo `json:"channels"`
	LastCursor hexutil.Bytes `json:"last_cursor"`
}

// ListChannelsParams are the parameters of list_channels.
type ListChannelsParams struct {
	PeerID        *fnwire.PeerID `json:"peer_id,omitempty"`
	IncludeClosed *bool          `json:"include_closed,omitempty"`
}

// ChannelState is the state of a local channel.
type ChannelState struct {
	StateName  string `json:"state_name"`
	StateFlags any    `json:"state_flags,omitempty"`
}

// Channel is a local channel as returned by list_channels.
type Channel struct {
	ChannelID             fnwire.Hash256  `json:"channel_id"`
	IsPublic              bool            `json:"is_public"`
	ChannelOutpoint       fnwire.OutPoint `json:"channel_outpoint,omitempty"`
	PeerID                fnwire.PeerID   `json:"peer_id"`
	FundingUdtTypeScript  *fnwire.Script  `json:"funding_udt_type_script,omitempty"`
	State                 ChannelState    `json:"state"`
	LocalBalance          fnwire.Amount   `json:"local_balance"`
	RemoteBalance         fnwire.Amount   `json:"remote_balance"`
	OfferedTlcBalance     fnwire.Amount   `json:"offered_tlc_balance"`
	ReceivedTlcBalance    fnwire.Amount   `json:"received_tlc_balance"`
	CreatedAt             hexutil.Uint64  `json:"created_at"`
	Enabled               bool            `json:"enabled"`
	TlcExpiryDelta        hexutil.Uint64  `json:"tlc_expiry_delta"`
	TlcFeeProportionalMil fnwire.Amount   `json:"tlc_fee_proportional_millionths"`
}

// ListChannelsResult is the result of list_channels.
type ListChannelsResult struct {
	Channels []Channel `json:"channels"`
}

// ConnectPeerParams are the parameters of connect_peer.
type ConnectPeerParams struct {
	Address fnwire.MultiAddr `json:"address"`
	Save    *bool            `json:"save,omitempty"`
}

// OpenChannelParams are the parameters of open_channel.
type OpenChannelParams struct {
	PeerID               fnwire.PeerID  `json:"peer_id"`
	FundingAmount        fnwire.Amount  `json:"funding_amount"`
	Public               *bool          `json:"public,omitempty"`
	FundingUdtTypeScript *fnwire.Script `json:"funding_udt_type_script,omitempty"`
}

// OpenChannelResult is the result of open_channel.
type OpenChannelResult struct {
	TemporaryChannelID fnwire.Hash256 `json:"temporary_channel_id"`
}
