package autopilot

import (
	"fmt"

	"github.com/nervosnetwork/fnpilot/fnwire"
)

// MaxOpensPerCycle caps the number of channels an agent starts opening in a
// single cycle.
const MaxOpensPerCycle = 20

// AgentConstraints is an interface the agent will query to determine what
// limits it will need to stay inside when opening channels.
type AgentConstraints interface {
	// ChanSize returns the amount to fund each new channel with given
	// the available balance, or ErrInsufficientFunds if the balance
	// can't cover the smallest allowed channel.
	ChanSize(available fnwire.Amount) (fnwire.Amount, error)

	// ChannelSlots returns how many channels may be opened this cycle
	// given the number of open channels in the agent's asset. The
	// pending limit is applied separately.
	ChannelSlots(numChans int) int

	// MaxPendingOpens returns the maximum number of channel openings
	// that can be in flight at once.
	MaxPendingOpens() int

	// MinChanSize returns the smallest channel that the autopilot agent
	// should create.
	MinChanSize() fnwire.Amount

	// MaxChanSize returns largest channel that the autopilot agent should
	// create.
	MaxChanSize() fnwire.Amount
}

// agentConstraints is an implementation of the AgentConstraints interface that
// indicate the constraints the autopilot agent must adhere to when opening
// channels.
type agentConstraints struct {
	// minChanSize is the smallest channel that the autopilot agent should
	// create.
	minChanSize fnwire.Amount

	// maxChanSize is the largest channel that the autopilot agent should
	// create.
	maxChanSize fnwire.Amount

	// chanLimit is the maximum number of channels that should be created.
	chanLimit int

	// maxPendingOpens is the maximum number of channel openings that may
	// be in flight. We cap this value in order to control the level of
	// parallelism caused by the autopilot agent.
	maxPendingOpens int
}

// A compile time assertion to ensure agentConstraints satisfies the
// AgentConstraints interface.
var _ AgentConstraints = (*agentConstraints)(nil)

// NewConstraints returns a new AgentConstraints with the given limits.
func NewConstraints(minChanSize, maxChanSize fnwire.Amount, chanLimit,
	maxPendingOpens int) AgentConstraints {

	return &agentConstraints{
		minChanSize:     minChanSize,
		maxChanSize:     maxChanSize,
		chanLimit:       chanLimit,
		maxPendingOpens: maxPendingOpens,
	}
}

// ChanSize returns the size of each channel opened this cycle: the maximum
// channel size, or everything that is available if that is less.
//
// Note: part of the AgentConstraints interface.
func (h *agentConstraints) ChanSize(
	available fnwire.Amount) (fnwire.Amount, error) {

	size := min(h.maxChanSize, available)
	if size < h.minChanSize {
		return 0, fmt.Errorf("%w: available=%v, min_chan_funds=%v",
			ErrInsufficientFunds, available, h.minChanSize)
	}

	return size, nil
}

// ChannelSlots returns the number of additional channels allowed this
// cycle.
//
// Note: part of the AgentConstraints interface.
func (h *agentConstraints) ChannelSlots(numChans int) int {
	// If we're already over our maximum allowed number of channels, then
	// we'll instruct the controller not to create any more channels.
	if numChans >= h.chanLimit {
		return 0
	}

	return min(h.chanLimit-numChans, MaxOpensPerCycle)
}

// MaxPendingOpens returns the maximum number of pending channel openings.
//
// Note: part of the AgentConstraints interface.
func (h *agentConstraints) MaxPendingOpens() int {
	return h.maxPendingOpens
}

// MinChanSize returns the smallest channel that the autopilot agent should
// create.
//
// Note: part of the AgentConstraints interface.
func (h *agentConstraints) MinChanSize() fnwire.Amount {
	return h.minChanSize
}

// MaxChanSize returns largest channel that the autopilot agent should create.
//
// Note: part of the AgentConstraints interface.
func (h *agentConstraints) MaxChanSize() fnwire.Amount {
	return h.maxChanSize
}
