package autopilot

import (
	"time"

	"github.com/nervosnetwork/fnpilot/fnwire"
)

// pendingSet tracks the peers the agent is currently opening a channel
// with, and when each attempt started. It is owned by the controller
// goroutine and needs no locking.
type pendingSet struct {
	peers map[fnwire.PeerID]time.Time
}

func newPendingSet() *pendingSet {
	return &pendingSet{
		peers: make(map[fnwire.PeerID]time.Time),
	}
}

func (p *pendingSet) add(peer fnwire.PeerID, started time.Time) {
	p.peers[peer] = started
}

// remove drops the peer and reports whether it was pending.
func (p *pendingSet) remove(peer fnwire.PeerID) bool {
	if _, ok := p.peers[peer]; !ok {
		return false
	}
	delete(p.peers, peer)

	return true
}

func (p *pendingSet) contains(peer fnwire.PeerID) bool {
	_, ok := p.peers[peer]
	return ok
}

func (p *pendingSet) size() int {
	return len(p.peers)
}

// expire drops and returns every peer whose attempt started more than
// timeout before now.
func (p *pendingSet) expire(now time.Time,
	timeout time.Duration) []fnwire.PeerID {

	var expired []fnwire.PeerID
	for peer, started := range p.peers {
		if now.Sub(started) > timeout {
			expired = append(expired, peer)
		}
	}

	for _, peer := range expired {
		delete(p.peers, peer)
	}

	return expired
}
