package autopilot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/nervosnetwork/fnpilot/fnutils"
	"github.com/nervosnetwork/fnpilot/fnwire"
	"golang.org/x/sync/errgroup"
)

// DefaultOpenGracePeriod is the time given to a freshly connected peer to
// finish its handshake before the channel is opened.
const DefaultOpenGracePeriod = 3 * time.Second

// Observer receives the outcome of agent activity. It is used to export
// metrics and must not block.
type Observer interface {
	// ObserveCycle is called after every cycle with its duration and
	// error.
	ObserveCycle(elapsed time.Duration, err error)

	// ObserveOpen is called with the outcome of every channel opening
	// attempt.
	ObserveOpen(err error)

	// ObservePending is called whenever the number of pending openings
	// may have changed.
	ObservePending(n int)
}

// noopObserver is used when no Observer is configured.
type noopObserver struct{}

func (noopObserver) ObserveCycle(time.Duration, error) {}
func (noopObserver) ObserveOpen(error)                 {}
func (noopObserver) ObservePending(int)                {}

// Config couples all the items that an autopilot agent needs to function.
// All items within the struct MUST be populated for the Agent to be able to
// carry out its duties, unless documented otherwise.
type Config struct {
	// Name identifies the agent in logs and metrics.
	Name string

	// Source is the agent's view of the local node and the network. It
	// is also used to connect to peers and open channels.
	Source GraphSource

	// Heuristic is the scoring function used to rank candidate peers.
	Heuristic AttachmentHeuristic

	// Constraints is the set of limits the agent must stay within.
	Constraints AgentConstraints

	// Asset is the token channels are funded with.
	Asset AssetType

	// ExternalNodes are peers that are always considered with the highest
	// score, whether or not they are part of the graph.
	ExternalNodes []fnwire.MultiAddr

	// Public controls whether opened channels are announced.
	Public bool

	// Ticker drives the agent's cycles.
	Ticker ticker.Ticker

	// Clock is the time source for the open grace period and pending
	// timeouts.
	Clock clock.Clock

	// OpenGracePeriod is the wait between connecting to a peer and
	// opening the channel.
	OpenGracePeriod time.Duration

	// PendingTimeout drops pending openings that haven't shown up in the
	// channel list after this long. Zero keeps them pending until they
	// do.
	PendingTimeout time.Duration

	// Rand is the random source used to sample peers. Optional.
	Rand *rand.Rand

	// Observer receives cycle and open outcomes. Optional.
	Observer Observer
}

// openResult is sent back to the controller by every open action.
type openResult struct {
	directive AttachmentDirective
	tempID    fnwire.Hash256
	err       error
}

// AttachmentDirective describes a channel attachment decided on by the
// agent: which node to open a channel with, where to reach it and how much
// to fund the channel with.
type AttachmentDirective struct {
	// Peer is the target node.
	Peer fnwire.PeerID

	// Addr is the address the node is connected on.
	Addr fnwire.MultiAddr

	// ChanAmt is the funding amount of the channel.
	ChanAmt fnwire.Amount

	// Score is the score the node was selected with.
	Score float64
}

// snapshot is everything fetched from the GraphSource at the start of a
// cycle.
type snapshot struct {
	nodes   []NodeRecord
	edges   []ChannelEdge
	local   []LocalChannel
	balance fnwire.Amount
}

// Agent implements a closed-loop control system which seeks to
// autonomously optimize the allocation of funds to channels within the
// network for one asset. Every cycle it takes a fresh snapshot of the
// network, scores candidate peers with its heuristic, samples the peers to
// attach to and opens channels with them concurrently.
type Agent struct {
	started sync.Once
	stopped sync.Once

	cfg Config

	// self describes the local node. It is fetched once on start.
	self *SelfInfo

	// selfPeer is the peer id of the local node.
	selfPeer fnwire.PeerID

	// pending is only accessed by the goroutine running cycles.
	pending *pendingSet

	rng *rand.Rand

	// externals are the parsed ExternalNodes in config order.
	externals []externalNode

	gm *fn.GoroutineManager

	cancel context.CancelFunc
	quit   chan struct{}
	wg     sync.WaitGroup
}

// externalNode is an always-consider peer together with its address.
type externalNode struct {
	peer fnwire.PeerID
	addr fnwire.MultiAddr
}

// New creates a new instance of the Agent. The agent does nothing until
// Start is called.
func New(cfg Config) (*Agent, error) {
	switch {
	case cfg.Source == nil:
		return nil, errors.New("autopilot: graph source required")

	case cfg.Heuristic == nil:
		return nil, errors.New("autopilot: heuristic required")

	case cfg.Constraints == nil:
		return nil, errors.New("autopilot: constraints required")

	case cfg.Ticker == nil:
		return nil, errors.New("autopilot: ticker required")
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Asset.Name
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	a := &Agent{
		cfg:     cfg,
		pending: newPendingSet(),
		rng:     rng,
		gm:      fn.NewGoroutineManager(),
		quit:    make(chan struct{}),
	}

	for _, addr := range cfg.ExternalNodes {
		peer, err := addr.PeerID()
		if err != nil {
			log.Warnf("Agent(%v): ignoring external node: %v",
				cfg.Name, err)
			continue
		}

		a.externals = append(a.externals, externalNode{
			peer: peer,
			addr: addr,
		})
	}

	return a, nil
}

// Init fetches the identity of the local node. It is called by Start, and
// may be called directly to use RunOnce without the background loop.
func (a *Agent) Init(ctx context.Context) error {
	self, err := a.cfg.Source.NodeInfo(ctx)
	if err != nil {
		return fmt.Errorf("unable to fetch node info: %w", err)
	}

	selfPeer, err := fnwire.NewPeerID(self.ID)
	if err != nil {
		return err
	}

	a.self = self
	a.selfPeer = selfPeer

	log.InfoS(ctx, "Agent initialized",
		slog.String("agent", a.cfg.Name),
		slog.String("node_name", self.Name),
		fnutils.LogPubkey("node_id", self.ID),
		fnutils.LogPeer("peer", selfPeer),
		slog.String("asset", a.cfg.Asset.String()))

	return nil
}

// Start starts the agent along with any goroutines it needs to perform its
// normal duties. It fails if the local node can't be queried.
func (a *Agent) Start() error {
	var err error
	a.started.Do(func() {
		err = a.start()
	})
	return err
}

func (a *Agent) start() error {
	ctx, cancel := context.WithCancel(context.Background())
	if err := a.Init(ctx); err != nil {
		cancel()
		return err
	}
	a.cancel = cancel

	a.wg.Add(1)
	go a.controller(ctx)

	return nil
}

// Stop signals the Agent to gracefully shutdown. In flight channel openings
// are cancelled.
func (a *Agent) Stop() error {
	a.stopped.Do(func() {
		log.Debugf("Agent(%v): stopping", a.cfg.Name)

		close(a.quit)
		if a.cancel != nil {
			a.cancel()
		}
		a.gm.Stop()
		a.wg.Wait()
	})

	return nil
}

// NumPending returns the number of channel openings in flight. It must not
// be called concurrently with a running cycle.
func (a *Agent) NumPending() int {
	return a.pending.size()
}

// controller runs one cycle right away and then one per tick, until the
// agent is stopped.
func (a *Agent) controller(ctx context.Context) {
	defer a.wg.Done()

	a.cfg.Ticker.Resume()
	defer a.cfg.Ticker.Stop()

	a.runCycle(ctx)

	for {
		select {
		case <-a.cfg.Ticker.Ticks():
			a.runCycle(ctx)

		case <-a.quit:
			return
		}
	}
}

// runCycle runs a single cycle and reports its outcome. Errors never stop
// the loop.
func (a *Agent) runCycle(ctx context.Context) {
	start := a.cfg.Clock.Now()
	err := a.RunOnce(ctx)
	a.cfg.Observer.ObserveCycle(a.cfg.Clock.Now().Sub(start), err)
	a.cfg.Observer.ObservePending(a.pending.size())

	switch {
	case err == nil:

	case errors.Is(err, context.Canceled):
		log.Debugf("Agent(%v): cycle cancelled", a.cfg.Name)

	case errors.Is(err, ErrInsufficientFunds):
		log.Infof("Agent(%v): %v", a.cfg.Name, err)

	default:
		log.Errorf("Agent(%v): cycle failed: %v", a.cfg.Name, err)
	}
}

// RunOnce runs a single cycle: it refreshes the view of the network and
// attempts to open channels if the constraints allow it. Init must have
// succeeded before.
func (a *Agent) RunOnce(ctx context.Context) error {
	if a.self == nil {
		return errors.New("agent not initialized")
	}

	snap, err := a.fetchSnapshot(ctx)
	if err != nil {
		return err
	}

	log.Debugf("Agent(%v): fetched %d nodes, %d channels, %d local "+
		"channels, balance %v", a.cfg.Name, len(snap.nodes),
		len(snap.edges), len(snap.local), snap.balance)
	log.Tracef("Agent(%v): graph nodes: %v", a.cfg.Name,
		fnutils.SpewLogClosure(snap.nodes))
	log.Tracef("Agent(%v): graph channels: %v", a.cfg.Name,
		fnutils.SpewLogClosure(snap.edges))

	graph := NewTopologyGraph(snap.nodes, snap.edges)

	var local []LocalChannel
	for _, c := range snap.local {
		if a.cfg.Asset.Matches(c.Asset) {
			local = append(local, c)
		}
	}

	slots := a.cfg.Constraints.ChannelSlots(len(local))

	return a.OpenChannels(ctx, snap.balance, slots, graph, local)
}

// fetchSnapshot queries the graph source for everything a cycle needs. The
// queries run concurrently, and the first failure aborts the rest.
func (a *Agent) fetchSnapshot(ctx context.Context) (*snapshot, error) {
	var snap snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		nodes, err := a.cfg.Source.GraphNodes(gctx)
		if err != nil {
			return fmt.Errorf("unable to fetch graph nodes: %w", err)
		}
		snap.nodes = nodes

		return nil
	})
	g.Go(func() error {
		edges, err := a.cfg.Source.GraphChannels(gctx)
		if err != nil {
			return fmt.Errorf("unable to fetch graph channels: %w",
				err)
		}
		snap.edges = edges

		return nil
	})
	g.Go(func() error {
		local, err := a.cfg.Source.LocalChannels(gctx)
		if err != nil {
			return fmt.Errorf("unable to fetch local channels: %w",
				err)
		}
		snap.local = local

		return nil
	})
	g.Go(func() error {
		balance, err := a.cfg.Source.GetBalance(
			gctx, a.self.FundingLock, a.cfg.Asset,
		)
		if err != nil {
			return fmt.Errorf("unable to fetch balance: %w", err)
		}
		snap.balance = balance

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &snap, nil
}

// OpenChannels reconciles pending openings against the local channels, then
// selects up to slots new peers and opens channels with them using at most
// availableFunds. It returns once every opening started in this call has
// either been accepted by the node or failed. The local channels must all be
// in the agent's asset.
func (a *Agent) OpenChannels(ctx context.Context, availableFunds fnwire.Amount,
	slots int, graph *TopologyGraph, localChans []LocalChannel) error {

	a.reconcile(localChans)
	defer func() {
		a.cfg.Observer.ObservePending(a.pending.size())
	}()

	constraints := a.cfg.Constraints
	chanSize, err := constraints.ChanSize(availableFunds)
	if err != nil {
		return err
	}

	numPending := a.pending.size()
	if numPending >= constraints.MaxPendingOpens() {
		log.Debugf("Agent(%v): %d channel openings pending, skipping "+
			"this cycle", a.cfg.Name, numPending)
		return nil
	}

	slots = min(slots, constraints.MaxPendingOpens()-numPending)
	if slots <= 0 {
		log.Debugf("Agent(%v): no channel slots available", a.cfg.Name)
		return nil
	}

	ignored := a.ignoredPeers(localChans)
	candidates, addrs := a.candidates(graph, ignored, chanSize)

	scores, err := a.cfg.Heuristic.NodeScores(ctx, graph, candidates)
	if err != nil {
		return fmt.Errorf("unable to score nodes: %w", err)
	}

	items := make([]Scored[fnwire.PeerID], 0, len(scores))
	for peer := range candidates {
		score, ok := scores[peer]
		if !ok {
			return missingScoreError(a.cfg.Heuristic.Name(), peer)
		}

		items = append(items, Scored[fnwire.PeerID]{
			Item:  peer,
			Score: score,
		})
	}

	// External nodes always get the maximum score, replacing whatever the
	// heuristic gave them.
	for _, ext := range a.externals {
		if ignored.Contains(ext.peer) {
			continue
		}

		addrs[ext.peer] = ext.addr
		if candidates.Contains(ext.peer) {
			for i := range items {
				if items[i].Item == ext.peer {
					items[i].Score = 1.0
				}
			}
			continue
		}

		candidates.Add(ext.peer)
		items = append(items, Scored[fnwire.PeerID]{
			Item:  ext.peer,
			Score: 1.0,
		})
	}

	// Map iteration order is random, sort so a seeded source gives
	// reproducible selections.
	sort.Slice(items, func(i, j int) bool {
		return items[i].Item < items[j].Item
	})

	log.Debugf("Agent(%v): %d candidates for %d slots, channel size %v",
		a.cfg.Name, len(items), slots, chanSize)

	selected := ChooseN(items, slots, a.rng)
	directives := allocateFunds(
		selected, addrs, availableFunds, chanSize,
		constraints.MinChanSize(),
	)

	a.executeDirectives(ctx, directives)

	return nil
}

// reconcile removes pending openings that now show up as local channels,
// and expires attempts that have been pending for too long.
func (a *Agent) reconcile(localChans []LocalChannel) {
	for _, c := range localChans {
		if a.pending.remove(c.Peer) {
			log.Infof("Agent(%v): channel with %v opened",
				a.cfg.Name, c.Peer)
		}
	}

	if a.cfg.PendingTimeout <= 0 {
		return
	}

	expired := a.pending.expire(a.cfg.Clock.Now(), a.cfg.PendingTimeout)
	for _, peer := range expired {
		log.Warnf("Agent(%v): channel opening with %v still pending "+
			"after %v, giving up", a.cfg.Name, peer,
			a.cfg.PendingTimeout)
	}
}

// ignoredPeers returns the local node, the peers we already have a channel
// with in our asset and the peers with a pending opening.
func (a *Agent) ignoredPeers(localChans []LocalChannel) fn.Set[fnwire.PeerID] {
	ignored := fn.NewSet(a.selfPeer)
	for _, c := range localChans {
		ignored.Add(c.Peer)
	}
	for peer := range a.pending.peers {
		ignored.Add(peer)
	}

	return ignored
}

// candidates returns the graph nodes eligible for a channel of the given
// size, along with the address each would be connected on.
func (a *Agent) candidates(graph *TopologyGraph, ignored fn.Set[fnwire.PeerID],
	chanSize fnwire.Amount) (fn.Set[fnwire.PeerID],
	map[fnwire.PeerID]fnwire.MultiAddr) {

	candidates := fn.NewSet[fnwire.PeerID]()
	addrs := make(map[fnwire.PeerID]fnwire.MultiAddr)
	for i := range graph.Nodes() {
		node := &graph.Nodes()[i]

		switch {
		case ignored.Contains(node.Peer):
			continue

		case len(node.Addrs) == 0:
			continue
		}

		minFunding, ok := node.MinFunding(a.cfg.Asset)
		if !ok || minFunding > chanSize {
			continue
		}

		candidates.Add(node.Peer)
		addrs[node.Peer] = node.Addrs[0]
	}

	return candidates, addrs
}

// allocateFunds hands out chanSize to each selected peer in order until the
// funds left can't cover a channel of at least minChanSize.
func allocateFunds(selected []Scored[fnwire.PeerID],
	addrs map[fnwire.PeerID]fnwire.MultiAddr, available, chanSize,
	minChanSize fnwire.Amount) []AttachmentDirective {

	directives := make([]AttachmentDirective, 0, len(selected))
	for _, s := range selected {
		amt := min(available, chanSize)
		if amt < minChanSize {
			break
		}
		available -= amt

		directives = append(directives, AttachmentDirective{
			Peer:    s.Item,
			Addr:    addrs[s.Item],
			ChanAmt: amt,
			Score:   s.Score,
		})
	}

	return directives
}

// executeDirectives marks every directive's peer as pending and opens the
// channels concurrently. It returns once all openings have completed, and
// removes failed ones from the pending set.
func (a *Agent) executeDirectives(ctx context.Context,
	directives []AttachmentDirective) {

	results := make(chan openResult, len(directives))

	var launched int
	for _, d := range directives {
		if a.pending.contains(d.Peer) {
			log.Infof("Agent(%v): skipping %v, opening already "+
				"pending", a.cfg.Name, d.Peer)
			continue
		}

		log.InfoS(ctx, "Opening channel",
			slog.String("agent", a.cfg.Name),
			fnutils.LogPeer("peer", d.Peer),
			slog.Float64("score", d.Score),
			slog.String("amount", d.ChanAmt.String()))

		a.pending.add(d.Peer, a.cfg.Clock.Now())

		ok := a.gm.Go(ctx, func(ctx context.Context) {
			tempID, err := a.openChannel(ctx, d)
			results <- openResult{
				directive: d,
				tempID:    tempID,
				err:       err,
			}
		})
		if !ok {
			log.Debugf("Agent(%v): shutting down, not opening "+
				"channel with %v", a.cfg.Name, d.Peer)
			a.pending.remove(d.Peer)
			continue
		}
		launched++
	}

	for i := 0; i < launched; i++ {
		res := <-results
		a.cfg.Observer.ObserveOpen(res.err)

		peer := res.directive.Peer
		if res.err != nil {
			log.Warnf("Agent(%v): unable to open channel with %v: %v",
				a.cfg.Name, peer, res.err)
			a.pending.remove(peer)
			continue
		}

		log.Infof("Agent(%v): channel with %v accepted, temporary "+
			"channel id %v", a.cfg.Name, peer, res.tempID)
	}
}

// openChannel connects to the directive's peer, waits for the grace period
// and requests the channel.
func (a *Agent) openChannel(ctx context.Context,
	d AttachmentDirective) (fnwire.Hash256, error) {

	if d.Addr == "" {
		return fnwire.ZeroHash, fmt.Errorf("no address for %v", d.Peer)
	}

	if err := a.cfg.Source.ConnectPeer(ctx, d.Addr); err != nil {
		return fnwire.ZeroHash, fmt.Errorf("unable to connect to %v: %w",
			d.Addr, err)
	}

	if a.cfg.OpenGracePeriod > 0 {
		select {
		case <-a.cfg.Clock.TickAfter(a.cfg.OpenGracePeriod):
		case <-ctx.Done():
			return fnwire.ZeroHash, ctx.Err()
		}
	}

	tempID, err := a.cfg.Source.OpenChannel(ctx, &OpenChannelRequest{
		Peer:   d.Peer,
		Amount: d.ChanAmt,
		Asset:  a.cfg.Asset,
		Public: a.cfg.Public,
	})
	if err != nil {
		return fnwire.ZeroHash, fmt.Errorf("unable to open channel: %w",
			err)
	}

	return tempID, nil
}
