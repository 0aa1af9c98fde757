// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockpuller implements the per-peer block download scheduler
// (spec §4.6): it assigns missing block bodies to connected peers, detects
// stalled downloads with an adaptive per-peer timeout, and reassigns or
// gives up on a block after enough failed attempts.
package blockpuller

import (
	"sync"
	"time"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
)

// maxReassignments bounds how many times a single block may be handed to a
// new peer before its header subtree is given up on (spec §4.6: "if three
// reassignments fail, mark header subtree as unreachable").
const maxReassignments = 3

// defaultBaseTimeout is the stall timeout used for a peer with no delivery
// samples yet, and the lower bound of every peer's adaptive timeout.
const defaultBaseTimeout = 30 * time.Second

// Config wires the puller to its collaborators without importing them
// directly, mirroring the rest of this tree's sink/behavior pattern.
type Config struct {
	// RequestBlock asks peerAddr for hash's body (wire getdata).
	RequestBlock func(peerAddr string, hash chainhash.Hash) error
	// RequestFreshHeaders is called when a block is given up on, so the
	// caller can re-run getheaders against the network (spec §4.6:
	// "request fresh headers").
	RequestFreshHeaders func()
	// MarkUnreachable records that hash's header subtree could not be
	// fetched after MaxReassignments attempts, typically backed by
	// InvalidBlockHashStore.
	MarkUnreachable func(hash chainhash.Hash)
	// MaxReassignments overrides the default of 3 when non-zero.
	MaxReassignments int
	// BaseTimeout overrides defaultBaseTimeout when non-zero.
	BaseTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.MaxReassignments == 0 {
		c.MaxReassignments = maxReassignments
	}
	if c.BaseTimeout == 0 {
		c.BaseTimeout = defaultBaseTimeout
	}
}

// peerState tracks one connected peer's advertised tip, in-flight
// assignments, and recent delivery latencies.
type peerState struct {
	tipHeight int64
	inFlight  map[chainhash.Hash]struct{}
	latency   latencyTracker
}

// pendingBlock is a block body the puller is trying to obtain.
type pendingBlock struct {
	hash          chainhash.Hash
	height        int64
	assignedTo    string
	requestedAt   time.Time
	reassignCount int
}

// Puller schedules block-body downloads across connected peers. It holds
// no reference to the consensus manager or peer registry; Config's
// closures are its only way out.
type Puller struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	peers   map[string]*peerState
	pending map[chainhash.Hash]*pendingBlock
	queue   []chainhash.Hash // blocks not yet assigned to any peer
}

// New returns a Puller with its default policy values applied where unset.
func New(cfg Config) *Puller {
	cfg.setDefaults()
	return &Puller{
		cfg:     cfg,
		now:     time.Now,
		peers:   make(map[string]*peerState),
		pending: make(map[chainhash.Hash]*pendingBlock),
	}
}

// RegisterPeer adds addr to the scheduler's peer set with its advertised
// chain tip height (from the version handshake's LastBlock field).
func (p *Puller) RegisterPeer(addr string, tipHeight int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.peers[addr]; ok {
		return
	}
	p.peers[addr] = &peerState{tipHeight: tipHeight, inFlight: make(map[chainhash.Hash]struct{})}
	p.assignLocked()
}

// UpdatePeerTip records a new advertised tip height for addr, learned from
// a later headers/inv exchange.
func (p *Puller) UpdatePeerTip(addr string, tipHeight int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ps, ok := p.peers[addr]; ok {
		ps.tipHeight = tipHeight
		p.assignLocked()
	}
}

// UnregisterPeer drops addr from the peer set and reassigns every block that
// was in flight to it to the remaining peers; blocks no remaining peer
// covers stay in the unassigned queue.
func (p *Puller) UnregisterPeer(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ps, ok := p.peers[addr]
	if !ok {
		return
	}
	for hash := range ps.inFlight {
		p.reassignLocked(hash)
	}
	delete(p.peers, addr)
	p.assignLocked()
}

// Enqueue adds a missing block to the scheduler, attempting an immediate
// assignment.
func (p *Puller) Enqueue(hash chainhash.Hash, height int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pending[hash]; ok {
		return
	}
	p.pending[hash] = &pendingBlock{hash: hash, height: height}
	p.queue = append(p.queue, hash)
	p.assignLocked()
}

// OnBlockReceived records hash as delivered by addr, feeding the delivery
// latency into that peer's moving-median stall tracker and freeing its
// in-flight slot for further assignments.
func (p *Puller) OnBlockReceived(addr string, hash chainhash.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pb, ok := p.pending[hash]
	if !ok {
		return
	}
	if ps, ok := p.peers[addr]; ok {
		delete(ps.inFlight, hash)
		if !pb.requestedAt.IsZero() {
			ps.latency.Add(p.now().Sub(pb.requestedAt))
		}
	}
	delete(p.pending, hash)
	p.assignLocked()
}

// InFlight reports how many blocks are currently assigned, across all
// peers; it exists mainly for tests and metrics.
func (p *Puller) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, pb := range p.pending {
		if pb.assignedTo != "" {
			n++
		}
	}
	return n
}
