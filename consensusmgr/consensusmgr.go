// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package consensusmgr implements the ConsensusManager: the component
// that drives a block's lifecycle from header arrival through full
// validation and chain-tip integration, including reorg handling and
// initial-block-download detection (spec §4.5).
package consensusmgr

import (
	"fmt"
	"sync"
	"time"

	"github.com/xds-project/xdsd/blockindex"
	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/coinview"
	"github.com/xds-project/xdsd/eventbus"
	"github.com/xds-project/xdsd/rules"
	"github.com/xds-project/xdsd/stakechain"
)

// InvalidBlockHashStore remembers block hashes that failed validation so
// the puller never re-requests the same bad body (spec §4.5).
type InvalidBlockHashStore struct {
	mu     sync.RWMutex
	reason map[chainhash.Hash]string
}

// NewInvalidBlockHashStore returns an empty store.
func NewInvalidBlockHashStore() *InvalidBlockHashStore {
	return &InvalidBlockHashStore{reason: make(map[chainhash.Hash]string)}
}

// MarkInvalid records hash as permanently invalid, with reason for
// diagnostics.
func (s *InvalidBlockHashStore) MarkInvalid(hash chainhash.Hash, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reason[hash] = reason
}

// IsInvalid reports whether hash was previously marked invalid.
func (s *InvalidBlockHashStore) IsInvalid(hash chainhash.Hash) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reason[hash]
	return r, ok
}

// BanRequest is raised when a peer must be disconnected for violating a
// Header or Integrity rule (spec §4.5 failure semantics).
type BanRequest struct {
	PeerAddr    string
	Reason      error
	BanDuration time.Duration
}

func (b *BanRequest) Error() string {
	return fmt.Sprintf("peer %s banned for %s: %v", b.PeerAddr, b.BanDuration, b.Reason)
}

// PeerTip is the chain height a peer last advertised, used for the IBD
// computation and for the BlockPuller's peer selection.
type PeerTip struct {
	Addr   string
	Height int64
}

// HashFunc computes the block/header identity hash (hash256, an
// external crypto contract per spec §1), kept as a parameter so this
// package has no dependency on a concrete hash implementation.
type HashFunc func([]byte) chainhash.Hash

// Config wires a ConsensusManager to its collaborators.
type Config struct {
	Indexer  *blockindex.ChainIndexer
	Coins    coinview.CoinView
	Stakes   *stakechain.StakeChain
	Bus      *eventbus.Bus
	Invalid  *InvalidBlockHashStore
	HashFunc HashFunc
	IsPoS    bool

	HeaderPipeline    *rules.HeaderPipeline
	IntegrityPipeline *rules.IntegrityPipeline
	PartialPipeline   *rules.PartialPipeline
	FullPipeline      *rules.FullPipeline

	// Retarget carries the active network's difficulty-adjustment
	// parameters, wired in from chaincfg.Params at node startup.
	Retarget rules.RetargetParams

	// Chain-wide constants the Full pipeline's subsidy/maturity/fee-floor
	// rules need, wired in from chaincfg.Params (spec §6 defaults).
	CoinbaseMaturity int64
	BaseSubsidy      int64
	HalvingInterval  int64
	AbsoluteMinTxFee int64
	MaxSigOpsPerTx   int
	WitnessRequired  bool

	MaxReorgLength  int64
	IBDHeightLag    int64
	IBDTimeWindow   time.Duration
	BanDurationBase time.Duration
}

// ConsensusManager drives header/block lifecycle, reorg, and exposes the
// IBD flag (spec §4.5).
type ConsensusManager struct {
	cfg Config

	// writerMu is the chain-writer lock (spec §5): all mutations of
	// coinview, stake chain, chain-tip, and mempool reconciliation occur
	// while holding it.
	writerMu sync.Mutex

	mu       sync.RWMutex
	peerTips map[string]int64
	now      func() time.Time
}

// New returns a ConsensusManager using cfg.
func New(cfg Config) *ConsensusManager {
	if cfg.MaxReorgLength == 0 {
		cfg.MaxReorgLength = 125
	}
	if cfg.IBDHeightLag == 0 {
		cfg.IBDHeightLag = 6
	}
	if cfg.IBDTimeWindow == 0 {
		cfg.IBDTimeWindow = time.Hour
	}
	if cfg.BanDurationBase == 0 {
		cfg.BanDurationBase = 24 * time.Hour
	}
	return &ConsensusManager{
		cfg:      cfg,
		peerTips: make(map[string]int64),
		now:      time.Now,
	}
}

// RecordPeerTip updates the last-advertised height for a peer, used by
// IsIBD and the BlockPuller.
func (cm *ConsensusManager) RecordPeerTip(addr string, height int64) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.peerTips[addr] = height
}

func (cm *ConsensusManager) maxPeerHeightLocked() int64 {
	var max int64
	for _, h := range cm.peerTips {
		if h > max {
			max = h
		}
	}
	return max
}

// IsIBD reports whether the node considers itself in initial block
// download: either its tip is stale by wall-clock time, or it trails the
// best-known peer height by more than the configured lag (spec §4.5:
// "is_ibd() = tip.time < now - 1h OR tip.height < max_peer_height - k").
func (cm *ConsensusManager) IsIBD() bool {
	tip := cm.cfg.Indexer.Tip()
	if tip == nil {
		return true
	}
	cm.mu.RLock()
	maxPeerHeight := cm.maxPeerHeightLocked()
	cm.mu.RUnlock()

	tipTime := time.Unix(int64(tip.Header.Timestamp), 0)
	if tipTime.Before(cm.now().Add(-cm.cfg.IBDTimeWindow)) {
		return true
	}
	if tip.Height < maxPeerHeight-cm.cfg.IBDHeightLag {
		return true
	}
	return false
}

// IsPoS implements peer.ConsensusSink.
func (cm *ConsensusManager) IsPoS() bool { return cm.cfg.IsPoS }
