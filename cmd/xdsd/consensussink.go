// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"time"

	"github.com/xds-project/xdsd/addrmgr"
	"github.com/xds-project/xdsd/blockindex"
	"github.com/xds-project/xdsd/blockpuller"
	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/consensusmgr"
	"github.com/xds-project/xdsd/peer"
	"github.com/xds-project/xdsd/validationpool"
	"github.com/xds-project/xdsd/wire"
)

// consensusSink adapts ConsensusManager's error-returning methods to
// peer.ConsensusSink, whose OnHeaders/OnBlock/OnInv return nothing:
// ConsensusManager reports a failure as a *BanRequest instead, and this
// type is the one place that turns a BanRequest into an address-manager
// ban plus a peer disconnect. It also owns the block-body accumulation
// and Partial-validation scheduling between a block's Integrity pass and
// its eventual ConnectBlock.
type consensusSink struct {
	cm      *consensusmgr.ConsensusManager
	indexer *blockindex.ChainIndexer
	puller  *blockpuller.Puller
	peers   *peer.Set
	addrs   *addrmgr.Manager
	pool    *validationpool.Pool
	bodies  *blockBodyCache
	hashFn  func([]byte) chainhash.Hash
}

func newConsensusSink(cm *consensusmgr.ConsensusManager, indexer *blockindex.ChainIndexer, puller *blockpuller.Puller, peers *peer.Set, addrs *addrmgr.Manager, pool *validationpool.Pool, hashFn func([]byte) chainhash.Hash) *consensusSink {
	return &consensusSink{
		cm:      cm,
		indexer: indexer,
		puller:  puller,
		peers:   peers,
		addrs:   addrs,
		pool:    pool,
		bodies:  newBlockBodyCache(),
		hashFn:  hashFn,
	}
}

// OnHeaders implements peer.ConsensusSink. Every newly chained header is
// handed to the block puller so its body gets fetched.
func (s *consensusSink) OnHeaders(peerAddr string, headers []*wire.BlockHeader) {
	if err := s.cm.OnHeaders(peerAddr, headers); err != nil {
		s.handleError(peerAddr, err)
		return
	}
	for _, h := range headers {
		hash := s.hashFn(h.Bytes())
		ch := s.indexer.GetByHash(hash)
		if ch == nil {
			continue
		}
		s.puller.Enqueue(hash, ch.Height)
	}
}

// OnBlock implements peer.ConsensusSink. A block passing Integrity is
// cached and handed to the validation pool for Partial validation; a
// block passing Partial validation is then connected.
func (s *consensusSink) OnBlock(peerAddr string, block *wire.MsgBlock) {
	hash := s.hashFn(block.Header.Bytes())
	if err := s.cm.OnBlock(peerAddr, block); err != nil {
		s.handleError(peerAddr, err)
		return
	}

	s.bodies.Store(hash, block)
	s.puller.OnBlockReceived(peerAddr, hash)

	ch := s.indexer.GetByHash(hash)
	if ch == nil || ch.Parent == nil {
		return
	}
	height, medianPastTime := ch.Height, ch.Parent.Header.Timestamp

	s.pool.Submit(validationpool.Job{
		Run: func() error {
			return s.cm.ValidatePartial(height, medianPastTime, block)
		},
		Done: func(err error) {
			if err != nil {
				s.handleError(peerAddr, err)
				return
			}
			s.tryConnect(hash)
		},
	})
}

// tryConnect attempts to connect hash now that it has passed Partial
// validation, forgetting its cached body once connected.
func (s *consensusSink) tryConnect(hash chainhash.Hash) {
	if err := s.cm.ConnectBlock(hash, s.bodies.Snapshot()); err != nil {
		return
	}
	s.bodies.Forget(hash)
}

// OnInv implements peer.ConsensusSink: any advertised block we don't
// already have chained is requested from the block puller.
func (s *consensusSink) OnInv(peerAddr string, invVects []*wire.InvVect) {
	for _, iv := range invVects {
		if iv.Type != wire.InvTypeBlock {
			continue
		}
		if s.indexer.GetByHash(iv.Hash) != nil {
			continue
		}
		s.puller.Enqueue(iv.Hash, 0)
	}
}

// GetHeadersRequest implements peer.ConsensusSink.
func (s *consensusSink) GetHeadersRequest(peerAddr string) ([]chainhash.Hash, chainhash.Hash, bool) {
	return s.cm.GetHeadersRequest(peerAddr)
}

// IsPoS implements peer.ConsensusSink.
func (s *consensusSink) IsPoS() bool { return s.cm.IsPoS() }

// handleError bans and disconnects the offending peer when err is a
// consensusmgr.BanRequest; any other error is left to the caller's own
// logging.
func (s *consensusSink) handleError(peerAddr string, err error) {
	ban, ok := err.(*consensusmgr.BanRequest)
	if !ok {
		cmgrLog.Warnf("consensus error from %s: %v", peerAddr, err)
		return
	}
	cmgrLog.Warnf("banning %s for %s: %v", ban.PeerAddr, ban.BanDuration, ban.Reason)
	s.addrs.Ban(ban.PeerAddr, time.Now().Add(ban.BanDuration))
	if p := s.peers.Get(ban.PeerAddr); p != nil {
		p.Disconnect()
	}
}
