// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensusmgr

import (
	"fmt"

	"github.com/xds-project/xdsd/blockindex"
	"github.com/xds-project/xdsd/chaincfg"
	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/rules"
	"github.com/xds-project/xdsd/wire"
)

// locatorStep is how many locator entries are taken one header apart
// before the step starts doubling, matching the classic doubling locator
// construction.
const locatorStep = 10

// OnHeaders connects each header to its parent, runs the Header rule
// pipeline, and extends the candidate chain (spec §4.5: "on_headers").
// cmd/xdsd's consensusSink adapts it to peer.ConsensusSink.
func (cm *ConsensusManager) OnHeaders(peerAddr string, headers []*wire.BlockHeader) error {
	for _, h := range headers {
		if err := cm.onHeader(peerAddr, h); err != nil {
			return err
		}
	}
	return nil
}

func (cm *ConsensusManager) onHeader(peerAddr string, header *wire.BlockHeader) error {
	hash := cm.cfg.HashFunc(header.Bytes())
	if existing := cm.cfg.Indexer.GetByHash(hash); existing != nil {
		return nil
	}
	if reason, invalid := cm.cfg.Invalid.IsInvalid(hash); invalid {
		return &BanRequest{PeerAddr: peerAddr, Reason: fmt.Errorf("known-invalid header: %s", reason), BanDuration: cm.cfg.BanDurationBase}
	}

	parent := cm.cfg.Indexer.GetByHash(header.PrevBlock)
	if parent == nil {
		return &BanRequest{PeerAddr: peerAddr, Reason: fmt.Errorf("header %s has unknown parent %s", hash, header.PrevBlock), BanDuration: cm.cfg.BanDurationBase}
	}

	ctx, err := cm.buildHeaderContext(header, parent)
	if err != nil {
		return &BanRequest{PeerAddr: peerAddr, Reason: err, BanDuration: cm.cfg.BanDurationBase}
	}
	if err := cm.cfg.HeaderPipeline.Run(ctx); err != nil {
		cm.cfg.Invalid.MarkInvalid(hash, err.Error())
		return &BanRequest{PeerAddr: peerAddr, Reason: err, BanDuration: cm.cfg.BanDurationBase}
	}

	chained := blockindex.NewChainedHeader(*header, parent, cm.cfg.HashFunc)
	cm.cfg.Indexer.AddHeader(chained)
	return nil
}

func (cm *ConsensusManager) buildHeaderContext(header *wire.BlockHeader, parent *blockindex.ChainedHeader) (rules.HeaderContext, error) {
	powHash := cm.cfg.HashFunc(header.Bytes())
	requiredBits := cm.nextRequiredBits(parent)

	ctx := rules.HeaderContext{
		Header: rules.HeaderLike{
			Version:   header.Version,
			Timestamp: header.Timestamp,
			Bits:      header.Bits,
			Height:    parent.Height + 1,
			PowHash:   powHash,
		},
		Parent: rules.HeaderLike{
			Version:   parent.Header.Version,
			Timestamp: parent.Header.Timestamp,
			Bits:      parent.Header.Bits,
			Height:    parent.Height,
		},
		IsPoS:          len(header.BlockSig) > 0,
		MedianPastTime: parent.Header.Timestamp,
		MaxFutureDrift: 2 * 60 * 60,
		Now:            uint32(cm.now().Unix()),
		Retarget:       cm.cfg.Retarget,
		RequiredBits:   requiredBits,
	}

	ctx.Header.PowTarget = chaincfg.CompactToBig(header.Bits)
	return ctx, nil
}

// nextRequiredBits computes the difficulty bits required of parent's
// child, locating the retarget window's start header by height so
// CalcNextRequiredDifficulty can measure the window's actual timespan
// (spec §6: "PoW target timespan 14 days; target spacing 10 minutes").
func (cm *ConsensusManager) nextRequiredBits(parent *blockindex.ChainedHeader) uint32 {
	interval := cm.cfg.Retarget.RetargetInterval()
	windowStartHeight := parent.Height + 1 - interval
	if windowStartHeight < 0 {
		windowStartHeight = 0
	}
	windowStartTime := int64(parent.Header.Timestamp)
	if start := cm.cfg.Indexer.GetByHeight(windowStartHeight); start != nil {
		windowStartTime = int64(start.Header.Timestamp)
	}
	return rules.CalcNextRequiredDifficulty(cm.cfg.Retarget, parent.Height, parent.Header.Bits, windowStartTime, int64(parent.Header.Timestamp))
}

// GetHeadersRequest builds a block locator for the current best chain,
// implementing peer.ConsensusSink.
func (cm *ConsensusManager) GetHeadersRequest(peerAddr string) ([]chainhash.Hash, chainhash.Hash, bool) {
	tip := cm.cfg.Indexer.Tip()
	if tip == nil {
		return nil, chainhash.Hash{}, false
	}

	var locator []chainhash.Hash
	step := int64(1)
	height := tip.Height
	for height >= 0 {
		ch := cm.cfg.Indexer.GetByHeight(height)
		if ch == nil {
			break
		}
		locator = append(locator, ch.Hash())
		if len(locator) >= locatorStep {
			step *= 2
		}
		height -= step
	}
	return locator, chainhash.Hash{}, true
}
