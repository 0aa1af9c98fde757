// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stakechain

import (
	"fmt"
	"sync"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/wire"
)

// StakeChain tracks the per-block stake modifier alongside the header
// chain, keyed by block hash so it can be consulted for any branch the
// indexer still holds (not just the best chain).
type StakeChain struct {
	mu        sync.RWMutex
	modifiers map[chainhash.Hash]uint64
	source    StakeModifierSource
	genesis   uint64
}

// NewStakeChain creates a StakeChain seeded with genesisModifier for the
// genesis block.
func NewStakeChain(genesisHash chainhash.Hash, genesisModifier uint64, source StakeModifierSource) *StakeChain {
	if source == nil {
		source = XorMixModifier{}
	}
	sc := &StakeChain{
		modifiers: make(map[chainhash.Hash]uint64),
		source:    source,
		genesis:   genesisModifier,
	}
	sc.modifiers[genesisHash] = genesisModifier
	return sc
}

// ModifierAt returns the stake modifier effective for children of blockHash,
// and whether it is known.
func (sc *StakeChain) ModifierAt(blockHash chainhash.Hash) (uint64, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	m, ok := sc.modifiers[blockHash]
	return m, ok
}

// Advance computes and records the modifier for blockHash, given its
// parent's hash and the coinstake kernel hash that sealed blockHash.
func (sc *StakeChain) Advance(parentHash, blockHash chainhash.Hash, kernelHash chainhash.Hash) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	parentModifier, ok := sc.modifiers[parentHash]
	if !ok {
		return fmt.Errorf("stakechain: unknown parent %s", parentHash)
	}
	sc.modifiers[blockHash] = sc.source.NextModifier(parentModifier, kernelHash)
	return nil
}

// Forget drops the modifier recorded for blockHash, used when a block is
// disconnected during a reorg rewind.
func (sc *StakeChain) Forget(blockHash chainhash.Hash) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	delete(sc.modifiers, blockHash)
}

// StakeValidator ties kernel validation to the proven-header wire format
// (spec §4.3): given a ProvenHeader, it extracts the coinstake's first
// input as the kernel source and checks it against the header's bits,
// using the parent block's stake modifier from StakeChain.
type StakeValidator struct {
	chain *StakeChain
}

// NewStakeValidator returns a StakeValidator backed by chain.
func NewStakeValidator(chain *StakeChain) *StakeValidator {
	return &StakeValidator{chain: chain}
}

// ValidateProvenHeader checks that ph's inlined coinstake transaction
// satisfies the PoS kernel rule against ph.Header.Bits, using prevBlockTime
// and prevBlockHash (the immediate parent on the chain this header
// extends) to look up the stake modifier.
func (v *StakeValidator) ValidateProvenHeader(ph *wire.ProvenHeader, prevBlockHash chainhash.Hash, prevBlockTime uint32) (bool, error) {
	if len(ph.Coinstake.TxIn) == 0 {
		return false, fmt.Errorf("stakechain: coinstake has no inputs")
	}
	if len(ph.Coinstake.TxOut) == 0 {
		return false, fmt.Errorf("stakechain: coinstake has no outputs")
	}
	modifier, ok := v.chain.ModifierAt(prevBlockHash)
	if !ok {
		return false, fmt.Errorf("stakechain: no stake modifier recorded for %s", prevBlockHash)
	}

	in := ph.Coinstake.TxIn[0]
	kernel := Kernel{
		PrevTxid:      in.PreviousOutPoint.Hash,
		Vout:          in.PreviousOutPoint.Index,
		Value:         ph.Coinstake.TxOut[0].Value,
		PrevBlockTime: prevBlockTime,
		StakeModifier: modifier,
		BlockTime:     ph.Header.Timestamp,
	}
	return CheckKernel(kernel, ph.Header.Bits)
}
