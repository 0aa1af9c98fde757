// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockindex implements the in-memory tree of headers rooted at
// genesis and the best-chain view over it (spec §4.4).
package blockindex

import (
	"math/big"
	"sync"

	"github.com/xds-project/xdsd/chaincfg"
	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/wire"
)

// ValidationState is a ChainedHeader's position in the validation
// lifecycle (spec §3).
type ValidationState int

// Recognized validation states.
const (
	HeaderValidated ValidationState = iota
	AssumedValid
	PartiallyValidated
	FullyValidated
	Invalid
)

func (s ValidationState) String() string {
	switch s {
	case HeaderValidated:
		return "HeaderValidated"
	case AssumedValid:
		return "AssumedValid"
	case PartiallyValidated:
		return "PartiallyValidated"
	case FullyValidated:
		return "FullyValidated"
	case Invalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// ChainedHeader is a header linked into the tree: it owns a pointer to its
// parent, carries its height and cumulative chain work, and tracks where it
// stands in the validation pipeline (spec §3). Children are not owned here;
// callers look them up through the indexer by (height+1, hash) instead, so
// the tree's ownership direction always points toward genesis.
type ChainedHeader struct {
	Header          wire.BlockHeader
	Height          int64
	Parent          *ChainedHeader
	Work            *big.Int // cumulative work from genesis through this header
	State           ValidationState
	hash            chainhash.Hash
}

// Hash returns the header's PoW hash, computed once at construction.
func (c *ChainedHeader) Hash() chainhash.Hash { return c.hash }

// NewChainedHeader links header to parent and computes its cumulative work.
// parent may be nil only for genesis.
func NewChainedHeader(header wire.BlockHeader, parent *ChainedHeader, hashFn func([]byte) chainhash.Hash) *ChainedHeader {
	work := headerWork(header.Bits)
	if parent != nil {
		work = new(big.Int).Add(parent.Work, work)
	}
	return &ChainedHeader{
		Header: header,
		Height: parentHeight(parent) + 1,
		Parent: parent,
		Work:   work,
		State:  HeaderValidated,
		hash:   hashFn(header.Bytes()),
	}
}

func parentHeight(parent *ChainedHeader) int64 {
	if parent == nil {
		return -1
	}
	return parent.Height
}

// headerWork returns the amount of work represented by a block with the
// given difficulty bits: floor(2^256 / (target+1)), the conventional
// proof-of-work weight (matches the teacher's difficulty.go CalcWork).
func headerWork(bits uint32) *big.Int {
	target := chaincfg.CompactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	denominator := new(big.Int).Add(target, big.NewInt(1))
	numerator := new(big.Int).Lsh(big.NewInt(1), 256)
	return new(big.Int).Div(numerator, denominator)
}

// ChainIndexer maintains the best chain by cumulative work from genesis to
// tip, plus every known side-chain header reachable by hash (spec §4.4).
type ChainIndexer struct {
	mu        sync.RWMutex
	byHash    map[chainhash.Hash]*ChainedHeader
	byHeight  []*ChainedHeader // contiguous: byHeight[h].Height == h
	tip       *ChainedHeader
}

// NewChainIndexer creates an indexer rooted at genesis.
func NewChainIndexer(genesis *ChainedHeader) *ChainIndexer {
	idx := &ChainIndexer{
		byHash: make(map[chainhash.Hash]*ChainedHeader),
	}
	idx.byHash[genesis.Hash()] = genesis
	idx.byHeight = []*ChainedHeader{genesis}
	idx.tip = genesis
	return idx
}

// AddHeader registers header in the tree without necessarily moving the
// best-chain tip. Callers call SetTip separately once a rule pipeline
// decides the new header should become (or extend) the active chain.
func (idx *ChainIndexer) AddHeader(ch *ChainedHeader) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byHash[ch.Hash()] = ch
}

// GetByHeight returns the best-chain header at height h, or nil if h is out
// of range.
func (idx *ChainIndexer) GetByHeight(h int64) *ChainedHeader {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if h < 0 || h >= int64(len(idx.byHeight)) {
		return nil
	}
	return idx.byHeight[h]
}

// GetByHash returns the header with the given hash, from any branch, or nil.
func (idx *ChainIndexer) GetByHash(hash chainhash.Hash) *ChainedHeader {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.byHash[hash]
}

// Tip returns the current best-chain tip.
func (idx *ChainIndexer) Tip() *ChainedHeader {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tip
}

// FindFork returns the lowest common ancestor of other and the current best
// chain.
func (idx *ChainIndexer) FindFork(other *ChainedHeader) *ChainedHeader {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.findForkLocked(other)
}

func (idx *ChainIndexer) findForkLocked(other *ChainedHeader) *ChainedHeader {
	a, b := idx.tip, other
	for a != nil && b != nil && a.Height > b.Height {
		a = a.Parent
	}
	for a != nil && b != nil && b.Height > a.Height {
		b = b.Parent
	}
	for a != nil && b != nil && a.Hash() != b.Hash() {
		a = a.Parent
		b = b.Parent
	}
	if a == nil || b == nil {
		return nil
	}
	return a
}

// SetTip rewires the best chain to end at newTip (spec §4.4): nodes on the
// old chain that are not ancestors of newTip become side-chain nodes, still
// reachable by hash via GetByHash, but no longer indexed by height.
func (idx *ChainIndexer) SetTip(newTip *ChainedHeader) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	fork := idx.findForkLocked(newTip)
	forkHeight := int64(-1)
	if fork != nil {
		forkHeight = fork.Height
	}

	// Truncate the height index back to the fork point, then walk newTip's
	// ancestry forward from the fork and rebuild the contiguous height
	// slice up to newTip.
	if forkHeight+1 < int64(len(idx.byHeight)) {
		idx.byHeight = idx.byHeight[:forkHeight+1]
	}

	var chain []*ChainedHeader
	for n := newTip; n != nil && n.Height > forkHeight; n = n.Parent {
		chain = append(chain, n)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		idx.byHeight = append(idx.byHeight, chain[i])
	}
	idx.tip = newTip
}

// Len returns the height of the best-chain tip plus one (the chain's block
// count).
func (idx *ChainIndexer) Len() int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return int64(len(idx.byHeight))
}
