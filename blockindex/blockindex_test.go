// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockindex

import (
	"math/big"
	"testing"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/wire"
)

func fakeHash(tag byte) func([]byte) chainhash.Hash {
	return func(b []byte) chainhash.Hash {
		var h chainhash.Hash
		h[0] = tag
		if len(b) > 0 {
			h[1] = b[0]
		}
		return h
	}
}

// buildChain links count headers in a row starting from genesis, each
// header's identity distinguished by nonce so hashes differ.
func buildChain(genesis *ChainedHeader, count int, bits uint32) []*ChainedHeader {
	chain := []*ChainedHeader{genesis}
	parent := genesis
	for i := 1; i <= count; i++ {
		h := wire.BlockHeader{
			Version:   1,
			PrevBlock: parent.Hash(),
			Bits:      bits,
			Nonce:     uint32(i),
		}
		ch := NewChainedHeader(h, parent, func(b []byte) chainhash.Hash {
			var out chainhash.Hash
			copy(out[:], b[:min(len(b), chainhash.HashSize)])
			out[31] = byte(i)
			return out
		})
		chain = append(chain, ch)
		parent = ch
	}
	return chain
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func TestChainIndexerContiguousAndTip(t *testing.T) {
	genesis := NewChainedHeader(wire.BlockHeader{Version: 1, Bits: 0x1d00ffff}, nil, fakeHash(0))
	idx := NewChainIndexer(genesis)

	chain := buildChain(genesis, 5, 0x1d00ffff)
	for _, ch := range chain[1:] {
		idx.AddHeader(ch)
		idx.SetTip(ch)
	}

	tip := idx.Tip()
	if tip.Height != 5 {
		t.Fatalf("tip height = %d, want 5", tip.Height)
	}
	if idx.GetByHeight(tip.Height) != tip {
		t.Fatalf("get_by_height(tip.height) != tip")
	}
	for h := int64(0); h <= 5; h++ {
		if idx.GetByHeight(h) == nil {
			t.Fatalf("missing header at height %d", h)
		}
		if idx.GetByHeight(h).Height != h {
			t.Fatalf("header at height %d reports height %d", h, idx.GetByHeight(h).Height)
		}
	}

	prevWork := big.NewInt(0)
	for h := int64(0); h <= 5; h++ {
		node := idx.GetByHeight(h)
		if node.Work.Cmp(prevWork) < 0 {
			t.Fatalf("cumulative work decreased at height %d", h)
		}
		prevWork = node.Work
	}
}

func TestChainIndexerFindForkAndReorg(t *testing.T) {
	genesis := NewChainedHeader(wire.BlockHeader{Version: 1, Bits: 0x1d00ffff}, nil, fakeHash(0))
	idx := NewChainIndexer(genesis)

	main := buildChain(genesis, 3, 0x1d00ffff)
	for _, ch := range main[1:] {
		idx.AddHeader(ch)
		idx.SetTip(ch)
	}

	// Fork from height 1 with a single competing header at height 2.
	forkParent := main[1]
	sideA := wire.BlockHeader{Version: 1, PrevBlock: forkParent.Hash(), Bits: 0x1d00ffff, Nonce: 99}
	sideNodeA := NewChainedHeader(sideA, forkParent, func(b []byte) chainhash.Hash {
		var h chainhash.Hash
		h[0] = 0xEE
		return h
	})
	idx.AddHeader(sideNodeA)

	fork := idx.FindFork(sideNodeA)
	if fork == nil || fork.Hash() != forkParent.Hash() {
		t.Fatalf("find_fork returned wrong ancestor")
	}

	// Old tip remains reachable by hash even though it's not on best chain
	// after a reorg away from it.
	oldTip := idx.Tip()
	idx.SetTip(sideNodeA)
	if idx.GetByHash(oldTip.Hash()) == nil {
		t.Fatalf("old tip no longer reachable by hash after reorg")
	}
	if idx.Tip().Hash() != sideNodeA.Hash() {
		t.Fatalf("tip did not move to the reorg target")
	}
}
