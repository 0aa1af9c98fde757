// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stakechain

import (
	"testing"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/wire"
)

func TestCheckKernelRejectsUnalignedTime(t *testing.T) {
	k := Kernel{Value: 1000000, BlockTime: 1}
	_, err := CheckKernel(k, 0x1d00ffff)
	if err == nil {
		t.Fatalf("expected alignment error for odd block time")
	}
}

func TestCheckKernelDeterministic(t *testing.T) {
	k := Kernel{
		PrevTxid:      chainhash.Hash{1},
		Vout:          0,
		Value:         100000000,
		PrevBlockTime: 1600000000,
		StakeModifier: 0xdeadbeef,
		BlockTime:     1600000016, // aligned to the 16-second mask
	}
	ok1, err := CheckKernel(k, 0x1d00ffff)
	if err != nil {
		t.Fatalf("CheckKernel: %v", err)
	}
	ok2, err := CheckKernel(k, 0x1d00ffff)
	if err != nil {
		t.Fatalf("CheckKernel: %v", err)
	}
	if ok1 != ok2 {
		t.Fatalf("CheckKernel is not deterministic for identical input")
	}

	// A near-zero target (maximal difficulty) must reject any kernel.
	harder, err := CheckKernel(k, 0x01003000)
	if err != nil {
		t.Fatalf("CheckKernel: %v", err)
	}
	if harder {
		t.Fatalf("expected kernel to fail against a near-zero target")
	}
}

func TestStakeChainAdvanceAndLookup(t *testing.T) {
	genesis := chainhash.Hash{0xAA}
	sc := NewStakeChain(genesis, 42, nil)

	if m, ok := sc.ModifierAt(genesis); !ok || m != 42 {
		t.Fatalf("genesis modifier = (%d, %v), want (42, true)", m, ok)
	}

	block1 := chainhash.Hash{0xBB}
	kernelHash := chainhash.Hash{1, 2, 3, 4, 5, 6, 7, 8}
	if err := sc.Advance(genesis, block1, kernelHash); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if _, ok := sc.ModifierAt(block1); !ok {
		t.Fatalf("expected modifier recorded for block1")
	}

	unknownParent := chainhash.Hash{0xFF}
	if err := sc.Advance(unknownParent, chainhash.Hash{0xCC}, kernelHash); err == nil {
		t.Fatalf("expected error advancing from an unknown parent")
	}
}

func TestStakeValidatorRejectsEmptyCoinstake(t *testing.T) {
	sc := NewStakeChain(chainhash.Hash{}, 1, nil)
	v := NewStakeValidator(sc)
	ph := &wire.ProvenHeader{
		Header:    wire.BlockHeader{Timestamp: 16},
		Coinstake: wire.MsgTx{},
	}
	_, err := v.ValidateProvenHeader(ph, chainhash.Hash{}, 0)
	if err == nil {
		t.Fatalf("expected error validating a coinstake with no inputs")
	}
}
