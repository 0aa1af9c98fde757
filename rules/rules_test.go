// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rules

import (
	"errors"
	"testing"
)

func p2wpkhScript() []byte {
	script := make([]byte, 22)
	script[0] = 0x00
	script[1] = 0x14
	return script
}

func p2pkhScript() []byte {
	// OP_DUP OP_HASH160 <20 bytes> OP_EQUALVERIFY OP_CHECKSIG
	script := make([]byte, 25)
	script[0] = 0x76
	script[1] = 0xa9
	script[2] = 0x14
	script[23] = 0x88
	script[24] = 0xac
	return script
}

func TestOutputWhitelistRejectsP2PKH(t *testing.T) {
	ctx := PartialContext{
		Txs: []TxView{
			{OutputScripts: [][]byte{p2pkhScript()}},
		},
	}
	err := OutputWhitelistRule{}.CheckPartial(ctx)
	var cerr *ConsensusError
	if !errors.As(err, &cerr) || cerr.Kind != ErrOutputNotWhitelisted {
		t.Fatalf("expected OutputNotWhitelisted, got %v", err)
	}
}

func TestOutputWhitelistAcceptsP2WPKH(t *testing.T) {
	ctx := PartialContext{
		Txs: []TxView{
			{OutputScripts: [][]byte{p2wpkhScript()}},
		},
	}
	if err := (OutputWhitelistRule{}).CheckPartial(ctx); err != nil {
		t.Fatalf("expected P2WPKH output to be accepted, got %v", err)
	}
}

func TestScriptSigEmptyRule(t *testing.T) {
	bad := PartialContext{
		Txs: []TxView{
			{InputScripts: [][]byte{{0x01}}, HasWitness: []bool{true}},
		},
	}
	err := ScriptSigEmptyRule{}.CheckPartial(bad)
	var cerr *ConsensusError
	if !errors.As(err, &cerr) || cerr.Kind != ErrScriptSigNotEmpty {
		t.Fatalf("expected ScriptSigNotEmpty, got %v", err)
	}

	good := PartialContext{
		Txs: []TxView{
			{InputScripts: [][]byte{{}}, HasWitness: []bool{true}},
		},
	}
	if err := (ScriptSigEmptyRule{}).CheckPartial(good); err != nil {
		t.Fatalf("expected empty scriptSig with witness to be accepted, got %v", err)
	}
}

func TestFeeFloorRule(t *testing.T) {
	ctx := FullContext{
		Txs: []TxView{
			{OutputValues: []int64{99_500_000}},
		},
		ResolvedInputs:   [][]SpentInput{{{Value: 100_000_000}}},
		AbsoluteMinTxFee: 1_000_000,
	}
	err := FeeFloorRule{}.CheckFull(ctx)
	var cerr *ConsensusError
	if !errors.As(err, &cerr) || cerr.Kind != ErrFeeBelowAbsoluteMinTxFee {
		t.Fatalf("expected FeeBelowAbsoluteMinTxFee, got %v", err)
	}

	ctx.Txs[0].OutputValues[0] = 99_000_000
	if err := (FeeFloorRule{}).CheckFull(ctx); err != nil {
		t.Fatalf("expected fee exactly at the floor to be accepted, got %v", err)
	}
}

func TestMaxReorgRule(t *testing.T) {
	// Node at height 1000, competing chain forks at height 874 (depth 126).
	if err := CheckMaxReorg(1000-874, 125); err == nil {
		t.Fatalf("expected a depth-126 reorg to be refused")
	}
	if err := CheckMaxReorg(1000-900, 125); err != nil {
		t.Fatalf("expected a depth-100 reorg to be accepted, got %v", err)
	}
}

func TestSubsidyRuleCapsReward(t *testing.T) {
	ctx := FullContext{
		Txs: []TxView{
			{IsCoinBase: true, OutputValues: []int64{50_00_000_001}},
		},
		Height:          0,
		BaseSubsidy:     50 * 1e8,
		HalvingInterval: 210000,
		TotalFees:       0,
	}
	err := SubsidyRule{}.CheckFull(ctx)
	if err == nil {
		t.Fatalf("expected reward exceeding subsidy+fees to be rejected")
	}

	ctx.Txs[0].OutputValues[0] = 50 * 1e8
	if err := (SubsidyRule{}).CheckFull(ctx); err != nil {
		t.Fatalf("expected exact subsidy to be accepted, got %v", err)
	}
}

func TestCoinbaseMaturityRule(t *testing.T) {
	ctx := FullContext{
		Height:           60,
		CoinbaseMaturity: 50,
		Txs:              []TxView{{}},
		ResolvedInputs:   [][]SpentInput{{{IsCoinBase: true, Height: 20}}},
	}
	if err := (CoinbaseMaturityRule{}).CheckFull(ctx); err == nil {
		t.Fatalf("expected immature coinbase spend to be rejected")
	}

	ctx.ResolvedInputs[0][0].Height = 5
	if err := (CoinbaseMaturityRule{}).CheckFull(ctx); err != nil {
		t.Fatalf("expected mature coinbase spend to be accepted, got %v", err)
	}
}
