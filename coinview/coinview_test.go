// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinview

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/database"
)

func newTestDB(t *testing.T) database.DB {
	t.Helper()
	db, err := database.OpenLevelDB(filepath.Join(t.TempDir(), "coinview"))
	if err != nil {
		t.Fatalf("OpenLevelDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func hashFromByte(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

func TestDurableApplyRewindRoundTrip(t *testing.T) {
	db := newTestDB(t)
	cv := NewDurableCoinView(db, 125)

	coinbaseTxid := hashFromByte(1)
	blockA := hashFromByte(0xA1)
	genesis := chainhash.Hash{}

	changes1 := Changes{
		NewUTXOs: map[chainhash.Hash]*UnspentOutputs{
			coinbaseTxid: {
				Height:     1,
				IsCoinBase: true,
				Outputs: []*TxOutput{
					{Amount: 5000000000, Script: []byte{0, 20}},
				},
			},
		},
	}
	if err := cv.Apply(blockA, genesis, changes1); err != nil {
		t.Fatalf("Apply block A: %v", err)
	}

	tip, err := cv.GetTip()
	if err != nil {
		t.Fatalf("GetTip: %v", err)
	}
	if tip != blockA {
		t.Fatalf("tip after apply = %x, want %x", tip, blockA)
	}

	spendTxid := hashFromByte(2)
	blockB := hashFromByte(0xB2)
	changes2 := Changes{
		Spends: []Spend{{Outpoint: Outpoint{Hash: coinbaseTxid, Index: 0}}},
		NewUTXOs: map[chainhash.Hash]*UnspentOutputs{
			spendTxid: {
				Height: 2,
				Outputs: []*TxOutput{
					{Amount: 4999990000, Script: []byte{0, 20}},
				},
			},
		},
	}
	if err := cv.Apply(blockB, blockA, changes2); err != nil {
		t.Fatalf("Apply block B: %v", err)
	}

	res, err := cv.Fetch([]chainhash.Hash{coinbaseTxid})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !res[coinbaseTxid].Absent {
		t.Fatalf("expected coinbase output to be fully spent and pruned")
	}

	newTip, err := cv.Rewind()
	if err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	if newTip != blockA {
		t.Fatalf("tip after rewind = %x, want %x", newTip, blockA)
	}

	res, err = cv.Fetch([]chainhash.Hash{coinbaseTxid, spendTxid})
	if err != nil {
		t.Fatalf("Fetch after rewind: %v", err)
	}
	if res[coinbaseTxid].Absent {
		t.Fatalf("expected coinbase output restored after rewind")
	}
	if res[coinbaseTxid].Entry.Outputs[0].Amount != 5000000000 {
		t.Fatalf("restored output amount = %d, want 5000000000", res[coinbaseTxid].Entry.Outputs[0].Amount)
	}
	if !res[spendTxid].Absent {
		t.Fatalf("expected spending tx's new output to be removed after rewind")
	}

	finalTip, err := cv.GetTip()
	if err != nil {
		t.Fatalf("GetTip: %v", err)
	}
	if finalTip != blockA {
		t.Fatalf("final tip = %x, want %x (bitwise equal to pre-block-B state)", finalTip, blockA)
	}
}

func TestDurableApplyMissingInput(t *testing.T) {
	db := newTestDB(t)
	cv := NewDurableCoinView(db, 125)

	changes := Changes{
		Spends: []Spend{{Outpoint: Outpoint{Hash: hashFromByte(9), Index: 0}}},
	}
	err := cv.Apply(hashFromByte(1), chainhash.Hash{}, changes)
	if err == nil {
		t.Fatalf("expected MissingInput error, got nil")
	}
	var cvErr *CoinViewError
	if !errors.As(err, &cvErr) || cvErr.Kind != ErrMissingInput {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
}

func TestDurableRewindEmptyWindow(t *testing.T) {
	db := newTestDB(t)
	cv := NewDurableCoinView(db, 125)

	_, err := cv.Rewind()
	if err == nil {
		t.Fatalf("expected InvariantViolation error on empty rewind window, got nil")
	}
	var cvErr *CoinViewError
	if !errors.As(err, &cvErr) || cvErr.Kind != ErrInvariantViolation {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
}

func TestRewindWindowTrimming(t *testing.T) {
	db := newTestDB(t)
	maxWindow := 3
	cv := NewDurableCoinView(db, maxWindow)

	prev := chainhash.Hash{}
	for i := byte(1); i <= 5; i++ {
		txid := hashFromByte(i + 100)
		block := hashFromByte(i)
		changes := Changes{
			NewUTXOs: map[chainhash.Hash]*UnspentOutputs{
				txid: {Height: uint32(i), Outputs: []*TxOutput{{Amount: 1, Script: nil}}},
			},
		}
		if err := cv.Apply(block, prev, changes); err != nil {
			t.Fatalf("Apply block %d: %v", i, err)
		}
		prev = block
	}

	// Only the last maxWindow blocks can be rewound.
	for i := 0; i < maxWindow; i++ {
		if _, err := cv.Rewind(); err != nil {
			t.Fatalf("Rewind %d: %v", i, err)
		}
	}
	if _, err := cv.Rewind(); err == nil {
		t.Fatalf("expected rewind window to be exhausted after %d rewinds", maxWindow)
	}
}

func TestCachedCoinViewMatchesDurable(t *testing.T) {
	db := newTestDB(t)
	durable := NewDurableCoinView(db, 125)
	cached := NewCachedCoinView(durable, 16)

	txid := hashFromByte(7)
	block := hashFromByte(0x70)
	changes := Changes{
		NewUTXOs: map[chainhash.Hash]*UnspentOutputs{
			txid: {Height: 1, Outputs: []*TxOutput{{Amount: 42, Script: []byte{1}}}},
		},
	}
	if err := cached.Apply(block, chainhash.Hash{}, changes); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	res, err := cached.Fetch([]chainhash.Hash{txid})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res[txid].Absent || res[txid].Entry.Outputs[0].Amount != 42 {
		t.Fatalf("cached fetch mismatch: %+v", res[txid])
	}

	durableRes, err := durable.Fetch([]chainhash.Hash{txid})
	if err != nil {
		t.Fatalf("durable Fetch: %v", err)
	}
	if durableRes[txid].Absent || durableRes[txid].Entry.Outputs[0].Amount != 42 {
		t.Fatalf("write-through did not reach durable store: %+v", durableRes[txid])
	}

	tip, err := cached.GetTip()
	if err != nil {
		t.Fatalf("GetTip: %v", err)
	}
	if tip != block {
		t.Fatalf("cached tip = %x, want %x", tip, block)
	}

	newTip, err := cached.Rewind()
	if err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	if newTip != (chainhash.Hash{}) {
		t.Fatalf("tip after rewind = %x, want zero hash", newTip)
	}

	res, err = cached.Fetch([]chainhash.Hash{txid})
	if err != nil {
		t.Fatalf("Fetch after rewind: %v", err)
	}
	if !res[txid].Absent {
		t.Fatalf("expected entry absent after rewind, got %+v", res[txid])
	}
}
