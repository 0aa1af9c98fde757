// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/coinview"
	"github.com/xds-project/xdsd/wire"
)

type fakeCoinView struct {
	entries map[chainhash.Hash]*coinview.UnspentOutputs
}

func newFakeCoinView() *fakeCoinView {
	return &fakeCoinView{entries: make(map[chainhash.Hash]*coinview.UnspentOutputs)}
}

func (f *fakeCoinView) addUTXO(txid chainhash.Hash, amount int64) {
	f.entries[txid] = &coinview.UnspentOutputs{
		Outputs: []*coinview.TxOutput{{Amount: amount, Script: p2wpkhScript(1)}},
	}
}

func (f *fakeCoinView) Fetch(txids []chainhash.Hash) (map[chainhash.Hash]coinview.FetchResult, error) {
	out := make(map[chainhash.Hash]coinview.FetchResult, len(txids))
	for _, id := range txids {
		if e, ok := f.entries[id]; ok {
			out[id] = coinview.FetchResult{Entry: e}
		} else {
			out[id] = coinview.FetchResult{Absent: true}
		}
	}
	return out, nil
}

func (f *fakeCoinView) Apply(blockHash, prevBlockHash chainhash.Hash, changes coinview.Changes) error {
	return nil
}
func (f *fakeCoinView) Rewind() (chainhash.Hash, error) { return chainhash.Hash{}, nil }
func (f *fakeCoinView) GetTip() (chainhash.Hash, error) { return chainhash.Hash{}, nil }
func (f *fakeCoinView) Flush() error                    { return nil }

func p2wpkhScript(tag byte) []byte {
	script := make([]byte, 22)
	script[0] = 0x00 // OP_0
	script[1] = 0x14 // OP_DATA_20
	script[2] = tag
	return script
}

func p2pkhScript() []byte {
	script := make([]byte, 25)
	script[0] = 0x76 // OP_DUP
	script[1] = 0xa9 // OP_HASH160
	script[2] = 0x14 // OP_DATA_20
	script[23] = 0x88 // OP_EQUALVERIFY
	script[24] = 0xac // OP_CHECKSIG
	return script
}

func hashFromByte(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

func testHashFn(b []byte) chainhash.Hash {
	var h chainhash.Hash
	for i, c := range b {
		h[i%chainhash.HashSize] ^= c
	}
	return h
}

func buildTestMempool(t *testing.T, cv *fakeCoinView) *Mempool {
	t.Helper()
	return NewMempool(Config{
		CoinView: cv,
		HashFunc: testHashFn,
	})
}

func buildSpendingTx(prevTxid chainhash.Hash, outputValue int64) *wire.MsgTx {
	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{
			{PreviousOutPoint: wire.OutPoint{Hash: prevTxid, Index: 0}},
		},
		TxOut: []*wire.TxOut{
			{Value: outputValue, PkScript: p2wpkhScript(2)},
		},
	}
}

func TestAcceptTxSuccess(t *testing.T) {
	cv := newFakeCoinView()
	parent := hashFromByte(1)
	cv.addUTXO(parent, 2_000_000)

	mp := buildTestMempool(t, cv)
	tx := buildSpendingTx(parent, 900_000)

	if err := mp.AcceptTx(tx); err != nil {
		t.Fatalf("AcceptTx: %v", err)
	}
	if mp.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", mp.Len())
	}
}

func TestAcceptTxRejectsBelowFeeFloor(t *testing.T) {
	cv := newFakeCoinView()
	parent := hashFromByte(1)
	cv.addUTXO(parent, 2_000_000)

	mp := buildTestMempool(t, cv)
	// fee = 2,000,000 - 1,999,999 = 1 atom, far below the 1,000,000 floor.
	tx := buildSpendingTx(parent, 1_999_999)

	err := mp.AcceptTx(tx)
	if err == nil {
		t.Fatalf("expected fee-floor rejection")
	}
}

func TestAcceptTxRejectsNonWhitelistedOutput(t *testing.T) {
	cv := newFakeCoinView()
	parent := hashFromByte(1)
	cv.addUTXO(parent, 2_000_000)

	mp := buildTestMempool(t, cv)
	tx := buildSpendingTx(parent, 900_000)
	tx.TxOut[0].PkScript = p2pkhScript()

	if err := mp.AcceptTx(tx); err == nil {
		t.Fatalf("expected output-whitelist rejection")
	}
}

func TestAcceptTxRejectsMissingInput(t *testing.T) {
	cv := newFakeCoinView()
	mp := buildTestMempool(t, cv)
	tx := buildSpendingTx(hashFromByte(0xFF), 900_000)

	if err := mp.AcceptTx(tx); err == nil {
		t.Fatalf("expected missing-input rejection")
	}
}

func TestReplaceByFeeHigherFeeRateAccepted(t *testing.T) {
	cv := newFakeCoinView()
	parent := hashFromByte(1)
	cv.addUTXO(parent, 3_000_000)

	mp := buildTestMempool(t, cv)
	original := buildSpendingTx(parent, 1_900_000) // fee 1,100,000
	if err := mp.AcceptTx(original); err != nil {
		t.Fatalf("AcceptTx(original): %v", err)
	}

	replacement := buildSpendingTx(parent, 1_500_000) // fee 1,500,000, higher fee and fee-rate
	replacement.TxOut[0].PkScript = p2wpkhScript(3)
	if err := mp.AcceptTx(replacement); err != nil {
		t.Fatalf("AcceptTx(replacement): %v", err)
	}

	if mp.Len() != 1 {
		t.Fatalf("expected the original to be replaced, got %d entries", mp.Len())
	}
	replacementTxid := replacement.TxHash(testHashFn)
	if mp.Get(replacementTxid) == nil {
		t.Fatalf("expected the replacement to be the surviving entry")
	}
}

func TestReplaceByFeeRejectsLowerFeeRate(t *testing.T) {
	cv := newFakeCoinView()
	parent := hashFromByte(1)
	cv.addUTXO(parent, 3_000_000)

	mp := buildTestMempool(t, cv)
	original := buildSpendingTx(parent, 1_000_000) // fee 2,000,000
	if err := mp.AcceptTx(original); err != nil {
		t.Fatalf("AcceptTx(original): %v", err)
	}

	worse := buildSpendingTx(parent, 1_900_000) // fee 1,100,000, lower
	worse.TxOut[0].PkScript = p2wpkhScript(4)
	if err := mp.AcceptTx(worse); err == nil {
		t.Fatalf("expected RbfNotAllowed rejection")
	}
	if mp.Len() != 1 {
		t.Fatalf("expected the original entry to survive, got %d entries", mp.Len())
	}
}

func TestAncestorLimitRejectsTooManyAncestors(t *testing.T) {
	cv := newFakeCoinView()
	root := hashFromByte(1)
	cv.addUTXO(root, 10_000_000)

	mp := NewMempool(Config{
		CoinView:     cv,
		HashFunc:     testHashFn,
		MaxAncestors: 2,
	})

	prev := root
	value := int64(9_000_000)
	for i := 0; i < 2; i++ {
		tx := buildSpendingTx(prev, value)
		tx.TxOut[0].PkScript = p2wpkhScript(byte(10 + i))
		if err := mp.AcceptTx(tx); err != nil {
			t.Fatalf("AcceptTx(chain tx %d): %v", i, err)
		}
		prev = tx.TxHash(testHashFn)
		value -= 1_500_000
	}

	tooDeep := buildSpendingTx(prev, value-1_500_000)
	tooDeep.TxOut[0].PkScript = p2wpkhScript(99)
	if err := mp.AcceptTx(tooDeep); err == nil {
		t.Fatalf("expected TooManyAncestors rejection")
	}
}

func TestRelayFilterDedupesPerPeer(t *testing.T) {
	cv := newFakeCoinView()
	mp := buildTestMempool(t, cv)
	txid := hashFromByte(7)

	if mp.SeenByPeer("1.2.3.4:1", txid) {
		t.Fatalf("txid should not be seen yet")
	}
	mp.MarkSeenByPeer("1.2.3.4:1", txid)
	if !mp.SeenByPeer("1.2.3.4:1", txid) {
		t.Fatalf("txid should be marked seen for this peer")
	}
	if mp.SeenByPeer("5.6.7.8:1", txid) {
		t.Fatalf("marking seen for one peer must not leak to another")
	}
}
