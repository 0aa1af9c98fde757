// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package coinview implements the UTXO set (spec §4.2): a cache layer
// (CachedCoinView) over a durable, KV-backed store (DurableCoinView),
// supporting atomic apply/rewind with bounded in-memory rewind history.
package coinview

import (
	"github.com/xds-project/xdsd/chaincfg/chainhash"
)

// TxOutput is a single unspent output. A nil entry at a given index means
// that output has been spent (spec §3: "sparse array of (amount, script)
// for `None` for spent positions").
type TxOutput struct {
	Amount int64
	Script []byte
}

// UnspentOutputs is the UTXO-set entry for a single transaction (spec §3).
type UnspentOutputs struct {
	Height      uint32
	IsCoinBase  bool
	IsCoinStake bool
	Time        uint32
	Outputs     []*TxOutput
}

// Clone returns a deep copy of u, so that callers can mutate the copy
// without affecting any cached or previously returned entry.
func (u *UnspentOutputs) Clone() *UnspentOutputs {
	if u == nil {
		return nil
	}
	c := *u
	c.Outputs = make([]*TxOutput, len(u.Outputs))
	for i, o := range u.Outputs {
		if o == nil {
			continue
		}
		oc := *o
		c.Outputs[i] = &oc
	}
	return &c
}

// IsFullySpent reports whether every output position is nil, meaning the
// entry is eligible for pruning (spec §3 invariant).
func (u *UnspentOutputs) IsFullySpent() bool {
	for _, o := range u.Outputs {
		if o != nil {
			return false
		}
	}
	return true
}

// Spend marks output index as spent, returning the removed output (nil if
// already spent or out of range).
func (u *UnspentOutputs) Spend(index uint32) *TxOutput {
	if int(index) >= len(u.Outputs) {
		return nil
	}
	out := u.Outputs[index]
	u.Outputs[index] = nil
	return out
}

// Unspend restores output at index to out, growing the sparse array if
// necessary. Used by rewind to undo a spend.
func (u *UnspentOutputs) Unspend(index uint32, out *TxOutput) {
	for uint32(len(u.Outputs)) <= index {
		u.Outputs = append(u.Outputs, nil)
	}
	u.Outputs[index] = out
}

// Outpoint identifies a single output within a transaction.
type Outpoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// FetchResult is the outcome of a fetch for a single txid: either the
// entry if it is (at least partially) unspent, or Absent if the coinview
// has no record of it.
type FetchResult struct {
	Entry  *UnspentOutputs
	Absent bool
}

// Spend describes a single output being consumed by a block.
type Spend struct {
	Outpoint Outpoint
}

// Changes is the full set of mutations a block's FullValidation application
// makes to the coinview (spec §4.2).
type Changes struct {
	Spends    []Spend
	NewUTXOs  map[chainhash.Hash]*UnspentOutputs
}

// RewindData is the per-block delta needed to undo a block's effect on the
// coinview (spec §3, §4.2).
type RewindData struct {
	PrevBlockHash chainhash.Hash
	// RemovedTxids are the txids that must be deleted entirely on
	// rewind, because this block's apply created them from scratch.
	RemovedTxids []chainhash.Hash
	// RestoredOutputs are pre-apply copies of every entry this block's
	// apply modified (spent against), restored verbatim on rewind.
	RestoredOutputs map[chainhash.Hash]*UnspentOutputs
}
