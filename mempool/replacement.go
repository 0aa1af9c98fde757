// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/coinview"
	"github.com/xds-project/xdsd/wire"
)

// checkReplacement enforces spec §4.7's replace-by-fee rule: the
// replacement must pay a higher absolute fee AND a higher fee-rate than
// every transaction it conflicts with, AND must not introduce any new
// unconfirmed parent beyond the conflicting set itself. Violators are
// rejected RbfNotAllowed.
func (mp *Mempool) checkReplacement(tx *wire.MsgTx, txid chainhash.Hash, fee int64, feeRate float64, conflicts []chainhash.Hash) error {
	conflictSet := make(map[chainhash.Hash]struct{}, len(conflicts))
	var conflictFeeTotal int64
	for _, c := range conflicts {
		conflictSet[c] = struct{}{}
		entry := mp.entries[c]
		if entry == nil {
			continue
		}
		conflictFeeTotal += entry.Fee
		if feeRate <= entry.FeeRate() {
			return policyError(ErrRbfNotAllowed, "replacement does not improve on conflicting fee-rate")
		}
	}
	if fee <= conflictFeeTotal {
		return policyError(ErrRbfNotAllowed, "replacement does not pay a higher absolute fee")
	}

	for _, in := range tx.TxIn {
		if _, ok := mp.entries[in.PreviousOutPoint.Hash]; !ok {
			continue
		}
		if _, replaced := conflictSet[in.PreviousOutPoint.Hash]; replaced {
			continue
		}
		return policyError(ErrRbfNotAllowed, "replacement introduces a new unconfirmed parent")
	}
	return nil
}

// removeLocked evicts txid and unlinks it from its parents/children
// bookkeeping. Callers must hold mp.mu.
func (mp *Mempool) removeLocked(txid chainhash.Hash) {
	entry, ok := mp.entries[txid]
	if !ok {
		return
	}
	for parent := range entry.Parents {
		if p, ok := mp.entries[parent]; ok {
			delete(p.Children, txid)
		}
	}
	for child := range entry.Children {
		if c, ok := mp.entries[child]; ok {
			delete(c.Parents, txid)
		}
	}
	for _, in := range entry.Tx.TxIn {
		delete(mp.spentBy, coinview.Outpoint{Hash: in.PreviousOutPoint.Hash, Index: in.PreviousOutPoint.Index})
	}
	mp.feeRate.Remove(txid)
	delete(mp.entries, txid)
}
