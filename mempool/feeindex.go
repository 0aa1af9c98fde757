// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"container/heap"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
)

// feeRateItem is a single slot in the fee-rate priority queue, tracking its
// own heap index so it can be removed in O(log n) on eviction or
// confirmation (spec §4.7: "sorted by effective fee-rate").
type feeRateItem struct {
	txid    chainhash.Hash
	feeRate float64
	index   int
}

// feeRateIndex orders mempool entries from highest to lowest fee-rate,
// grounded on the teacher pack's txPriorityQueue shape (see
// other_examples' daglabs-btcd mining.go) but backed by container/heap
// directly with index tracking so an entry's position supports removal
// by txid rather than only pop-highest.
type feeRateIndex struct {
	items  []*feeRateItem
	byTxid map[chainhash.Hash]*feeRateItem
}

func newFeeRateIndex() *feeRateIndex {
	return &feeRateIndex{byTxid: make(map[chainhash.Hash]*feeRateItem)}
}

func (q *feeRateIndex) Len() int { return len(q.items) }

func (q *feeRateIndex) Less(i, j int) bool {
	return q.items[i].feeRate > q.items[j].feeRate
}

func (q *feeRateIndex) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

func (q *feeRateIndex) Push(x interface{}) {
	item := x.(*feeRateItem)
	item.index = len(q.items)
	q.items = append(q.items, item)
}

func (q *feeRateIndex) Pop() interface{} {
	n := len(q.items)
	item := q.items[n-1]
	q.items[n-1] = nil
	q.items = q.items[:n-1]
	item.index = -1
	return item
}

// Add inserts or updates txid's fee-rate ordering key.
func (q *feeRateIndex) Add(txid chainhash.Hash, feeRate float64) {
	if item, ok := q.byTxid[txid]; ok {
		item.feeRate = feeRate
		heap.Fix(q, item.index)
		return
	}
	item := &feeRateItem{txid: txid, feeRate: feeRate}
	q.byTxid[txid] = item
	heap.Push(q, item)
}

// Remove drops txid from the index, if present.
func (q *feeRateIndex) Remove(txid chainhash.Hash) {
	item, ok := q.byTxid[txid]
	if !ok {
		return
	}
	heap.Remove(q, item.index)
	delete(q.byTxid, txid)
}

// Ordered returns every txid in the index, highest fee-rate first, without
// disturbing the underlying heap.
func (q *feeRateIndex) Ordered() []chainhash.Hash {
	cp := make([]*feeRateItem, len(q.items))
	copy(cp, q.items)
	ordered := &feeRateIndex{items: cp}
	out := make([]chainhash.Hash, 0, len(cp))
	for ordered.Len() > 0 {
		item := heap.Pop(ordered).(*feeRateItem)
		out = append(out, item.txid)
	}
	return out
}
