// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/xds-project/xdsd/coinview"
	"github.com/xds-project/xdsd/consensusmgr"
	"github.com/xds-project/xdsd/eventbus"
)

// Subscribe registers the pool's reorg-reconciliation handlers on bus
// (spec §4.7: "Reorg reconciliation"). Call once at node startup.
func (mp *Mempool) Subscribe(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.BlockConnected, func(payload interface{}) {
		if evt, ok := payload.(consensusmgr.BlockConnectedEvent); ok {
			mp.onBlockConnected(evt)
		}
	})
	bus.Subscribe(eventbus.BlockDisconnected, func(payload interface{}) {
		if evt, ok := payload.(consensusmgr.BlockDisconnectedEvent); ok {
			mp.onBlockDisconnected(evt)
		}
	})
}

// onBlockConnected removes every transaction the block confirmed, and
// evicts every pooled transaction that spends an outpoint a block
// transaction also spends, along with that conflict's descendants (spec
// §4.7: "on BlockConnected, confirmed transactions and their descendants
// that conflict are evicted"). Children of a confirmed transaction stay.
func (mp *Mempool) onBlockConnected(evt consensusmgr.BlockConnectedEvent) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	for _, tx := range evt.Block.Transactions {
		mp.removeLocked(tx.TxHash(mp.cfg.HashFunc))
		for _, in := range tx.TxIn {
			owner, ok := mp.spentBy[coinview.Outpoint{Hash: in.PreviousOutPoint.Hash, Index: in.PreviousOutPoint.Index}]
			if !ok {
				continue
			}
			for _, d := range mp.descendants(owner) {
				mp.removeLocked(d)
			}
			mp.removeLocked(owner)
		}
	}
}

// onBlockDisconnected re-admits every transaction the disconnected block
// carried, running each through the acceptance pipeline again; entries
// that no longer validate are silently dropped (spec §4.7: "all
// transactions from the disconnected block re-enter the mempool if still
// valid").
func (mp *Mempool) onBlockDisconnected(evt consensusmgr.BlockDisconnectedEvent) {
	if mp.cfg.BlockByHash == nil {
		return
	}
	block := mp.cfg.BlockByHash(evt.Header.Hash())
	if block == nil {
		return
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()
	for _, tx := range block.Transactions {
		if tx.IsCoinBase() {
			continue
		}
		_ = mp.acceptLocked(tx)
	}
}
