// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"encoding/binary"
	"sync"

	"github.com/greatroar/blobloom"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
)

// RelayFilter is a per-peer set of announced txids (marked txids are
// never cleared) backed by a Bloom filter rather than an exact map, since the cost of an
// occasional false-positive (a redundant inv skipped) is far below the
// memory cost of tracking exact per-peer history for every connected
// peer (spec §4.8 mempool behavior: "respects per-peer rate limits").
type RelayFilter struct {
	mu     sync.Mutex
	filter *blobloom.Filter
}

// NewRelayFilter returns a filter sized for expectedTxids entries at a 1%
// false-positive rate.
func NewRelayFilter(expectedTxids uint64) *RelayFilter {
	if expectedTxids == 0 {
		expectedTxids = 50_000
	}
	return &RelayFilter{
		filter: blobloom.NewOptimized(blobloom.Config{
			Capacity: expectedTxids,
			FPRate:   0.01,
		}),
	}
}

// Seen reports whether txid was previously marked via Mark.
func (f *RelayFilter) Seen(txid chainhash.Hash) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter.Has(txidKey(txid))
}

// Mark records txid as announced to (or received from) this peer.
func (f *RelayFilter) Mark(txid chainhash.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.Add(txidKey(txid))
}

func txidKey(txid chainhash.Hash) uint64 {
	return binary.LittleEndian.Uint64(txid[:8])
}
