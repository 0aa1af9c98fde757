// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/jrick/bitset"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
)

// ancestorStats walks every in-mempool ancestor reachable from roots
// (parents, grandparents, ...), bounding the walk with a visited bitset so
// a diamond-shaped dependency graph (two children sharing a grandparent)
// is only counted once (spec §4.7: "ancestor package awareness"). It
// returns the ancestor count and total vsize across the whole set,
// including the roots themselves.
func (mp *Mempool) ancestorStats(roots map[chainhash.Hash]struct{}) (count int, vsize int64) {
	// order gives every entry currently in the pool a stable index so a
	// single bitset can mark "already visited" regardless of txid value.
	order := make(map[chainhash.Hash]int, len(mp.entries))
	i := 0
	for id := range mp.entries {
		order[id] = i
		i++
	}
	visited := bitset.NewBytes(len(order))

	var walk func(chainhash.Hash)
	walk = func(id chainhash.Hash) {
		idx, ok := order[id]
		if !ok || visited.Get(idx) {
			return
		}
		visited.Set(idx)
		entry := mp.entries[id]
		count++
		vsize += entry.VSize
		for parent := range entry.Parents {
			walk(parent)
		}
	}
	for root := range roots {
		walk(root)
	}
	return count, vsize
}

// descendants returns every in-mempool descendant of txid (children,
// grandchildren, ...), used to evict conflicting descendants when a block
// confirms one of their ancestors (spec §4.7: "confirmed transactions and
// their descendants that conflict are evicted").
func (mp *Mempool) descendants(txid chainhash.Hash) []chainhash.Hash {
	seen := make(map[chainhash.Hash]struct{})
	var out []chainhash.Hash

	var walk func(chainhash.Hash)
	walk = func(id chainhash.Hash) {
		entry, ok := mp.entries[id]
		if !ok {
			return
		}
		for child := range entry.Children {
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			out = append(out, child)
			walk(child)
		}
	}
	walk(txid)
	return out
}
