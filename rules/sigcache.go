// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rules

import (
	"bytes"
	"sync"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
)

// sigCacheEntry records that a given (sighash, signature, pubkey) triple
// was already found valid, so FullValidation does not re-run the ECDSA
// verifier for inputs it has already checked (e.g. on mempool acceptance
// followed by block inclusion).
type sigCacheEntry struct {
	pubKey []byte
	sig    []byte
}

// SigCache caches the outcome of expensive signature verification keyed on
// the digest actually signed (chainhash.Hash is already collision
// resistant, so unlike the teacher's cache this needs no extra short-hash
// layer — see the sigcache adaptation note in DESIGN.md). Capacity is
// enforced by evicting arbitrary entries once the map is full, the same
// "don't bother keeping insertion order" policy the teacher's cache used.
type SigCache struct {
	mu       sync.RWMutex
	capacity int
	valid    map[chainhash.Hash][]sigCacheEntry
}

// NewSigCache returns an empty SigCache bounded to capacity distinct
// sighashes (0 means unbounded); one sighash may hold several
// (signature, pubkey) entries.
func NewSigCache(capacity int) *SigCache {
	return &SigCache{
		capacity: capacity,
		valid:    make(map[chainhash.Hash][]sigCacheEntry),
	}
}

// Exists reports whether (sigHash, sig, pubKey) was previously recorded as
// valid by Add.
func (c *SigCache) Exists(sigHash chainhash.Hash, sig, pubKey []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.valid[sigHash] {
		if bytes.Equal(e.sig, sig) && bytes.Equal(e.pubKey, pubKey) {
			return true
		}
	}
	return false
}

// Add records (sigHash, sig, pubKey) as having passed verification.
func (c *SigCache) Add(sigHash chainhash.Hash, sig, pubKey []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capacity > 0 && len(c.valid) >= c.capacity {
		c.evictOneLocked()
	}
	c.valid[sigHash] = append(c.valid[sigHash], sigCacheEntry{pubKey: pubKey, sig: sig})
}

// evictOneLocked drops an arbitrary bucket; Go's map iteration order is
// already randomized, so this is equivalent in spirit to the teacher's
// "evict whatever the hash bucket gives us" policy without needing a
// separate LRU structure for what is a best-effort cache, not a
// correctness-critical one.
func (c *SigCache) evictOneLocked() {
	for k := range c.valid {
		delete(c.valid, k)
		return
	}
}

// EvictEntries drops every cached entry under sigHash, used when a
// transaction that produced them is removed from the mempool.
func (c *SigCache) EvictEntries(sigHash chainhash.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.valid, sigHash)
}
