// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"sync"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/wire"
)

// blockBodyCache holds block bodies received from peers but not yet
// consumed by ConsensusManager.ConnectBlock, which needs every body along
// a reorg's span at once (spec §4.5: "connect_block"). Forget is called
// once a body is behind the connected tip and will not be needed again.
type blockBodyCache struct {
	mu     sync.Mutex
	blocks map[chainhash.Hash]*wire.MsgBlock
}

func newBlockBodyCache() *blockBodyCache {
	return &blockBodyCache{blocks: make(map[chainhash.Hash]*wire.MsgBlock)}
}

func (c *blockBodyCache) Store(hash chainhash.Hash, block *wire.MsgBlock) {
	c.mu.Lock()
	c.blocks[hash] = block
	c.mu.Unlock()
}

func (c *blockBodyCache) Get(hash chainhash.Hash) *wire.MsgBlock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks[hash]
}

func (c *blockBodyCache) Forget(hash chainhash.Hash) {
	c.mu.Lock()
	delete(c.blocks, hash)
	c.mu.Unlock()
}

// Snapshot returns every cached body as a lookup map, the shape
// ConsensusManager.ConnectBlock expects.
func (c *blockBodyCache) Snapshot() map[chainhash.Hash]*wire.MsgBlock {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[chainhash.Hash]*wire.MsgBlock, len(c.blocks))
	for k, v := range c.blocks {
		out[k] = v
	}
	return out
}
