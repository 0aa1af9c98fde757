// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensusmgr

import (
	"bytes"
	"fmt"

	"github.com/xds-project/xdsd/blockindex"
	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/coinview"
	"github.com/xds-project/xdsd/eventbus"
	"github.com/xds-project/xdsd/rules"
	"github.com/xds-project/xdsd/wire"
)

// BlockConnectedEvent is the payload published on eventbus.BlockConnected.
type BlockConnectedEvent struct {
	Header *blockindex.ChainedHeader
	Block  *wire.MsgBlock
}

// BlockDisconnectedEvent is the payload published on
// eventbus.BlockDisconnected.
type BlockDisconnectedEvent struct {
	Header *blockindex.ChainedHeader
}

// OnBlock runs the Integrity pipeline against a received block body. On
// failure it returns a BanRequest per spec §4.5 ("on_block ... on
// failure raise IntegrityValidationFailed(peer, error, ban_duration)").
// Partial/Full validation are scheduled by the caller (the block-
// validation worker pool, spec §5) once this returns successfully.
func (cm *ConsensusManager) OnBlock(peerAddr string, block *wire.MsgBlock) error {
	hash := cm.cfg.HashFunc(block.Header.Bytes())
	txids := make([]chainhash.Hash, len(block.Transactions))
	for i, tx := range block.Transactions {
		txids[i] = tx.TxHash(cm.cfg.HashFunc)
	}
	computedMerkle := wire.MerkleRoot(txids, cm.cfg.HashFunc)

	var buf bytes.Buffer
	_ = block.Serialize(&buf)

	ctx := rules.IntegrityContext{
		MerkleRoot:     block.Header.MerkleRoot,
		ComputedMerkle: computedMerkle,
		SerializedSize: buf.Len(),
		MaxBlockSize:   int(wire.MaxBlockPayload),
		HasWitnessTxs:  anyWitness(block.Transactions),
	}
	if err := cm.cfg.IntegrityPipeline.Run(ctx); err != nil {
		cm.cfg.Invalid.MarkInvalid(hash, err.Error())
		return &BanRequest{PeerAddr: peerAddr, Reason: err, BanDuration: cm.cfg.BanDurationBase}
	}
	return nil
}

func anyWitness(txs []*wire.MsgTx) bool {
	for _, tx := range txs {
		if tx.HasWitness() {
			return true
		}
	}
	return false
}

// ConnectBlock integrates block, whose header must already be chained in
// the indexer, as the new best-chain tip, handling any reorg this
// requires (spec §4.5: "connect_block"). It runs under the chain-writer
// lock: no other goroutine may mutate coinview, stake chain, or chain
// tip concurrently (spec §5).
func (cm *ConsensusManager) ConnectBlock(newTipHash chainhash.Hash, blocksByHash map[chainhash.Hash]*wire.MsgBlock) error {
	cm.writerMu.Lock()
	defer cm.writerMu.Unlock()

	newTip := cm.cfg.Indexer.GetByHash(newTipHash)
	if newTip == nil {
		return fmt.Errorf("consensusmgr: unknown header %s", newTipHash)
	}
	currentTip := cm.cfg.Indexer.Tip()
	if currentTip == nil {
		return cm.connectForward(currentTip, newTip, blocksByHash)
	}
	if currentTip.Hash() == newTipHash {
		return nil
	}

	fork := cm.cfg.Indexer.FindFork(newTip)
	forkDepth := currentTip.Height - fork.Height
	if err := rules.CheckMaxReorg(forkDepth, cm.cfg.MaxReorgLength); err != nil {
		cm.cfg.Invalid.MarkInvalid(newTipHash, err.Error())
		return err
	}

	// Rewind the coinview and stake chain back to the fork point,
	// publishing BlockDisconnected for every block undone.
	for h := currentTip; h != nil && h.Hash() != fork.Hash(); h = h.Parent {
		if _, err := cm.cfg.Coins.Rewind(); err != nil {
			return fmt.Errorf("consensusmgr: rewind during reorg: %w", err)
		}
		cm.cfg.Stakes.Forget(h.Hash())
		cm.cfg.Bus.Publish(eventbus.BlockDisconnected, BlockDisconnectedEvent{Header: h})
	}

	return cm.connectForward(fork, newTip, blocksByHash)
}

// connectForward walks the ancestry from (exclusive) from to (inclusive)
// newTip, applying each block's changes to the coinview and stake chain
// in order and publishing BlockConnected as it goes.
func (cm *ConsensusManager) connectForward(from, newTip *blockindex.ChainedHeader, blocksByHash map[chainhash.Hash]*wire.MsgBlock) error {
	var chain []*blockindex.ChainedHeader
	for h := newTip; h != from; h = h.Parent {
		if h == nil {
			return fmt.Errorf("consensusmgr: broke out of ancestry walk before reaching fork point")
		}
		chain = append(chain, h)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	for _, h := range chain {
		block, ok := blocksByHash[h.Hash()]
		if !ok {
			return fmt.Errorf("consensusmgr: missing block body for %s", h.Hash())
		}
		if err := cm.validateFull(h.Height, block); err != nil {
			cm.cfg.Invalid.MarkInvalid(h.Hash(), err.Error())
			return fmt.Errorf("consensusmgr: full validation of %s: %w", h.Hash(), err)
		}
		changes, err := buildChanges(block, h.Height, cm.cfg.HashFunc)
		if err != nil {
			return fmt.Errorf("consensusmgr: building coinview changes for %s: %w", h.Hash(), err)
		}
		var parentHash chainhash.Hash
		if h.Parent != nil {
			parentHash = h.Parent.Hash()
		}
		if err := cm.cfg.Coins.Apply(h.Hash(), parentHash, changes); err != nil {
			return fmt.Errorf("consensusmgr: applying block %s: %w", h.Hash(), err)
		}
		// The stake modifier advances for every connected block, PoW or
		// PoS; absent a coinstake kernel (PoW blocks) the block hash
		// itself is a stable, deterministic mixing input.
		_ = cm.cfg.Stakes.Advance(parentHash, h.Hash(), h.Hash())
		cm.cfg.Bus.Publish(eventbus.BlockConnected, BlockConnectedEvent{Header: h, Block: block})
	}

	cm.cfg.Indexer.SetTip(newTip)
	return nil
}

// buildChanges derives the coinview Changes a block's application makes:
// every non-coinbase input becomes a Spend, and every transaction's
// outputs become a new UTXO entry (spec §4.2).
func buildChanges(block *wire.MsgBlock, height int64, hashFn HashFunc) (coinview.Changes, error) {
	changes := coinview.Changes{NewUTXOs: make(map[chainhash.Hash]*coinview.UnspentOutputs)}

	for _, tx := range block.Transactions {
		isCoinBase := tx.IsCoinBase()
		if !isCoinBase {
			for _, in := range tx.TxIn {
				changes.Spends = append(changes.Spends, coinview.Spend{
					Outpoint: coinview.Outpoint{Hash: in.PreviousOutPoint.Hash, Index: in.PreviousOutPoint.Index},
				})
			}
		}

		outputs := make([]*coinview.TxOutput, len(tx.TxOut))
		for i, out := range tx.TxOut {
			outputs[i] = &coinview.TxOutput{Amount: out.Value, Script: out.PkScript}
		}
		txid := tx.TxHash(hashFn)
		changes.NewUTXOs[txid] = &coinview.UnspentOutputs{
			Height:      uint32(height),
			IsCoinBase:  isCoinBase,
			IsCoinStake: isCoinStake(tx, block),
			Time:        block.Header.Timestamp,
			Outputs:     outputs,
		}
	}
	return changes, nil
}

// isCoinStake reports whether tx is the block's coinstake transaction:
// under PoS, index 1 in a two-transaction coinbase/coinstake pair (spec
// §4.3).
func isCoinStake(tx *wire.MsgTx, block *wire.MsgBlock) bool {
	if !block.IsPoS() || len(block.Transactions) < 2 {
		return false
	}
	return block.Transactions[1] == tx
}
