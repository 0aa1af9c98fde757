// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensusmgr

import (
	"testing"
	"time"

	"github.com/xds-project/xdsd/blockindex"
	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/coinview"
	"github.com/xds-project/xdsd/eventbus"
	"github.com/xds-project/xdsd/rules"
	"github.com/xds-project/xdsd/stakechain"
	"github.com/xds-project/xdsd/wire"
)

// fakeCoinView is an in-memory coinview.CoinView used only to exercise
// ConsensusManager's reorg/apply sequencing without a real database.
type fakeCoinView struct {
	tip     chainhash.Hash
	applied []chainhash.Hash
	rewinds int
}

func (f *fakeCoinView) Fetch(txids []chainhash.Hash) (map[chainhash.Hash]coinview.FetchResult, error) {
	return nil, nil
}

func (f *fakeCoinView) Apply(blockHash, prevBlockHash chainhash.Hash, changes coinview.Changes) error {
	f.applied = append(f.applied, blockHash)
	f.tip = blockHash
	return nil
}

func (f *fakeCoinView) Rewind() (chainhash.Hash, error) {
	f.rewinds++
	if len(f.applied) > 0 {
		f.applied = f.applied[:len(f.applied)-1]
	}
	if len(f.applied) > 0 {
		f.tip = f.applied[len(f.applied)-1]
	}
	return f.tip, nil
}

func (f *fakeCoinView) GetTip() (chainhash.Hash, error) { return f.tip, nil }
func (f *fakeCoinView) Flush() error                    { return nil }

func buildTestManager(t *testing.T) (*ConsensusManager, *blockindex.ChainIndexer, *fakeCoinView) {
	t.Helper()
	hashFn := func(b []byte) chainhash.Hash {
		var h chainhash.Hash
		for i, c := range b {
			h[i%chainhash.HashSize] ^= c
		}
		return h
	}
	genesisHeader := wire.BlockHeader{Version: 1, Timestamp: uint32(time.Now().Unix())}
	genesis := blockindex.NewChainedHeader(genesisHeader, nil, hashFn)
	indexer := blockindex.NewChainIndexer(genesis)

	coins := &fakeCoinView{}
	stakes := stakechain.NewStakeChain(genesis.Hash(), 1, nil)
	bus := eventbus.New()

	cm := New(Config{
		Indexer:           indexer,
		Coins:             coins,
		Stakes:            stakes,
		Bus:               bus,
		Invalid:           NewInvalidBlockHashStore(),
		HashFunc:          hashFn,
		HeaderPipeline:    rules.NewHeaderPipeline(),
		IntegrityPipeline: rules.NewIntegrityPipeline(),
		PartialPipeline:   rules.NewPartialPipeline(),
		FullPipeline:      rules.NewFullPipeline(),
	})
	return cm, indexer, coins
}

func TestIsIBDTrueWhenTipIsStale(t *testing.T) {
	cm, indexer, _ := buildTestManager(t)
	tip := indexer.Tip()
	cm.now = func() time.Time { return time.Unix(int64(tip.Header.Timestamp), 0).Add(2 * time.Hour) }
	if !cm.IsIBD() {
		t.Fatalf("expected IsIBD true when the tip's timestamp is more than an hour behind now")
	}
}

func TestIsIBDFalseWhenCaughtUp(t *testing.T) {
	cm, indexer, _ := buildTestManager(t)
	tip := indexer.Tip()
	cm.RecordPeerTip("1.1.1.1:1", tip.Height)
	cm.now = func() time.Time { return time.Unix(int64(tip.Header.Timestamp), 0) }
	if cm.IsIBD() {
		t.Fatalf("expected IsIBD false when tip is fresh and at peer height")
	}
}

func TestConnectBlockAppliesGenesisChild(t *testing.T) {
	cm, indexer, coins := buildTestManager(t)
	genesis := indexer.Tip()

	child := wire.BlockHeader{Version: 1, PrevBlock: genesis.Hash(), Timestamp: genesis.Header.Timestamp + 1}
	chained := blockindex.NewChainedHeader(child, genesis, cm.cfg.HashFunc)
	indexer.AddHeader(chained)

	block := &wire.MsgBlock{Header: child, Transactions: []*wire.MsgTx{{Version: 1, LockTime: 0}}}
	blocksByHash := map[chainhash.Hash]*wire.MsgBlock{chained.Hash(): block}

	if err := cm.ConnectBlock(chained.Hash(), blocksByHash); err != nil {
		t.Fatalf("ConnectBlock: %v", err)
	}
	if indexer.Tip().Hash() != chained.Hash() {
		t.Fatalf("expected tip to advance to the connected block")
	}
	if len(coins.applied) != 1 || coins.applied[0] != chained.Hash() {
		t.Fatalf("expected coinview to have applied exactly the new block, got %v", coins.applied)
	}
}

// coinbaseTx builds a single-input, null-prevout coinbase transaction
// paying reward to a single output.
func coinbaseTx(reward int64) *wire.MsgTx {
	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Index: wire.MaxTxInSequenceNum},
		}},
		TxOut: []*wire.TxOut{{Value: reward}},
	}
}

func TestConnectBlockRejectsOversizedSubsidy(t *testing.T) {
	cm, indexer, coins := buildTestManager(t)
	cm.cfg.FullPipeline = rules.NewFullPipeline(rules.SubsidyRule{})
	cm.cfg.BaseSubsidy = 50
	cm.cfg.HalvingInterval = 1

	genesis := indexer.Tip()
	child := wire.BlockHeader{Version: 1, PrevBlock: genesis.Hash(), Timestamp: genesis.Header.Timestamp + 1}
	chained := blockindex.NewChainedHeader(child, genesis, cm.cfg.HashFunc)
	indexer.AddHeader(chained)

	block := &wire.MsgBlock{Header: child, Transactions: []*wire.MsgTx{coinbaseTx(51)}}
	blocksByHash := map[chainhash.Hash]*wire.MsgBlock{chained.Hash(): block}

	if err := cm.ConnectBlock(chained.Hash(), blocksByHash); err == nil {
		t.Fatalf("expected ConnectBlock to reject a coinbase reward exceeding the subsidy")
	}
	if len(coins.applied) != 0 {
		t.Fatalf("expected coinview to have applied nothing, got %v", coins.applied)
	}
	if indexer.Tip().Hash() != genesis.Hash() {
		t.Fatalf("expected tip to remain at genesis after a rejected block")
	}
}
