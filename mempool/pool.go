// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"sync"
	"time"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/coinview"
	"github.com/xds-project/xdsd/eventbus"
	"github.com/xds-project/xdsd/rules"
	"github.com/xds-project/xdsd/txscript"
	"github.com/xds-project/xdsd/wire"
)

// Config wires a Mempool to its collaborators and policy limits (spec
// §4.7, §6 defaults).
type Config struct {
	CoinView coinview.CoinView
	HashFunc func([]byte) chainhash.Hash
	Bus      *eventbus.Bus

	// ChainHeight and MedianPastTime report the current best-chain state
	// for locktime-style partial-validation rules; supplied as closures
	// so this package has no dependency on blockindex (wired in
	// cmd/xdsd to blockindex.ChainIndexer.Tip()).
	ChainHeight    func() int64
	MedianPastTime func() uint32

	// BlockByHash looks up a previously-connected block's body by hash,
	// used only to re-admit its transactions on BlockDisconnected (spec
	// §4.7). ConsensusManager's disconnect event carries only the header,
	// since ConsensusManager itself has no block-store dependency;
	// cmd/xdsd does not set this closure. A nil
	// BlockByHash makes disconnect reconciliation a no-op: disconnected
	// transactions are simply not re-considered, which is conservative
	// (never readmits something that shouldn't be) rather than unsafe.
	BlockByHash func(hash chainhash.Hash) *wire.MsgBlock

	MaxTxVSize       int64
	MaxAncestors     int
	MaxAncestorVSize int64
	AbsoluteMinTxFee int64
	MaxSigOpsPerTx   int
	WitnessRequired  bool

	// FreeFeeRateFloor is the fee-rate, in atoms per kvB, below which a
	// transaction is subject to the free-relay rate limiter (spec §4.7:
	// "rate-limit").
	FreeFeeRateFloor float64
	// FreeBytesPerMinute bounds how many vsize bytes of sub-floor-fee-rate
	// transactions the pool admits per minute, decaying continuously.
	FreeBytesPerMinute float64
}

func (c *Config) setDefaults() {
	if c.MaxTxVSize == 0 {
		c.MaxTxVSize = 100_000
	}
	if c.MaxAncestors == 0 {
		c.MaxAncestors = 25
	}
	if c.MaxAncestorVSize == 0 {
		c.MaxAncestorVSize = 101_000
	}
	if c.AbsoluteMinTxFee == 0 {
		c.AbsoluteMinTxFee = 1_000_000
	}
	if c.MaxSigOpsPerTx == 0 {
		c.MaxSigOpsPerTx = 4000
	}
	if c.FreeFeeRateFloor == 0 {
		c.FreeFeeRateFloor = float64(c.AbsoluteMinTxFee)
	}
	if c.FreeBytesPerMinute == 0 {
		c.FreeBytesPerMinute = 15_000
	}
	if c.ChainHeight == nil {
		c.ChainHeight = func() int64 { return 0 }
	}
	if c.MedianPastTime == nil {
		c.MedianPastTime = func() uint32 { return uint32(time.Now().Unix()) }
	}
}

// Mempool is the fee-rate ordered, ancestor-aware transaction pool (spec
// §4.7).
type Mempool struct {
	cfg Config

	mu      sync.RWMutex
	entries map[chainhash.Hash]*TxEntry
	spentBy map[coinview.Outpoint]chainhash.Hash
	feeRate *feeRateIndex

	partial *rules.PartialPipeline
	full    *rules.FullPipeline

	freeBytesWindow float64
	lastFreeDecay   time.Time
	now             func() time.Time

	relayMu      sync.Mutex
	relayFilters map[string]*RelayFilter
}

// NewMempool returns an empty Mempool wired to cfg.
func NewMempool(cfg Config) *Mempool {
	cfg.setDefaults()
	return &Mempool{
		cfg:     cfg,
		entries: make(map[chainhash.Hash]*TxEntry),
		spentBy: make(map[coinview.Outpoint]chainhash.Hash),
		feeRate: newFeeRateIndex(),
		partial: rules.NewPartialPipeline(
			rules.WitnessRequiredRule{},
			rules.ScriptSigEmptyRule{},
			rules.OutputWhitelistRule{},
			rules.SigOpCountRule{},
		),
		full:          rules.NewFullPipeline(rules.FeeFloorRule{}),
		lastFreeDecay: time.Now(),
		now:           time.Now,
		relayFilters:  make(map[string]*RelayFilter),
	}
}

// Len returns the number of transactions currently held.
func (mp *Mempool) Len() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return len(mp.entries)
}

// SeenByPeer implements peer.MempoolSink.
func (mp *Mempool) SeenByPeer(peerAddr string, txid chainhash.Hash) bool {
	return mp.relayFilterFor(peerAddr).Seen(txid)
}

// MarkSeenByPeer implements peer.MempoolSink.
func (mp *Mempool) MarkSeenByPeer(peerAddr string, txid chainhash.Hash) {
	mp.relayFilterFor(peerAddr).Mark(txid)
}

func (mp *Mempool) relayFilterFor(peerAddr string) *RelayFilter {
	mp.relayMu.Lock()
	defer mp.relayMu.Unlock()
	f, ok := mp.relayFilters[peerAddr]
	if !ok {
		f = NewRelayFilter(0)
		mp.relayFilters[peerAddr] = f
	}
	return f
}

// ForgetPeer drops a disconnected peer's relay filter.
func (mp *Mempool) ForgetPeer(peerAddr string) {
	mp.relayMu.Lock()
	defer mp.relayMu.Unlock()
	delete(mp.relayFilters, peerAddr)
}

// HasTx implements peer.MempoolSink.
func (mp *Mempool) HasTx(txid chainhash.Hash) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	_, ok := mp.entries[txid]
	return ok
}

// Get returns the entry for txid, or nil if not present.
func (mp *Mempool) Get(txid chainhash.Hash) *TxEntry {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.entries[txid]
}

// OrderedByFeeRate returns every held txid, highest fee-rate first, the
// order a block template assembler consumes the pool in.
func (mp *Mempool) OrderedByFeeRate() []chainhash.Hash {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.feeRate.Ordered()
}

// OnTx implements peer.MempoolSink: a peer-relayed transaction is run
// through the acceptance pipeline, ignoring (not erroring on) rejections
// so a single bad relay doesn't tear down the peer's read loop. Callers
// that need the rejection reason should call AcceptTx directly.
func (mp *Mempool) OnTx(peerAddr string, tx *wire.MsgTx) {
	_ = mp.AcceptTx(tx)
}

// AcceptTx runs tx through the full mempool acceptance pipeline (spec
// §4.7) and, on success, adds it to the pool and publishes
// eventbus.TransactionReceived.
func (mp *Mempool) AcceptTx(tx *wire.MsgTx) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.acceptLocked(tx)
}

func (mp *Mempool) acceptLocked(tx *wire.MsgTx) error {
	if err := preChecks(tx, mp.cfg.MaxTxVSize); err != nil {
		return err
	}

	txid := tx.TxHash(mp.cfg.HashFunc)
	if _, ok := mp.entries[txid]; ok {
		return policyError(ErrDuplicateTx, txid.String())
	}

	conflicts, err := mp.conflictCheck(tx, txid)
	if err != nil {
		return err
	}

	resolved, totalIn, err := mp.resolveInputs(tx)
	if err != nil {
		return err
	}

	vsize, err := txVSize(tx)
	if err != nil {
		return err
	}
	totalOut := sumOutputValues(tx)
	fee := totalIn - totalOut

	if err := mp.runRulePipelines(tx, fee, vsize); err != nil {
		return err
	}

	feeRate := float64(fee) * 1000 / float64(vsize)
	if feeRate < mp.cfg.FreeFeeRateFloor {
		if err := mp.rateLimit(vsize); err != nil {
			return err
		}
	}

	parents := make(map[chainhash.Hash]struct{})
	for _, r := range resolved {
		if r.parent != (chainhash.Hash{}) {
			parents[r.parent] = struct{}{}
		}
	}
	ancestorCount, ancestorVSize := mp.ancestorStats(parents)
	if ancestorCount+1 > mp.cfg.MaxAncestors {
		return policyError(ErrTooManyAncestors, "")
	}
	if ancestorVSize+vsize > mp.cfg.MaxAncestorVSize {
		return policyError(ErrAncestorVSize, "")
	}

	if len(conflicts) > 0 {
		if err := mp.checkReplacement(tx, txid, fee, feeRate, conflicts); err != nil {
			return err
		}
		for _, c := range conflicts {
			mp.removeLocked(c)
		}
	}

	entry := &TxEntry{
		Tx:       tx,
		Txid:     txid,
		Fee:      fee,
		VSize:    vsize,
		AddedAt:  mp.now(),
		Parents:  parents,
		Children: make(map[chainhash.Hash]struct{}),
	}
	mp.entries[txid] = entry
	mp.feeRate.Add(txid, entry.FeeRate())
	for parent := range parents {
		if p, ok := mp.entries[parent]; ok {
			p.Children[txid] = struct{}{}
		}
	}
	for _, in := range tx.TxIn {
		mp.spentBy[coinview.Outpoint{Hash: in.PreviousOutPoint.Hash, Index: in.PreviousOutPoint.Index}] = txid
	}

	if mp.cfg.Bus != nil {
		mp.cfg.Bus.Publish(eventbus.TransactionReceived, tx)
	}
	return nil
}

func preChecks(tx *wire.MsgTx, maxVSize int64) error {
	if len(tx.TxIn) == 0 {
		return policyError(ErrNoInputs, "")
	}
	if len(tx.TxOut) == 0 {
		return policyError(ErrNoOutputs, "")
	}
	if tx.IsCoinBase() {
		return policyError(ErrNoInputs, "coinbase transactions are not individually relayed")
	}
	vsize, err := txVSize(tx)
	if err != nil {
		return err
	}
	if vsize > maxVSize {
		return policyError(ErrTxTooLarge, "")
	}
	return nil
}

// conflictCheck reports every existing entry that spends one of tx's
// inputs, for the replacement-check step to adjudicate (spec §4.7:
// "conflict check vs existing mempool and chain").
func (mp *Mempool) conflictCheck(tx *wire.MsgTx, txid chainhash.Hash) ([]chainhash.Hash, error) {
	seen := make(map[chainhash.Hash]struct{})
	var conflicts []chainhash.Hash
	for _, in := range tx.TxIn {
		owner, ok := mp.spentBy[coinview.Outpoint{Hash: in.PreviousOutPoint.Hash, Index: in.PreviousOutPoint.Index}]
		if !ok || owner == txid {
			continue
		}
		if _, ok := seen[owner]; ok {
			continue
		}
		seen[owner] = struct{}{}
		conflicts = append(conflicts, owner)
	}
	return conflicts, nil
}

func (mp *Mempool) runRulePipelines(tx *wire.MsgTx, fee, vsize int64) error {
	view := buildTxView(tx)
	pctx := rules.PartialContext{
		Txs:             []rules.TxView{view},
		Height:          mp.cfg.ChainHeight(),
		MedianPastTime:  mp.cfg.MedianPastTime(),
		MaxSigOpsPerTx:  mp.cfg.MaxSigOpsPerTx,
		WitnessRequired: mp.cfg.WitnessRequired,
	}
	if err := mp.partial.Run(pctx); err != nil {
		return err
	}

	// FeeFloorRule only needs ResolvedInputs to sum to the transaction's
	// total input value; folding it into a single synthetic SpentInput
	// avoids re-deriving the per-input breakdown FullContext was designed
	// to carry for block-level coinbase-maturity checks, which do not
	// apply to a lone mempool candidate.
	fctx := rules.FullContext{
		Txs:              []rules.TxView{view},
		ResolvedInputs:   [][]rules.SpentInput{{{Value: fee + sumOutputValues(tx)}}},
		AbsoluteMinTxFee: mp.cfg.AbsoluteMinTxFee,
	}
	return mp.full.Run(fctx)
}

func buildTxView(tx *wire.MsgTx) rules.TxView {
	view := rules.TxView{
		IsCoinBase:    tx.IsCoinBase(),
		InputScripts:  make([][]byte, len(tx.TxIn)),
		HasWitness:    make([]bool, len(tx.TxIn)),
		OutputScripts: make([][]byte, len(tx.TxOut)),
		OutputValues:  make([]int64, len(tx.TxOut)),
		LockTime:      tx.LockTime,
		SigOpCount:    countSigOps(tx),
	}
	for i, in := range tx.TxIn {
		view.InputScripts[i] = in.SignatureScript
		view.HasWitness[i] = i < len(tx.Witness) && len(tx.Witness[i]) > 0
	}
	for i, out := range tx.TxOut {
		view.OutputScripts[i] = out.PkScript
		view.OutputValues[i] = out.Value
	}
	return view
}

// countSigOps conservatively counts one signature operation per
// recognized witness-program output (inputs are not counted), since the whitelisted
// templates (P2WPKH/P2WSH) each commit to exactly one spending key check
// (spec §4.3: "sigop count"); unrecognized scripts count as zero since
// they are rejected separately by the whitelist rule.
func countSigOps(tx *wire.MsgTx) int {
	count := 0
	for _, out := range tx.TxOut {
		switch txscript.DetermineScriptType(out.PkScript) {
		case txscript.STWitnessPubKeyHash, txscript.STWitnessScriptHash:
			count++
		}
	}
	return count
}
