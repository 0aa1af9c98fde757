// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensusmgr

import (
	"fmt"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/coinview"
	"github.com/xds-project/xdsd/rules"
	"github.com/xds-project/xdsd/txscript"
	"github.com/xds-project/xdsd/wire"
)

// ValidatePartial runs the PartialValidation pipeline against block,
// independent of any other block and safe to call from multiple
// goroutines at once (spec §5: "one block-validation worker pool for
// Partial validation; work items are independent and may run
// concurrently"). The caller is the worker pool; it schedules this once
// OnBlock's Integrity pass has succeeded and holds no chain-writer lock
// while doing so.
func (cm *ConsensusManager) ValidatePartial(height int64, medianPastTime uint32, block *wire.MsgBlock) error {
	views := make([]rules.TxView, len(block.Transactions))
	for i, tx := range block.Transactions {
		views[i] = buildTxView(tx)
	}
	ctx := rules.PartialContext{
		Txs:             views,
		Height:          height,
		MedianPastTime:  medianPastTime,
		MaxSigOpsPerTx:  cm.cfg.MaxSigOpsPerTx,
		WitnessRequired: cm.cfg.WitnessRequired,
	}
	return cm.cfg.PartialPipeline.Run(ctx)
}

// validateFull resolves block's inputs against the coinview and runs the
// FullValidation pipeline, under the chain-writer lock (spec §5:
// "connect_block ... execute[s]" in the chain-writer task). It is called
// from connectForward immediately before a block's changes are applied.
func (cm *ConsensusManager) validateFull(height int64, block *wire.MsgBlock) error {
	views := make([]rules.TxView, len(block.Transactions))
	for i, tx := range block.Transactions {
		views[i] = buildTxView(tx)
	}

	resolved, totalFees, err := cm.resolveFullInputs(block)
	if err != nil {
		return err
	}

	ctx := rules.FullContext{
		Txs:                views,
		ResolvedInputs:     resolved,
		Height:             height,
		CoinbaseMaturity:   cm.cfg.CoinbaseMaturity,
		BaseSubsidy:        cm.cfg.BaseSubsidy,
		HalvingInterval:    cm.cfg.HalvingInterval,
		TotalFees:          totalFees,
		AbsoluteMinTxFee:   cm.cfg.AbsoluteMinTxFee,
		StakeKernelChecked: false,
	}
	return cm.cfg.FullPipeline.Run(ctx)
}

// resolveFullInputs fetches every non-coinbase input's prior output from
// the coinview, returning the per-tx/per-input resolution FullContext
// needs plus the block's total collected fees.
func (cm *ConsensusManager) resolveFullInputs(block *wire.MsgBlock) ([][]rules.SpentInput, int64, error) {
	var needed []chainhash.Hash
	seen := make(map[chainhash.Hash]struct{})
	for _, tx := range block.Transactions {
		if tx.IsCoinBase() {
			continue
		}
		for _, in := range tx.TxIn {
			if _, ok := seen[in.PreviousOutPoint.Hash]; ok {
				continue
			}
			seen[in.PreviousOutPoint.Hash] = struct{}{}
			needed = append(needed, in.PreviousOutPoint.Hash)
		}
	}

	var fetched map[chainhash.Hash]coinview.FetchResult
	if len(needed) > 0 {
		var err error
		fetched, err = cm.cfg.Coins.Fetch(needed)
		if err != nil {
			return nil, 0, err
		}
	}

	resolved := make([][]rules.SpentInput, len(block.Transactions))
	var totalFees int64
	for i, tx := range block.Transactions {
		if tx.IsCoinBase() {
			continue
		}
		inputs := make([]rules.SpentInput, len(tx.TxIn))
		var totalIn int64
		for j, in := range tx.TxIn {
			outpoint := in.PreviousOutPoint
			res, ok := fetched[outpoint.Hash]
			if !ok || res.Absent || res.Entry == nil {
				return nil, 0, fmt.Errorf("consensusmgr: missing coinview input %s:%d", outpoint.Hash, outpoint.Index)
			}
			if int(outpoint.Index) >= len(res.Entry.Outputs) || res.Entry.Outputs[outpoint.Index] == nil {
				return nil, 0, fmt.Errorf("consensusmgr: already-spent coinview input %s:%d", outpoint.Hash, outpoint.Index)
			}
			out := res.Entry.Outputs[outpoint.Index]
			inputs[j] = rules.SpentInput{Value: out.Amount, IsCoinBase: res.Entry.IsCoinBase, Height: int64(res.Entry.Height)}
			totalIn += out.Amount
		}
		resolved[i] = inputs
		totalFees += totalIn - sumTxOutputs(tx)
	}
	return resolved, totalFees, nil
}

func sumTxOutputs(tx *wire.MsgTx) int64 {
	var total int64
	for _, out := range tx.TxOut {
		total += out.Value
	}
	return total
}

// buildTxView adapts a wire.MsgTx into the narrow shape the rules
// package's Partial/Full pipelines consult.
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

// countSigOps mirrors mempool's conservative witness-template sigop
// count (spec §4.3: "sigop count"), duplicated here rather than imported
// since mempool already depends on consensusmgr's event types.
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
