// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rules

import "github.com/xds-project/xdsd/txscript"

// ScriptSigEmptyRule requires every non-coinbase input's scriptSig to be
// empty, since spending authority is carried entirely in the witness
// (spec §8 scenario 5: "empty scriptSig with witness accepted").
type ScriptSigEmptyRule struct{}

func (ScriptSigEmptyRule) Name() string { return "scriptsig-empty" }

func (ScriptSigEmptyRule) CheckPartial(ctx PartialContext) error {
	for _, tx := range ctx.Txs {
		if tx.IsCoinBase {
			continue
		}
		for _, sig := range tx.InputScripts {
			if len(sig) != 0 {
				return ruleError("scriptsig-empty", ErrScriptSigNotEmpty, "non-coinbase input has a non-empty scriptSig")
			}
		}
	}
	return nil
}

// WitnessRequiredRule requires every non-coinbase input to carry a witness
// when ctx.WitnessRequired is set; otherwise it accepts every block
// (spec §3: "BIP-141 witness presence on every non-exempt tx").
type WitnessRequiredRule struct{}

func (WitnessRequiredRule) Name() string { return "witness-required" }

func (WitnessRequiredRule) CheckPartial(ctx PartialContext) error {
	if !ctx.WitnessRequired {
		return nil
	}
	for _, tx := range ctx.Txs {
		if tx.IsCoinBase {
			continue
		}
		for _, present := range tx.HasWitness {
			if !present {
				return ruleError("witness-required", ErrMissingWitness, "non-coinbase input missing a witness")
			}
		}
	}
	return nil
}

// OutputWhitelistRule restricts outputs to the whitelisted script
// templates, except on coinbase/coinstake transactions (spec §3, §8
// scenario 4).
type OutputWhitelistRule struct{}

func (OutputWhitelistRule) Name() string { return "output-whitelist" }

func (OutputWhitelistRule) CheckPartial(ctx PartialContext) error {
	for _, tx := range ctx.Txs {
		if tx.IsCoinBase || tx.IsCoinStake {
			continue
		}
		for _, script := range tx.OutputScripts {
			if !txscript.IsWhitelisted(script) {
				return ruleError("output-whitelist", ErrOutputNotWhitelisted, "output script is not a whitelisted template")
			}
		}
	}
	return nil
}

// CoinbasePlacementRule requires the coinbase (or coinstake) transaction
// to be the first transaction in the block and forbids any other
// transaction from also being a coinbase/coinstake (spec §4.3: "coinbase/
// coinstake placement rules").
type CoinbasePlacementRule struct{}

func (CoinbasePlacementRule) Name() string { return "coinbase-placement" }

func (CoinbasePlacementRule) CheckPartial(ctx PartialContext) error {
	for i, tx := range ctx.Txs {
		isSpecial := tx.IsCoinBase || tx.IsCoinStake
		if i == 0 {
			if !isSpecial {
				return ruleError("coinbase-placement", ErrHeaderInvalid, "first transaction is not a coinbase/coinstake")
			}
			continue
		}
		if isSpecial {
			return ruleError("coinbase-placement", ErrHeaderInvalid, "coinbase/coinstake transaction not in first position")
		}
	}
	return nil
}

// SigOpCountRule bounds the signature-operation count per transaction
// (spec §4.3: "sigop count").
type SigOpCountRule struct{}

func (SigOpCountRule) Name() string { return "sigop-count" }

func (SigOpCountRule) CheckPartial(ctx PartialContext) error {
	for _, tx := range ctx.Txs {
		if ctx.MaxSigOpsPerTx > 0 && tx.SigOpCount > ctx.MaxSigOpsPerTx {
			return ruleError("sigop-count", ErrHeaderInvalid, "transaction exceeds the maximum sigop count")
		}
	}
	return nil
}

// LockTimeActivationRule rejects transactions whose locktime has not yet
// activated relative to the block's height/median time (spec §4.3:
// "transaction-locktime activation").
type LockTimeActivationRule struct{}

func (LockTimeActivationRule) Name() string { return "locktime-activation" }

func (LockTimeActivationRule) CheckPartial(ctx PartialContext) error {
	const locktimeThreshold = 500000000 // below this, locktime is a block height
	for _, tx := range ctx.Txs {
		if tx.LockTime == 0 {
			continue
		}
		if tx.LockTime < locktimeThreshold {
			if int64(tx.LockTime) > ctx.Height {
				return ruleError("locktime-activation", ErrHeaderInvalid, "transaction locktime not yet reached")
			}
		} else if tx.LockTime > ctx.MedianPastTime {
			return ruleError("locktime-activation", ErrHeaderInvalid, "transaction locktime not yet reached")
		}
	}
	return nil
}
