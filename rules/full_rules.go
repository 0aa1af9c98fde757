// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rules

// CoinbaseMaturityRule forbids spending a coinbase output before it has
// reached the configured maturity depth (spec §6: "coinbase maturity
// 50").
type CoinbaseMaturityRule struct{}

func (CoinbaseMaturityRule) Name() string { return "coinbase-maturity" }

func (r CoinbaseMaturityRule) CheckFull(ctx FullContext) error {
	for _, inputs := range ctx.ResolvedInputs {
		for _, in := range inputs {
			if !in.IsCoinBase {
				continue
			}
			if ctx.Height-in.Height < ctx.CoinbaseMaturity {
				return ruleError("coinbase-maturity", ErrHeaderInvalid, "attempt to spend an immature coinbase output")
			}
		}
	}
	return nil
}

// FeeFloorRule enforces spec §4.3/§6's absolute minimum transaction fee
// on every non-coinbase, non-coinstake transaction in the block.
type FeeFloorRule struct{}

func (FeeFloorRule) Name() string { return "fee-floor" }

func (r FeeFloorRule) CheckFull(ctx FullContext) error {
	for i, tx := range ctx.Txs {
		if tx.IsCoinBase || tx.IsCoinStake {
			continue
		}
		fee := sumValues(ctx.ResolvedInputs[i]) - sumOutputs(tx)
		if fee < ctx.AbsoluteMinTxFee {
			return ruleError("fee-floor", ErrFeeBelowAbsoluteMinTxFee, "transaction fee below the absolute minimum")
		}
	}
	return nil
}

func sumValues(inputs []SpentInput) int64 {
	var total int64
	for _, in := range inputs {
		total += in.Value
	}
	return total
}

func sumOutputs(tx TxView) int64 {
	var total int64
	for _, v := range tx.OutputValues {
		total += v
	}
	return total
}

// SubsidyRule checks that the coinbase (or coinstake) output total does not
// exceed the subsidy owed at this height plus the block's collected fees
// (spec §4.3: "subsidy check").
type SubsidyRule struct{}

func (SubsidyRule) Name() string { return "subsidy" }

func (r SubsidyRule) CheckFull(ctx FullContext) error {
	if len(ctx.Txs) == 0 {
		return nil
	}
	reward := ctx.Txs[0]
	if !reward.IsCoinBase && !reward.IsCoinStake {
		return ruleError("subsidy", ErrHeaderInvalid, "block has no coinbase or coinstake reward transaction")
	}
	subsidy := CalcBlockSubsidy(ctx.Height, ctx.BaseSubsidy, ctx.HalvingInterval)
	maxReward := subsidy + ctx.TotalFees
	if sumOutputs(reward) > maxReward {
		return ruleError("subsidy", ErrHeaderInvalid, "reward transaction pays more than subsidy plus fees")
	}
	return nil
}

// StakeKernelFullRule requires the block's coinstake input to have had its
// kernel validated (spec §4.3: "stake kernel validation"). The actual
// kernel math runs in stakechain.CheckKernel; this rule only rejects a
// block whose context reports that check ran (StakeKernelChecked) and
// failed. A block whose kernel was not checked passes.
type StakeKernelFullRule struct{}

func (StakeKernelFullRule) Name() string { return "stake-kernel" }

func (StakeKernelFullRule) CheckFull(ctx FullContext) error {
	if !ctx.StakeKernelChecked {
		return nil
	}
	if !ctx.StakeKernelValid {
		return ruleError("stake-kernel", ErrBadStakeKernel, "stake kernel check failed")
	}
	return nil
}

// CheckMaxReorg rejects a reorg whose fork point lies more than
// maxReorgLength blocks behind the current tip (spec §4.3: "max reorg
// length"). forkDepth is tipHeight - forkHeight, computed by the caller
// (ConsensusManager) from the chain indexer.
func CheckMaxReorg(forkDepth, maxReorgLength int64) error {
	if forkDepth > maxReorgLength {
		return ruleError("max-reorg", ErrMaxReorgViolation, "fork point too far behind the current tip")
	}
	return nil
}
