// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rules

import (
	"math/big"

	"github.com/xds-project/xdsd/chaincfg"
)

// RetargetParams is the subset of chaincfg.Params the difficulty retarget
// rule needs.
type RetargetParams struct {
	PowLimitBits             uint32
	TargetTimespanSeconds    int64
	TargetSpacingSeconds     int64
	RetargetAdjustmentFactor int64
}

// RetargetInterval returns how many blocks make up one retarget window, so
// a caller can locate the window-start header before calling
// CalcNextRequiredDifficulty.
func (p RetargetParams) RetargetInterval() int64 {
	return p.retargetInterval()
}

// retargetInterval is how many blocks make up one retarget window.
func (p RetargetParams) retargetInterval() int64 {
	if p.TargetSpacingSeconds <= 0 {
		return 1
	}
	interval := p.TargetTimespanSeconds / p.TargetSpacingSeconds
	if interval <= 0 {
		return 1
	}
	return interval
}

// CalcNextRequiredDifficulty computes the difficulty bits for the block at
// height (prevHeight+1), given the previous block's bits and the elapsed
// wall-clock time across the prior retarget window (spec §6: "PoW target
// timespan 14 days; target spacing 10 minutes"). This is the classic
// Bitcoin-style periodic retarget, clamped by RetargetAdjustmentFactor to
// bound how far difficulty can move in one window (the clamp idiom is the
// one piece carried over from the teacher's EMA-based retarget, simplified
// here to a single clamp instead of a windowed weighted average since this
// chain's params name a flat timespan/spacing pair, not Decred's
// WorkDiffWindows/WorkDiffAlpha knobs).
func CalcNextRequiredDifficulty(p RetargetParams, prevHeight int64, prevBits uint32, windowStartTime, windowEndTime int64) uint32 {
	if prevHeight < 0 {
		return p.PowLimitBits
	}

	interval := p.retargetInterval()
	nextHeight := prevHeight + 1
	if nextHeight%interval != 0 {
		return prevBits
	}

	actualTimespan := windowEndTime - windowStartTime
	minTimespan := p.TargetTimespanSeconds / p.RetargetAdjustmentFactor
	maxTimespan := p.TargetTimespanSeconds * p.RetargetAdjustmentFactor
	if actualTimespan < minTimespan {
		actualTimespan = minTimespan
	}
	if actualTimespan > maxTimespan {
		actualTimespan = maxTimespan
	}

	oldTarget := chaincfg.CompactToBig(prevBits)
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(actualTimespan))
	newTarget.Div(newTarget, big.NewInt(p.TargetTimespanSeconds))

	powLimit := chaincfg.CompactToBig(p.PowLimitBits)
	if newTarget.Cmp(powLimit) > 0 {
		newTarget = powLimit
	}
	return chaincfg.BigToCompact(newTarget)
}
