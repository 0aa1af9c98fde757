// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rules

// VersionRule rejects headers whose version is not one of the accepted
// values for the active deployment.
type VersionRule struct {
	MinVersion int32
}

func (VersionRule) Name() string { return "version" }

func (r VersionRule) CheckHeader(ctx HeaderContext) error {
	if ctx.Header.Version < r.MinVersion {
		return ruleError("version", ErrBadVersion, "header version below minimum")
	}
	return nil
}

// TimeMonotonicRule rejects headers whose timestamp does not exceed the
// median time of the preceding window (spec §4.3: "time monotonicity").
type TimeMonotonicRule struct{}

func (TimeMonotonicRule) Name() string { return "time-monotonic" }

func (TimeMonotonicRule) CheckHeader(ctx HeaderContext) error {
	if ctx.Header.Timestamp <= ctx.MedianPastTime {
		return ruleError("time-monotonic", ErrHeaderInvalid, "timestamp not greater than median past time")
	}
	return nil
}

// FutureDriftRule rejects headers timestamped too far ahead of local time
// (spec §4.3: "future-drift bound").
type FutureDriftRule struct{}

func (FutureDriftRule) Name() string { return "future-drift" }

func (FutureDriftRule) CheckHeader(ctx HeaderContext) error {
	if ctx.Header.Timestamp > ctx.Now+ctx.MaxFutureDrift {
		return ruleError("future-drift", ErrHeaderInvalid, "timestamp too far in the future")
	}
	return nil
}

// DifficultyRetargetRule checks that the header's bits match the value the
// retarget rule computed for this height.
type DifficultyRetargetRule struct{}

func (DifficultyRetargetRule) Name() string { return "difficulty-retarget" }

func (DifficultyRetargetRule) CheckHeader(ctx HeaderContext) error {
	if ctx.Header.Bits != ctx.RequiredBits {
		return ruleError("difficulty-retarget", ErrHeaderInvalid, "bits do not match the required difficulty")
	}
	return nil
}

// PoWTargetRule checks that a PoW header's hash satisfies its own bits
// (spec §4.3: "PoW target check (if PoW)"). It only applies when the
// header is not a PoS header.
type PoWTargetRule struct {
	// MeetsTarget reports whether powHash satisfies the target implied by
	// bits; injected so this rule stays free of math/big and concrete
	// hash types.
	MeetsTarget func(powHash [32]byte, bits uint32) bool
}

func (PoWTargetRule) Name() string { return "pow-target" }

func (r PoWTargetRule) CheckHeader(ctx HeaderContext) error {
	if ctx.IsPoS {
		return nil
	}
	if r.MeetsTarget == nil || !r.MeetsTarget(ctx.Header.PowHash, ctx.Header.Bits) {
		return ruleError("pow-target", ErrBadPoWHash, "header hash does not meet its target")
	}
	return nil
}

// PoSKernelRule checks that a PoS header's inlined stake kernel is valid
// (spec §4.3: "PoS header signature"). StakeKernelOK is a callback the
// caller supplies (backed by stakechain.CheckKernel), keeping this
// package independent of stakechain.
type PoSKernelRule struct {
	StakeKernelOK func() (bool, error)
}

func (PoSKernelRule) Name() string { return "pos-kernel" }

func (r PoSKernelRule) CheckHeader(ctx HeaderContext) error {
	if !ctx.IsPoS {
		return nil
	}
	if r.StakeKernelOK == nil {
		return ruleError("pos-kernel", ErrBadStakeKernel, "no kernel checker configured")
	}
	ok, err := r.StakeKernelOK()
	if err != nil {
		return ruleError("pos-kernel", ErrBadStakeKernel, err.Error())
	}
	if !ok {
		return ruleError("pos-kernel", ErrBadStakeKernel, "kernel hash does not satisfy target")
	}
	return nil
}
