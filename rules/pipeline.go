// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rules

// HeaderContext is everything a Header-pipeline rule may consult (spec
// §4.3): the candidate header and the chain it extends, represented
// narrowly so the rules package has no dependency on blockindex's
// concrete tree type.
type HeaderContext struct {
	Header         HeaderLike
	Parent         HeaderLike
	IsPoS          bool
	MedianPastTime uint32
	MaxFutureDrift uint32
	Now            uint32
	Retarget       RetargetParams
	RequiredBits   uint32
}

// HeaderLike is the minimal view of a chained header a Header rule needs.
type HeaderLike struct {
	Version   int32
	Timestamp uint32
	Bits      uint32
	Height    int64
	PowHash   [32]byte
	PowTarget interface{} // *big.Int, kept untyped here to avoid importing math/big twice
}

// HeaderRule is a single check in the Header pipeline.
type HeaderRule interface {
	Name() string
	CheckHeader(ctx HeaderContext) error
}

// HeaderPipeline runs a fixed, ordered list of HeaderRules; the first
// failure aborts the pipeline (spec §4.3: "the first failing rule aborts
// the pipeline").
type HeaderPipeline struct {
	rules []HeaderRule
}

// NewHeaderPipeline returns a pipeline that runs rules in order.
func NewHeaderPipeline(rules ...HeaderRule) *HeaderPipeline {
	return &HeaderPipeline{rules: rules}
}

// Run executes every rule in order, stopping at the first error.
func (p *HeaderPipeline) Run(ctx HeaderContext) error {
	for _, r := range p.rules {
		if err := r.CheckHeader(ctx); err != nil {
			return err
		}
	}
	return nil
}

// IntegrityContext is what the Integrity pipeline consults: the raw block
// and its header, before any per-transaction structural work.
type IntegrityContext struct {
	MerkleRoot        [32]byte
	ComputedMerkle    [32]byte
	SerializedSize    int
	MaxBlockSize      int
	WitnessCommitment []byte
	HasWitnessTxs     bool
}

// IntegrityRule is a single check in the Integrity pipeline.
type IntegrityRule interface {
	Name() string
	CheckIntegrity(ctx IntegrityContext) error
}

// IntegrityPipeline runs a fixed, ordered list of IntegrityRules.
type IntegrityPipeline struct {
	rules []IntegrityRule
}

// NewIntegrityPipeline returns a pipeline that runs rules in order.
func NewIntegrityPipeline(rules ...IntegrityRule) *IntegrityPipeline {
	return &IntegrityPipeline{rules: rules}
}

// Run executes every rule in order, stopping at the first error.
func (p *IntegrityPipeline) Run(ctx IntegrityContext) error {
	for _, r := range p.rules {
		if err := r.CheckIntegrity(ctx); err != nil {
			return err
		}
	}
	return nil
}

// TxView is the minimal transaction shape the PartialValidation and
// FullValidation pipelines need, independent of wire.MsgTx so this
// package's rules are unit-testable without constructing full wire types.
type TxView struct {
	IsCoinBase    bool
	IsCoinStake   bool
	InputScripts  [][]byte // per-input scriptSig, empty slice means empty
	HasWitness    []bool   // per-input: witness stack present
	OutputScripts [][]byte // per-output pkScript
	OutputValues  []int64
	LockTime      uint32
	SigOpCount    int
}

// PartialContext is what the PartialValidation pipeline consults.
type PartialContext struct {
	Txs              []TxView
	Height           int64
	MedianPastTime   uint32
	MaxSigOpsPerTx   int
	WitnessRequired  bool
}

// PartialRule is a single check in the PartialValidation pipeline.
type PartialRule interface {
	Name() string
	CheckPartial(ctx PartialContext) error
}

// PartialPipeline runs a fixed, ordered list of PartialRules.
type PartialPipeline struct {
	rules []PartialRule
}

// NewPartialPipeline returns a pipeline that runs rules in order.
func NewPartialPipeline(rules ...PartialRule) *PartialPipeline {
	return &PartialPipeline{rules: rules}
}

// Run executes every rule against every transaction in ctx.Txs, in rule
// order, stopping at the first failure.
func (p *PartialPipeline) Run(ctx PartialContext) error {
	for _, r := range p.rules {
		if err := r.CheckPartial(ctx); err != nil {
			return err
		}
	}
	return nil
}

// SpentInput is a single input's resolved prior output, looked up from the
// coinview ahead of full validation.
type SpentInput struct {
	Value      int64
	IsCoinBase bool
	Height     int64
}

// FullContext is what the FullValidation pipeline consults: the block plus
// coinview-resolved inputs and chain parameters needed for subsidy/fee/
// stake checks.
type FullContext struct {
	Txs              []TxView
	ResolvedInputs    [][]SpentInput // per-tx, per-input
	Height            int64
	CoinbaseMaturity  int64
	BaseSubsidy       int64
	HalvingInterval   int64
	TotalFees         int64
	AbsoluteMinTxFee  int64
	StakeKernelValid  bool
	StakeKernelChecked bool
}

// FullRule is a single check in the FullValidation pipeline.
type FullRule interface {
	Name() string
	CheckFull(ctx FullContext) error
}

// FullPipeline runs a fixed, ordered list of FullRules.
type FullPipeline struct {
	rules []FullRule
}

// NewFullPipeline returns a pipeline that runs rules in order.
func NewFullPipeline(rules ...FullRule) *FullPipeline {
	return &FullPipeline{rules: rules}
}

// Run executes every rule in order, stopping at the first failure.
func (p *FullPipeline) Run(ctx FullContext) error {
	for _, r := range p.rules {
		if err := r.CheckFull(ctx); err != nil {
			return err
		}
	}
	return nil
}
