// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/wire"
)

// Checkpoint identifies a known-good block hash at a given height,
// supplementing the spec with the CheckpointMismatch rule error kind named
// in spec §7 but otherwise left unspecified (SPEC_FULL.md §C).
type Checkpoint struct {
	Height int64
	Hash   chainhash.Hash
}

// Params defines the network-specific parameters a full node needs: wire
// framing, genesis, difficulty and subsidy schedule, and address encoding.
type Params struct {
	Name        string
	Net         uint32
	DefaultPort string
	RPCPort     string
	APIPort     string

	GenesisBlock  *wire.MsgBlock
	GenesisHash   chainhash.Hash
	PowLimit      *big.Int
	PowLimitBits  uint32
	TargetTimespan time.Duration
	TargetSpacing  time.Duration
	RetargetAdjustmentFactor int64

	// SubsidyHalvingInterval is the number of blocks between halvings of
	// the block subsidy (spec §6: "halving every 210,000 blocks").
	SubsidyHalvingInterval int64
	BaseSubsidy            int64

	CoinbaseMaturity uint16
	MaxReorgLength   int64

	// StakeTimeMask aligns PoS block times to a 16-second boundary (spec
	// §4.3: "Time must be aligned to a 16-second mask").
	StakeTimeMask uint32

	// StakeMinConfirmations is the minimum age, in blocks, a staking
	// input must have before it is kernel-eligible.
	StakeMinConfirmations int64

	Bech32HRP string

	Checkpoints []Checkpoint

	MaxFutureBlockTime time.Duration
}

// bigOne is 1 represented as a big.Int; convenience value shared by the
// per-network parameter constructors.
var bigOne = big.NewInt(1)

// HeaderSerialize returns the byte form of the given header for this
// network's hash function caller (the canonical, PoW-only header bytes).
func HeaderSerialize(h *wire.BlockHeader) []byte {
	return h.Bytes()
}
