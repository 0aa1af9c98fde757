// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package stakechain implements the proof-of-stake kernel: the stake
// modifier chain and the kernel-hash validity check a coinstake input
// must satisfy (spec §4.3).
package stakechain

import (
	"encoding/binary"
	"math/big"

	"github.com/xds-project/xdsd/chaincfg"
	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/xdscrypto"
)

// StakeTimeMask bits every kernel timestamp must be aligned to; a non-zero
// remainder is a protocol violation (spec §4.3: "aligned to a 16-second
// mask").
const StakeTimeMask = 15

// Kernel is the material a coinstake input contributes to the kernel hash:
// its outpoint, the value it carries, and the block time of the block that
// created it.
type Kernel struct {
	PrevTxid      chainhash.Hash
	Vout          uint32
	Value         int64
	PrevBlockTime uint32
	StakeModifier uint64
	BlockTime     uint32
}

// ErrTimeNotAligned is returned when BlockTime is not aligned to
// StakeTimeMask.
type ErrTimeNotAligned struct {
	Time uint32
}

func (e *ErrTimeNotAligned) Error() string {
	return "stake kernel: block time not aligned to the stake time mask"
}

// KernelHash computes hash256(stake_modifier || prev_block_time ||
// prev_txid || vout || t_block) (spec §4.3).
func KernelHash(k Kernel) chainhash.Hash {
	buf := make([]byte, 8+4+chainhash.HashSize+4+4)
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], k.StakeModifier)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], k.PrevBlockTime)
	off += 4
	copy(buf[off:], k.PrevTxid[:])
	off += chainhash.HashSize
	binary.LittleEndian.PutUint32(buf[off:], k.Vout)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], k.BlockTime)
	return xdscrypto.Hash256(buf)
}

// CheckKernel validates a coinstake kernel against the block's difficulty
// bits (spec §4.3: "kernel_hash / v <= target_from_bits(bits)"). The block
// time must be aligned to StakeTimeMask, else the kernel is rejected
// outright.
func CheckKernel(k Kernel, bits uint32) (bool, error) {
	if k.BlockTime&StakeTimeMask != 0 {
		return false, &ErrTimeNotAligned{Time: k.BlockTime}
	}
	if k.Value <= 0 {
		return false, nil
	}

	hash := KernelHash(k)
	hashInt := new(big.Int).SetBytes(reverse(hash[:]))
	quotient := new(big.Int).Div(hashInt, big.NewInt(k.Value))
	target := chaincfg.TargetFromBits(bits)
	return quotient.Cmp(target) <= 0, nil
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// StakeModifierSource computes the stake modifier for a block given its
// parent's modifier and the coinstake kernel hash that sealed the parent
// block. The concrete mixing function is intentionally simple and
// injectable; CheckKernel only needs a value, not a particular derivation.
type StakeModifierSource interface {
	NextModifier(parentModifier uint64, parentKernelHash chainhash.Hash) uint64
}

// XorMixModifier is the default StakeModifierSource: it folds the parent
// kernel hash's first 8 bytes (little-endian) into the parent modifier by
// XOR, a common, simple PoS modifier chaining approach.
type XorMixModifier struct{}

// NextModifier implements StakeModifierSource.
func (XorMixModifier) NextModifier(parentModifier uint64, parentKernelHash chainhash.Hash) uint64 {
	mix := binary.LittleEndian.Uint64(parentKernelHash[:8])
	return parentModifier ^ mix
}
