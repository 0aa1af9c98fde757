// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txscript recognizes the small, closed set of output script
// templates this chain whitelists (spec §3, §4.3): P2WPKH and P2WSH for
// ordinary outputs, plus the coinbase-empty and coinstake-marker shapes
// that bypass the whitelist by consensus rule rather than by script form.
package txscript

// Opcodes used by the recognized script templates. Only the handful
// required to detect a witness program or a legacy P2PKH pattern (for the
// rejection fixture in spec §8 item 4) are named; this package is not a
// general script interpreter.
const (
	OP_0            = 0x00
	OP_DATA_20      = 0x14
	OP_DATA_32      = 0x20
	OP_PUSHDATA1    = 0x4c
	OP_DUP          = 0x76
	OP_EQUAL        = 0x87
	OP_EQUALVERIFY  = 0x88
	OP_HASH160      = 0xa9
	OP_CHECKSIG     = 0xac
	OP_RETURN       = 0x6a
)

// ScriptType identifies the recognized output script template.
type ScriptType byte

// Recognized script types.
const (
	STNonStandard ScriptType = iota
	STWitnessPubKeyHash
	STWitnessScriptHash
	STPubKeyHash // legacy P2PKH: rejected by the whitelist rule
	STNullData
)

// IsWitnessPubKeyHashScript reports whether script is `OP_0 <20-byte hash>`
// (P2WPKH).
func IsWitnessPubKeyHashScript(script []byte) bool {
	return len(script) == 22 &&
		script[0] == OP_0 &&
		script[1] == OP_DATA_20
}

// IsWitnessScriptHashScript reports whether script is `OP_0 <32-byte hash>`
// (P2WSH).
func IsWitnessScriptHashScript(script []byte) bool {
	return len(script) == 34 &&
		script[0] == OP_0 &&
		script[1] == OP_DATA_32
}

// IsPubKeyHashScript reports whether script is the legacy
// `OP_DUP OP_HASH160 <20-byte hash> OP_EQUALVERIFY OP_CHECKSIG` pattern
// (P2PKH). This template is never whitelisted; it is recognized solely so
// the whitelist rule can reject it by name (spec §8 item 4).
func IsPubKeyHashScript(script []byte) bool {
	return len(script) == 25 &&
		script[0] == OP_DUP &&
		script[1] == OP_HASH160 &&
		script[2] == OP_DATA_20 &&
		script[23] == OP_EQUALVERIFY &&
		script[24] == OP_CHECKSIG
}

// IsNullDataScript reports whether script is a provably unspendable
// `OP_RETURN ...` output, used for the coinbase-empty marker.
func IsNullDataScript(script []byte) bool {
	return len(script) >= 1 && script[0] == OP_RETURN
}

// DetermineScriptType classifies script into one of the recognized
// templates, or STNonStandard if it matches none of them.
func DetermineScriptType(script []byte) ScriptType {
	switch {
	case IsWitnessPubKeyHashScript(script):
		return STWitnessPubKeyHash
	case IsWitnessScriptHashScript(script):
		return STWitnessScriptHash
	case IsPubKeyHashScript(script):
		return STPubKeyHash
	case IsNullDataScript(script):
		return STNullData
	default:
		return STNonStandard
	}
}

// IsWhitelisted reports whether script is one of the output templates the
// whitelist rule accepts for an ordinary (non-coinbase, non-coinstake)
// output: P2WPKH or P2WSH only (spec §3, §8 item 4).
func IsWhitelisted(script []byte) bool {
	t := DetermineScriptType(script)
	return t == STWitnessPubKeyHash || t == STWitnessScriptHash
}
