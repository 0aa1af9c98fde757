// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package xdscrypto adapts the cryptographic primitives the consensus core
// consumes as an external contract (spec §1): content hashing, the PoW
// digest, and an ECDSA signature-verification interface. The hashes come
// from the standard library; no signature verifier is implemented in this
// tree, and bech32 address codecs live in the separate bech32 package.
// This package only fixes the exact contract shape the rule engine and
// coinview expect.
package xdscrypto

import (
	"crypto/sha256"
	"crypto/sha512"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
)

// HashB calculates hash256(b) and returns the resulting bytes. hash256 is
// the double SHA-256 digest used for txids, merkle nodes, and message
// checksums throughout the wire format.
func HashB(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

// Hash256 calculates hash256(b) and returns the resulting digest as a Hash.
func Hash256(b []byte) chainhash.Hash {
	first := sha256.Sum256(b)
	return chainhash.Hash(sha256.Sum256(first[:]))
}

// Sha512Trunc256 calculates sha512_trunc256(b), the truncated SHA-512
// digest used as the PoW hash function (spec §3: "PoW hash here is
// sha512_trunc256(serialize(header))").
func Sha512Trunc256(b []byte) chainhash.Hash {
	return chainhash.Hash(sha512.Sum512_256(b))
}

// ECDSAVerifier abstracts signature verification so the rule engine can be
// unit tested with a fake verifier without pulling in a concrete curve
// implementation. No implementation of it exists in this tree; the caller
// supplies one.
type ECDSAVerifier interface {
	// VerifyECDSA reports whether sig is a valid signature of msg under
	// pubkey.
	VerifyECDSA(msg, sig, pubkey []byte) bool
}

// ECDSAVerifierFunc adapts a plain function to the ECDSAVerifier interface.
type ECDSAVerifierFunc func(msg, sig, pubkey []byte) bool

// VerifyECDSA implements ECDSAVerifier.
func (f ECDSAVerifierFunc) VerifyECDSA(msg, sig, pubkey []byte) bool {
	return f(msg, sig, pubkey)
}
