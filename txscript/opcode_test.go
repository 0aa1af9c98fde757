// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "testing"

// TestWhitelist exercises spec §8 scenario 4: a P2PKH output is rejected
// while the same value sent to a P2WPKH output is accepted.
func TestWhitelist(t *testing.T) {
	p2pkh := []byte{
		OP_DUP, OP_HASH160, OP_DATA_20,
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20,
		OP_EQUALVERIFY, OP_CHECKSIG,
	}
	if IsWhitelisted(p2pkh) {
		t.Fatalf("P2PKH script must not be whitelisted")
	}
	if DetermineScriptType(p2pkh) != STPubKeyHash {
		t.Fatalf("expected P2PKH classification")
	}

	p2wpkh := append([]byte{OP_0, OP_DATA_20},
		[]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}...)
	if !IsWhitelisted(p2wpkh) {
		t.Fatalf("P2WPKH script must be whitelisted")
	}

	p2wsh := append([]byte{OP_0, OP_DATA_32}, make([]byte, 32)...)
	if !IsWhitelisted(p2wsh) {
		t.Fatalf("P2WSH script must be whitelisted")
	}
}
