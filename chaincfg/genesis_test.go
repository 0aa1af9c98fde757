// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"testing"

	"github.com/xds-project/xdsd/xdscrypto"
)

// TestGenesisBlock exercises spec §8 scenario 1's literal genesis seed
// values (version, time, nonce, reward) and checks that the configured
// GenesisHash is the hash of the configured genesis block. The literal
// genesis hash string itself is not checked.
func TestGenesisBlock(t *testing.T) {
	p := MainNetParams()

	if got, want := p.GenesisBlock.Header.Version, int32(1); got != want {
		t.Fatalf("genesis version = %d, want %d", got, want)
	}
	if got, want := p.GenesisBlock.Header.Timestamp, uint32(1578008160); got != want {
		t.Fatalf("genesis time = %d, want %d", got, want)
	}
	if got, want := p.GenesisBlock.Header.Nonce, uint32(15118976); got != want {
		t.Fatalf("genesis nonce = %d, want %d", got, want)
	}
	if got, want := p.GenesisBlock.Transactions[0].TxOut[0].Value, int64(0); got != want {
		t.Fatalf("genesis reward = %d, want %d", got, want)
	}

	gotHash := p.GenesisBlock.BlockHash(xdscrypto.Sha512Trunc256)
	if !gotHash.IsEqual(&p.GenesisHash) {
		t.Fatalf("computed genesis hash %s does not match configured hash %s",
			gotHash, p.GenesisHash)
	}
}

// TestCompactRoundTrip checks BigToCompact/CompactToBig round-trip for the
// mainnet PoW limit, the basis of every difficulty comparison in the rule
// engine.
func TestCompactRoundTrip(t *testing.T) {
	p := MainNetParams()
	back := CompactToBig(p.PowLimitBits)
	if back.Cmp(p.PowLimit) != 0 {
		t.Fatalf("compact round trip mismatch: got %x want %x", back, p.PowLimit)
	}
}
