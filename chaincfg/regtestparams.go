// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/xds-project/xdsd/xdscrypto"
)

// RegTestParams returns the consensus parameters for the regression test
// network: instant difficulty, a tiny reorg bound, and a short coinbase
// maturity so integration tests can drive chain reorganizations quickly.
func RegTestParams() *Params {
	regPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)
	powLimitBits := BigToCompact(regPowLimit)

	genesis := buildGenesisBlock(1, 1578008160, powLimitBits, 0)

	p := MainNetParams()
	p.Name = "regtest"
	p.Net = 0x58445333 // "XDS3"
	p.DefaultPort = "38533"
	p.RPCPort = "48533"
	p.APIPort = "48534"
	p.PowLimit = regPowLimit
	p.PowLimitBits = powLimitBits
	p.GenesisBlock = genesis
	p.GenesisHash = genesis.BlockHash(xdscrypto.Sha512Trunc256)
	p.CoinbaseMaturity = 2
	p.MaxReorgLength = 10
	p.StakeMinConfirmations = 4
	p.Bech32HRP = "rxds"
	p.TargetTimespan = time.Minute
	p.Checkpoints = nil
	return p
}
