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

// TestNetParams returns the consensus parameters for the xds test network.
// It has its own PoW limit (2^232 - 1) and genesis block, and shorter
// coinbase maturity, stake-age and retarget timespan than mainnet; the max
// reorg length is the mainnet value.
func TestNetParams() *Params {
	testPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 232), bigOne)
	powLimitBits := BigToCompact(testPowLimit)

	genesis := buildGenesisBlock(1, 1578008160, powLimitBits, 0)

	p := MainNetParams()
	p.Name = "testnet"
	p.Net = 0x58445332 // "XDS2"
	p.DefaultPort = "38433"
	p.RPCPort = "48433"
	p.APIPort = "48434"
	p.PowLimit = testPowLimit
	p.PowLimitBits = powLimitBits
	p.GenesisBlock = genesis
	p.GenesisHash = genesis.BlockHash(xdscrypto.Sha512Trunc256)
	p.CoinbaseMaturity = 10
	p.StakeMinConfirmations = 50
	p.Bech32HRP = "txds"
	p.TargetTimespan = time.Hour
	p.Checkpoints = nil
	return p
}
