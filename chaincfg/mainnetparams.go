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
	"github.com/xds-project/xdsd/xdscrypto"
)

// genesisCoinbaseScript is the arbitrary scriptSig data embedded in the
// genesis coinbase input, in the tradition of Bitcoin's embedded headline.
var genesisCoinbaseScript = []byte("the ledger opens where every chain must: at zero")

func genesisCoinbaseTx() *wire.MsgTx {
	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{
				Hash:  chainhash.Hash{},
				Index: wire.MaxTxInSequenceNum,
			},
			SignatureScript: genesisCoinbaseScript,
			Sequence:        wire.MaxTxInSequenceNum,
		}},
		TxOut: []*wire.TxOut{{
			// Genesis reward is 0 (spec §8 scenario 1: "reward = 0").
			Value:    0,
			Version:  0,
			PkScript: nil,
		}},
		LockTime: 0,
	}
}

func buildGenesisBlock(version int32, timestamp uint32, bits, nonce uint32) *wire.MsgBlock {
	coinbase := genesisCoinbaseTx()
	txid := coinbase.TxHash(xdscrypto.Hash256)
	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    version,
			PrevBlock:  chainhash.Hash{},
			MerkleRoot: wire.MerkleRoot([]chainhash.Hash{txid}, xdscrypto.Hash256),
			Timestamp:  timestamp,
			Bits:       bits,
			Nonce:      nonce,
		},
		Transactions: []*wire.MsgTx{coinbase},
	}
	return block
}

// MainNetParams returns the consensus parameters for the main xds network.
func MainNetParams() *Params {
	// mainPowLimit is the highest proof-of-work value a mainnet block can
	// have: 2^236 - 1 (spec §6: "PoW limit 0x00000fff…") as held in
	// compact form (0x1e0fffff), so PowLimit and PowLimitBits name the
	// same value.
	powLimitBits := BigToCompact(new(big.Int).Sub(new(big.Int).Lsh(bigOne, 236), bigOne))
	mainPowLimit := CompactToBig(powLimitBits)

	// Genesis time, nonce, bits and version are the literal seed values of
	// spec §8 scenario 1; the genesis hash is the sha512_trunc256 digest
	// of the resulting header, computed once here.
	genesis := buildGenesisBlock(1, 1578008160, powLimitBits, 15118976)
	genesisHash := genesis.BlockHash(xdscrypto.Sha512Trunc256)

	return &Params{
		Name:        "mainnet",
		Net:         0x58445331, // "XDS1"
		DefaultPort: "38333",
		RPCPort:     "48333",
		APIPort:     "48334",

		GenesisBlock: genesis,
		GenesisHash:  genesisHash,
		PowLimit:     mainPowLimit,
		PowLimitBits: powLimitBits,

		TargetTimespan:           14 * 24 * time.Hour,
		TargetSpacing:            10 * time.Minute,
		RetargetAdjustmentFactor: 4,

		SubsidyHalvingInterval: 210000,
		BaseSubsidy:            50 * 1e8,

		CoinbaseMaturity: 50,
		MaxReorgLength:   125,

		StakeTimeMask:         15, // 16-second alignment mask (0b1111)
		StakeMinConfirmations: 500,

		Bech32HRP: "xds",

		Checkpoints: []Checkpoint{
			{Height: 0, Hash: genesisHash},
		},

		MaxFutureBlockTime: 2 * time.Hour,
	}
}
