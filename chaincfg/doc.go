// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the network-specific consensus parameters named
// in spec §6: wire magic, default ports, PoW limit, subsidy schedule,
// retarget timing, coinbase maturity, max reorg length, and the bech32 HRP.
//
// Three networks are defined: MainNetParams, TestNetParams, and
// RegTestParams. Each carries its own genesis block and is otherwise
// incompatible with the others.
package chaincfg
