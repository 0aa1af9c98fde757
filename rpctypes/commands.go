// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpctypes

// GetBlockchainInfoCmd defines the getblockchaininfo JSON-RPC command: it
// takes no parameters and reports the chain tip hash, height, and IBD state
// sourced from ConsensusManager.
type GetBlockchainInfoCmd struct{}

// NewGetBlockchainInfoCmd returns a new instance which can be used to issue
// a getblockchaininfo JSON-RPC command.
func NewGetBlockchainInfoCmd() *GetBlockchainInfoCmd { return &GetBlockchainInfoCmd{} }

// GetBlockchainInfoResult is the result of a getblockchaininfo command.
type GetBlockchainInfoResult struct {
	BestBlockHash string `json:"bestblockhash"`
	Height        int64  `json:"height"`
	IsIBD         bool   `json:"initialblockdownload"`
}

// GetBlockCmd defines the getblock JSON-RPC command.
type GetBlockCmd struct {
	Hash    string
	Verbose *bool `jsonrpcdefault:"true"`
}

// NewGetBlockCmd returns a new instance which can be used to issue a
// getblock JSON-RPC command.
func NewGetBlockCmd(hash string, verbose *bool) *GetBlockCmd {
	return &GetBlockCmd{Hash: hash, Verbose: verbose}
}

// GetRawMempoolCmd defines the getrawmempool JSON-RPC command, listing the
// txids currently held by the mempool ordered by fee-rate.
type GetRawMempoolCmd struct{}

// NewGetRawMempoolCmd returns a new instance which can be used to issue a
// getrawmempool JSON-RPC command.
func NewGetRawMempoolCmd() *GetRawMempoolCmd { return &GetRawMempoolCmd{} }

// SendRawTransactionCmd defines the sendrawtransaction JSON-RPC command: a
// hex-encoded transaction submitted to the local mempool's AcceptTx.
type SendRawTransactionCmd struct {
	HexTx string
}

// NewSendRawTransactionCmd returns a new instance which can be used to issue
// a sendrawtransaction JSON-RPC command.
func NewSendRawTransactionCmd(hexTx string) *SendRawTransactionCmd {
	return &SendRawTransactionCmd{HexTx: hexTx}
}

// GetPeerInfoCmd defines the getpeerinfo JSON-RPC command, listing every
// connected peer's address, direction, and starting height.
type GetPeerInfoCmd struct{}

// NewGetPeerInfoCmd returns a new instance which can be used to issue a
// getpeerinfo JSON-RPC command.
func NewGetPeerInfoCmd() *GetPeerInfoCmd { return &GetPeerInfoCmd{} }

// PeerInfoResult describes one connected peer in a getpeerinfo response.
type PeerInfoResult struct {
	Addr        string `json:"addr"`
	Inbound     bool   `json:"inbound"`
	StartHeight int64  `json:"startingheight"`
}
