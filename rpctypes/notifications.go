// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpctypes

// BlockConnectedNtfn is pushed over the websocket notification transport
// when ConsensusManager connects a block (mirrors eventbus.BlockConnected).
type BlockConnectedNtfn struct {
	Hash   string `json:"hash"`
	Height int64  `json:"height"`
}

// NewBlockConnectedNtfn returns a new instance which can be used to issue a
// blockconnected notification.
func NewBlockConnectedNtfn(hash string, height int64) *BlockConnectedNtfn {
	return &BlockConnectedNtfn{Hash: hash, Height: height}
}

// BlockDisconnectedNtfn is pushed when ConsensusManager disconnects a block
// during a reorg (mirrors eventbus.BlockDisconnected).
type BlockDisconnectedNtfn struct {
	Hash   string `json:"hash"`
	Height int64  `json:"height"`
}

// NewBlockDisconnectedNtfn returns a new instance which can be used to issue
// a blockdisconnected notification.
func NewBlockDisconnectedNtfn(hash string, height int64) *BlockDisconnectedNtfn {
	return &BlockDisconnectedNtfn{Hash: hash, Height: height}
}

// TxAcceptedNtfn is pushed when the mempool accepts a new transaction
// (mirrors eventbus.TransactionReceived).
type TxAcceptedNtfn struct {
	Txid string  `json:"txid"`
	Fee  float64 `json:"fee"`
}

// NewTxAcceptedNtfn returns a new instance which can be used to issue a
// txaccepted notification.
func NewTxAcceptedNtfn(txid string, fee float64) *TxAcceptedNtfn {
	return &TxAcceptedNtfn{Txid: txid, Fee: fee}
}

// NotifyBlocksCmd defines the notifyblocks JSON-RPC command, subscribing a
// websocket client to BlockConnectedNtfn/BlockDisconnectedNtfn.
type NotifyBlocksCmd struct{}

// NewNotifyBlocksCmd returns a new instance which can be used to issue a
// notifyblocks JSON-RPC command.
func NewNotifyBlocksCmd() *NotifyBlocksCmd { return &NotifyBlocksCmd{} }

// NotifyNewTransactionsCmd defines the notifynewtransactions JSON-RPC
// command, subscribing a websocket client to TxAcceptedNtfn.
type NotifyNewTransactionsCmd struct {
	Verbose *bool `jsonrpcdefault:"false"`
}

// NewNotifyNewTransactionsCmd returns a new instance which can be used to
// issue a notifynewtransactions JSON-RPC command.
func NewNotifyNewTransactionsCmd(verbose *bool) *NotifyNewTransactionsCmd {
	return &NotifyNewTransactionsCmd{Verbose: verbose}
}
