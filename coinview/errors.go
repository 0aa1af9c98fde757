// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinview

import (
	"fmt"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
)

// ErrorKind identifies the class of a CoinViewError (spec §4.2).
type ErrorKind string

// Recognized error kinds.
const (
	// ErrMissingInput indicates a block or transaction spent an input
	// that does not exist in the coinview.
	ErrMissingInput ErrorKind = "MissingInput"
	// ErrStorage indicates the underlying KV store failed.
	ErrStorage ErrorKind = "StorageError"
	// ErrInvariantViolation indicates an internal postcondition failed;
	// per spec §7 this is fatal and must abort the node.
	ErrInvariantViolation ErrorKind = "InvariantViolation"
)

// CoinViewError wraps a coinview failure with its kind and the txid it
// concerns, where applicable.
type CoinViewError struct {
	Kind    ErrorKind
	Txid    chainhash.Hash
	Message string
	Err     error
}

func (e *CoinViewError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("coinview: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("coinview: %s: %s", e.Kind, e.Txid)
}

func (e *CoinViewError) Unwrap() error { return e.Err }

func missingInputError(prev chainhash.Hash) error {
	return &CoinViewError{Kind: ErrMissingInput, Txid: prev}
}

func storageError(err error) error {
	return &CoinViewError{Kind: ErrStorage, Err: err, Message: errString(err)}
}

func invariantViolation(msg string) error {
	return &CoinViewError{Kind: ErrInvariantViolation, Message: msg}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
