// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "fmt"

// PolicyKind is a stable, machine-readable mempool policy rejection kind,
// mirroring rules.ErrorKind for the acceptance-pipeline steps that are
// mempool policy rather than block consensus (spec §7 taxonomy item 1,
// applied to spec §4.7's mempool acceptance pipeline).
type PolicyKind string

// Recognized policy rejection kinds.
const (
	ErrTxTooLarge       PolicyKind = "TxTooLarge"
	ErrNoInputs         PolicyKind = "NoInputs"
	ErrNoOutputs        PolicyKind = "NoOutputs"
	ErrDuplicateTx      PolicyKind = "DuplicateTx"
	ErrConflict         PolicyKind = "Conflict"
	ErrMissingInput     PolicyKind = "MissingInput"
	ErrSpentInput       PolicyKind = "SpentInput"
	ErrRateLimited      PolicyKind = "RateLimited"
	ErrTooManyAncestors PolicyKind = "TooManyAncestors"
	ErrAncestorVSize    PolicyKind = "AncestorVSizeExceeded"
	ErrRbfNotAllowed    PolicyKind = "RbfNotAllowed"
)

// PolicyError reports that a transaction was rejected by mempool policy
// rather than by a consensus rule.
type PolicyError struct {
	Kind PolicyKind
	Msg  string
}

func (e *PolicyError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("mempool: %s", e.Kind)
	}
	return fmt.Sprintf("mempool: %s: %s", e.Kind, e.Msg)
}

func policyError(kind PolicyKind, msg string) error {
	return &PolicyError{Kind: kind, Msg: msg}
}
