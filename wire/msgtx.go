// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
)

// MaxTxInSequenceNum is the maximum sequence number the sequence field of a
// transaction input can be.
const MaxTxInSequenceNum uint32 = 0xffffffff

// NoExpiryValue indicates a transaction has no defined expiry.
const NoExpiryValue uint32 = 0

const (
	maxTxInPerMessage  = 1000000
	maxTxOutPerMessage = 1000000
	maxWitnessPerInput = 1000000
	maxWitnessItemSize = 11000000
)

// OutPoint defines a data type that is used to track previous transaction
// outputs, spec §3: "Inputs reference (prev_txid, vout_index)".
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

func (op *OutPoint) deserialize(r io.Reader) error {
	if err := readHash(r, &op.Hash); err != nil {
		return err
	}
	var err error
	op.Index, err = readUint32(r)
	return err
}

func (op *OutPoint) serialize(w io.Writer) error {
	if err := writeHash(w, &op.Hash); err != nil {
		return err
	}
	return writeUint32(w, op.Index)
}

// TxIn defines a transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	// SignatureScript MUST be empty for every non-coinbase input (spec §3
	// invariant enforced by the ScriptSigNotEmpty rule); it carries the
	// legacy coinbase "height" commitment for coinbase inputs only.
	SignatureScript []byte
	Sequence        uint32
}

func (ti *TxIn) deserialize(r io.Reader) error {
	if err := ti.PreviousOutPoint.deserialize(r); err != nil {
		return err
	}
	sigScript, err := ReadVarBytes(r, maxWitnessItemSize, "SignatureScript")
	if err != nil {
		return err
	}
	ti.SignatureScript = sigScript
	ti.Sequence, err = readUint32(r)
	return err
}

func (ti *TxIn) serialize(w io.Writer) error {
	if err := ti.PreviousOutPoint.serialize(w); err != nil {
		return err
	}
	if err := WriteVarBytes(w, ti.SignatureScript); err != nil {
		return err
	}
	return writeUint32(w, ti.Sequence)
}

// TxOut defines a transaction output, restricted by consensus rule to the
// whitelisted script templates (spec §3).
type TxOut struct {
	Value    int64
	Version  uint16
	PkScript []byte
}

func (to *TxOut) deserialize(r io.Reader) error {
	var err error
	to.Value, err = readInt64(r)
	if err != nil {
		return err
	}
	var vbuf [2]byte
	if _, err := io.ReadFull(r, vbuf[:]); err != nil {
		return err
	}
	to.Version = uint16(vbuf[0]) | uint16(vbuf[1])<<8
	to.PkScript, err = ReadVarBytes(r, maxWitnessItemSize, "PkScript")
	return err
}

func (to *TxOut) serialize(w io.Writer) error {
	if err := writeInt64(w, to.Value); err != nil {
		return err
	}
	vbuf := [2]byte{byte(to.Version), byte(to.Version >> 8)}
	if _, err := w.Write(vbuf[:]); err != nil {
		return err
	}
	return WriteVarBytes(w, to.PkScript)
}

// TxWitness defines the witness stack for a single transaction input,
// enforcing BIP-141-style witness presence (spec §3).
type TxWitness [][]byte

func (tw *TxWitness) deserialize(r io.Reader) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxWitnessPerInput {
		return FormatErrorf("witness stack too large: %d", count)
	}
	witness := make(TxWitness, count)
	for i := range witness {
		item, err := ReadVarBytes(r, maxWitnessItemSize, "witness item")
		if err != nil {
			return err
		}
		witness[i] = item
	}
	*tw = witness
	return nil
}

func (tw TxWitness) serialize(w io.Writer) error {
	if err := WriteVarInt(w, uint64(len(tw))); err != nil {
		return err
	}
	for _, item := range tw {
		if err := WriteVarBytes(w, item); err != nil {
			return err
		}
	}
	return nil
}

// MsgTx implements the transaction entity of spec §3: inputs, outputs,
// locktime, witness stacks, and the optional PoS time stamp.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	Witness  []TxWitness
	LockTime uint32

	// Time is set for PoS-stamped transactions (spec §3); zero otherwise.
	Time uint32
	// HasTimeField controls whether Time is (de)serialized, since the
	// field only exists on PoS-aware transaction versions.
	HasTimeField bool
}

// IsCoinBase reports whether the transaction is a coinbase: exactly one
// input with a null previous outpoint.
func (msg *MsgTx) IsCoinBase() bool {
	if len(msg.TxIn) != 1 {
		return false
	}
	prevOut := &msg.TxIn[0].PreviousOutPoint
	return prevOut.Index == MaxTxInSequenceNum && prevOut.Hash == (chainhash.Hash{})
}

// HasWitness reports whether any input carries a non-empty witness stack.
func (msg *MsgTx) HasWitness() bool {
	for _, w := range msg.Witness {
		if len(w) > 0 {
			return true
		}
	}
	return false
}

// Deserialize decodes a transaction from r in the canonical wire format.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	var err error
	msg.Version, err = readInt32(r)
	if err != nil {
		return err
	}

	txInCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if txInCount > maxTxInPerMessage {
		return FormatErrorf("too many transaction inputs: %d", txInCount)
	}
	msg.TxIn = make([]*TxIn, txInCount)
	for i := range msg.TxIn {
		ti := new(TxIn)
		if err := ti.deserialize(r); err != nil {
			return err
		}
		msg.TxIn[i] = ti
	}

	txOutCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if txOutCount > maxTxOutPerMessage {
		return FormatErrorf("too many transaction outputs: %d", txOutCount)
	}
	msg.TxOut = make([]*TxOut, txOutCount)
	for i := range msg.TxOut {
		to := new(TxOut)
		if err := to.deserialize(r); err != nil {
			return err
		}
		msg.TxOut[i] = to
	}

	msg.Witness = make([]TxWitness, txInCount)
	for i := range msg.Witness {
		if err := msg.Witness[i].deserialize(r); err != nil {
			return err
		}
	}

	msg.LockTime, err = readUint32(r)
	if err != nil {
		return err
	}

	if msg.HasTimeField {
		msg.Time, err = readUint32(r)
		if err != nil {
			return err
		}
	}

	return nil
}

// Serialize encodes the transaction to w in the canonical wire format.
func (msg *MsgTx) Serialize(w io.Writer) error {
	if err := writeInt32(w, msg.Version); err != nil {
		return err
	}

	if err := WriteVarInt(w, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if err := ti.serialize(w); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		if err := to.serialize(w); err != nil {
			return err
		}
	}

	for _, witness := range msg.Witness {
		if err := witness.serialize(w); err != nil {
			return err
		}
	}

	if err := writeUint32(w, msg.LockTime); err != nil {
		return err
	}

	if msg.HasTimeField {
		if err := writeUint32(w, msg.Time); err != nil {
			return err
		}
	}

	return nil
}

// TxHash computes hash256 of the transaction's canonical serialization.
func (msg *MsgTx) TxHash(hashFn func([]byte) chainhash.Hash) chainhash.Hash {
	var buf bytes.Buffer
	_ = msg.Serialize(&buf)
	return hashFn(buf.Bytes())
}
