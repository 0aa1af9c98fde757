// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
)

// InvType represents the type of inventory vector being advertised in an
// inv/getdata message pair (spec §4.8 gossip).
type InvType uint32

// Supported inventory vector types.
const (
	InvTypeTx InvType = 1 + iota
	InvTypeBlock
	InvTypeFilteredBlock
)

const maxInvPerMsg = 50000

// InvVect defines an inventory vector: a type/hash pair used to advertise
// knowledge of a block or transaction.
type InvVect struct {
	Type InvType
	Hash chainhash.Hash
}

// MsgInv announces knowledge of one or more objects (spec §4.8: "inv(tx)").
type MsgInv struct {
	InvList []*InvVect
}

// AddInvVect appends an inventory vector, enforcing the per-message cap.
func (msg *MsgInv) AddInvVect(iv *InvVect) error {
	if len(msg.InvList)+1 > maxInvPerMsg {
		return FormatErrorf("too many inv items %d", len(msg.InvList)+1)
	}
	msg.InvList = append(msg.InvList, iv)
	return nil
}

func (msg *MsgInv) Deserialize(r io.Reader) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxInvPerMsg {
		return FormatErrorf("too many inv items %d", count)
	}
	msg.InvList = make([]*InvVect, count)
	for i := range msg.InvList {
		t, err := readUint32(r)
		if err != nil {
			return err
		}
		var h chainhash.Hash
		if err := readHash(r, &h); err != nil {
			return err
		}
		msg.InvList[i] = &InvVect{Type: InvType(t), Hash: h}
	}
	return nil
}

func (msg *MsgInv) Serialize(w io.Writer) error {
	if err := WriteVarInt(w, uint64(len(msg.InvList))); err != nil {
		return err
	}
	for _, iv := range msg.InvList {
		if err := writeUint32(w, uint32(iv.Type)); err != nil {
			return err
		}
		ivHash := iv.Hash
		if err := writeHash(w, &ivHash); err != nil {
			return err
		}
	}
	return nil
}

// MsgGetData requests the full content for a list of previously announced
// inventory vectors (spec §4.8: "getdata(block)").
type MsgGetData struct {
	InvList []*InvVect
}

func (msg *MsgGetData) Deserialize(r io.Reader) error {
	inv := MsgInv{}
	if err := inv.Deserialize(r); err != nil {
		return err
	}
	msg.InvList = inv.InvList
	return nil
}

func (msg *MsgGetData) Serialize(w io.Writer) error {
	inv := MsgInv{InvList: msg.InvList}
	return inv.Serialize(w)
}

const maxHeadersPerMsg = 2000

// MsgHeaders carries a batch of block headers in response to getheaders.
type MsgHeaders struct {
	Headers []*BlockHeader
	// IsPoS controls serialization of the trailing block-signature field
	// on every header in the batch.
	IsPoS bool
}

func (msg *MsgHeaders) Deserialize(r io.Reader) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxHeadersPerMsg {
		return FormatErrorf("too many headers %d", count)
	}
	msg.Headers = make([]*BlockHeader, count)
	for i := range msg.Headers {
		h := new(BlockHeader)
		if err := h.Deserialize(r, msg.IsPoS); err != nil {
			return err
		}
		msg.Headers[i] = h
	}
	return nil
}

func (msg *MsgHeaders) Serialize(w io.Writer) error {
	if err := WriteVarInt(w, uint64(len(msg.Headers))); err != nil {
		return err
	}
	for _, h := range msg.Headers {
		if err := h.Serialize(w, msg.IsPoS); err != nil {
			return err
		}
	}
	return nil
}

// MsgGetHeaders requests headers building on from one of the supplied
// locator hashes up to (and including) hashStop.
type MsgGetHeaders struct {
	BlockLocatorHashes []chainhash.Hash
	HashStop           chainhash.Hash
}

func (msg *MsgGetHeaders) Deserialize(r io.Reader) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxInvPerMsg {
		return FormatErrorf("too many locator hashes %d", count)
	}
	msg.BlockLocatorHashes = make([]chainhash.Hash, count)
	for i := range msg.BlockLocatorHashes {
		if err := readHash(r, &msg.BlockLocatorHashes[i]); err != nil {
			return err
		}
	}
	return readHash(r, &msg.HashStop)
}

func (msg *MsgGetHeaders) Serialize(w io.Writer) error {
	if err := WriteVarInt(w, uint64(len(msg.BlockLocatorHashes))); err != nil {
		return err
	}
	for _, h := range msg.BlockLocatorHashes {
		hCopy := h
		if err := writeHash(w, &hCopy); err != nil {
			return err
		}
	}
	return writeHash(w, &msg.HashStop)
}
