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

// BlockHeaderLen is the number of bytes in a serialized PoW block header:
// 4 (version) + 32 (prev hash) + 32 (merkle root) + 4 (time) + 4 (bits) + 4
// (nonce).
const BlockHeaderLen = 80

// BlockHeader defines the block header entity of spec §3: version,
// previous block hash, merkle root, time, compact target (bits), and
// nonce.
type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32

	// BlockSig, when non-empty, is the PoS block signature over the
	// header (spec §3: "PoS extends with a block signature"). It is part
	// of the serialized form only for PoS-era headers.
	BlockSig []byte
}

// Deserialize decodes a block header from r. isPoS controls whether the
// trailing block signature field is read.
func (h *BlockHeader) Deserialize(r io.Reader, isPoS bool) error {
	var err error
	h.Version, err = readInt32(r)
	if err != nil {
		return err
	}
	if err := readHash(r, &h.PrevBlock); err != nil {
		return err
	}
	if err := readHash(r, &h.MerkleRoot); err != nil {
		return err
	}
	h.Timestamp, err = readUint32(r)
	if err != nil {
		return err
	}
	h.Bits, err = readUint32(r)
	if err != nil {
		return err
	}
	h.Nonce, err = readUint32(r)
	if err != nil {
		return err
	}
	if isPoS {
		sig, err := ReadVarBytes(r, 256, "BlockSig")
		if err != nil {
			return err
		}
		h.BlockSig = sig
	}
	return nil
}

// Serialize encodes the block header to w. isPoS controls whether the
// trailing block signature field is written.
func (h *BlockHeader) Serialize(w io.Writer, isPoS bool) error {
	if err := writeInt32(w, h.Version); err != nil {
		return err
	}
	if err := writeHash(w, &h.PrevBlock); err != nil {
		return err
	}
	if err := writeHash(w, &h.MerkleRoot); err != nil {
		return err
	}
	if err := writeUint32(w, h.Timestamp); err != nil {
		return err
	}
	if err := writeUint32(w, h.Bits); err != nil {
		return err
	}
	if err := writeUint32(w, h.Nonce); err != nil {
		return err
	}
	if isPoS {
		if err := WriteVarBytes(w, h.BlockSig); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the canonical serialization of the header, excluding the
// PoS block signature — this is the payload hashed by the PoW/kernel
// functions (spec §3: "pow_hash(header)").
func (h *BlockHeader) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(BlockHeaderLen)
	_ = h.Serialize(&buf, false)
	return buf.Bytes()
}

// MerkleProof binds a coinstake transaction to the header's merkle root
// without requiring the full block body (spec §4.3 "Proven header").
type MerkleProof struct {
	// Siblings are the sibling hashes along the path from the coinstake
	// leaf to the merkle root.
	Siblings []chainhash.Hash
	// TransactionIndex is the coinstake transaction's position in the
	// block (always 1: coinbase/coinstake occupy index 0).
	TransactionIndex uint32
}

// ProvenHeader inlines the coinstake transaction and a merkle proof of its
// inclusion, letting a peer verify PoS eligibility of a header without the
// full block body (spec §4.3).
type ProvenHeader struct {
	Header      BlockHeader
	Coinstake   MsgTx
	MerkleProof MerkleProof
}

func (ph *ProvenHeader) Deserialize(r io.Reader) error {
	if err := ph.Header.Deserialize(r, true); err != nil {
		return err
	}
	if err := ph.Coinstake.Deserialize(r); err != nil {
		return err
	}
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > 64 {
		return FormatErrorf("merkle proof too long: %d", count)
	}
	ph.MerkleProof.Siblings = make([]chainhash.Hash, count)
	for i := range ph.MerkleProof.Siblings {
		if err := readHash(r, &ph.MerkleProof.Siblings[i]); err != nil {
			return err
		}
	}
	ph.MerkleProof.TransactionIndex, err = readUint32(r)
	return err
}

func (ph *ProvenHeader) Serialize(w io.Writer) error {
	if err := ph.Header.Serialize(w, true); err != nil {
		return err
	}
	if err := ph.Coinstake.Serialize(w); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(ph.MerkleProof.Siblings))); err != nil {
		return err
	}
	for _, s := range ph.MerkleProof.Siblings {
		sCopy := s
		if err := writeHash(w, &sCopy); err != nil {
			return err
		}
	}
	return writeUint32(w, ph.MerkleProof.TransactionIndex)
}
