// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
)

const maxTxPerBlock = 1000000

// MaxBlockPayload is the payload length limit named in spec §4.1.
const MaxBlockPayload = 0x02000000

// MsgBlock defines a block: a header and its full transaction set. The
// first transaction is the coinbase (PoW) or, under PoS, index 0 is the
// coinbase-empty transaction and index 1 is the coinstake (spec §4.3).
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*MsgTx
}

// IsPoS reports whether this block carries a PoS block signature.
func (m *MsgBlock) IsPoS() bool {
	return len(m.Header.BlockSig) > 0
}

// Deserialize decodes a full block from r.
func (m *MsgBlock) Deserialize(r io.Reader, isPoS bool) error {
	if err := m.Header.Deserialize(r, isPoS); err != nil {
		return err
	}
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxTxPerBlock {
		return FormatErrorf("too many transactions to fit into a block: %d", count)
	}
	m.Transactions = make([]*MsgTx, count)
	for i := range m.Transactions {
		tx := new(MsgTx)
		if err := tx.Deserialize(r); err != nil {
			return err
		}
		m.Transactions[i] = tx
	}
	return nil
}

// Serialize encodes the full block to w.
func (m *MsgBlock) Serialize(w io.Writer) error {
	if err := m.Header.Serialize(w, m.IsPoS()); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(m.Transactions))); err != nil {
		return err
	}
	for _, tx := range m.Transactions {
		if err := tx.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// BlockHash computes hash256 of the block header.
func (m *MsgBlock) BlockHash(hashFn func([]byte) chainhash.Hash) chainhash.Hash {
	return hashFn(m.Header.Bytes())
}

// MerkleRoot computes the merkle root of the block's transaction ids using
// the supplied hash function, following the standard Bitcoin-style
// duplicate-last-node pairing.
func MerkleRoot(txids []chainhash.Hash, hashFn func([]byte) chainhash.Hash) chainhash.Hash {
	if len(txids) == 0 {
		return chainhash.Hash{}
	}
	level := make([]chainhash.Hash, len(txids))
	copy(level, txids)
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]chainhash.Hash, len(level)/2)
		for i := range next {
			buf := make([]byte, 0, chainhash.HashSize*2)
			buf = append(buf, level[2*i][:]...)
			buf = append(buf, level[2*i+1][:]...)
			next[i] = hashFn(buf)
		}
		level = next
	}
	return level[0]
}
