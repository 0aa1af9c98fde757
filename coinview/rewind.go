// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinview

import (
	"bytes"
	"encoding/binary"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/database"
)

var keyRewindTail = []byte("tail")

// pushRewindData appends rd as the newest entry in the rolling rewind
// window, trimming the oldest entry once the window exceeds maxWindow
// (spec §3: "a rolling window of at least max_reorg_length (125) entries
// must be retained").
func pushRewindData(tx database.Tx, rd RewindData, maxWindow int) error {
	b, err := tx.CreateBucketIfNotExists(bucketRewind)
	if err != nil {
		return storageError(err)
	}

	head := readSeq(b, keyRewindHead)
	tail := readSeq(b, keyRewindTail)
	next := head + 1

	if err := b.Put(seqKey(next), encodeRewindData(rd)); err != nil {
		return storageError(err)
	}
	if err := writeSeq(b, keyRewindHead, next); err != nil {
		return err
	}
	if tail == 0 {
		tail = next
	}

	if maxWindow > 0 {
		for int(next-tail+1) > maxWindow {
			if err := b.Delete(seqKey(tail)); err != nil {
				return storageError(err)
			}
			tail++
		}
	}
	return writeSeq(b, keyRewindTail, tail)
}

// popRewindData removes and returns the newest entry in the rewind window,
// or nil if the window is empty.
func popRewindData(tx database.Tx) (*RewindData, error) {
	b, err := tx.CreateBucketIfNotExists(bucketRewind)
	if err != nil {
		return nil, storageError(err)
	}
	head := readSeq(b, keyRewindHead)
	tail := readSeq(b, keyRewindTail)
	if head == 0 || head < tail {
		return nil, nil
	}

	raw := b.Get(seqKey(head))
	if raw == nil {
		return nil, invariantViolation("rewind window head entry missing")
	}
	rd, err := decodeRewindData(raw)
	if err != nil {
		return nil, storageError(err)
	}
	if err := b.Delete(seqKey(head)); err != nil {
		return nil, storageError(err)
	}
	if head-1 < tail {
		// That was the last retained entry: reset both ends so the
		// window reads as empty (head == 0).
		if err := writeSeq(b, keyRewindHead, 0); err != nil {
			return nil, err
		}
		if err := writeSeq(b, keyRewindTail, 0); err != nil {
			return nil, err
		}
		return rd, nil
	}
	if err := writeSeq(b, keyRewindHead, head-1); err != nil {
		return nil, err
	}
	return rd, nil
}

func readSeq(b database.Bucket, key []byte) uint64 {
	v := b.Get(key)
	if v == nil || len(v) != 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(v)
}

func writeSeq(b database.Bucket, key []byte, seq uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seq)
	if err := b.Put(key, buf[:]); err != nil {
		return storageError(err)
	}
	return nil
}

func seqKey(seq uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seq)
	return buf[:]
}

func encodeRewindData(rd RewindData) []byte {
	var buf bytes.Buffer
	buf.Write(rd.PrevBlockHash[:])

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(rd.RemovedTxids)))
	buf.Write(countBuf[:])
	for _, h := range rd.RemovedTxids {
		buf.Write(h[:])
	}

	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(rd.RestoredOutputs)))
	buf.Write(countBuf[:])
	for txid, entry := range rd.RestoredOutputs {
		buf.Write(txid[:])
		encoded := encodeUnspentOutputs(entry)
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(encoded)))
		buf.Write(lenBuf[:])
		buf.Write(encoded)
	}
	return buf.Bytes()
}

func decodeRewindData(data []byte) (*RewindData, error) {
	if len(data) < chainhash.HashSize+8 {
		return nil, bytesTooShort
	}
	rd := &RewindData{}
	off := 0
	copy(rd.PrevBlockHash[:], data[off:off+chainhash.HashSize])
	off += chainhash.HashSize

	removedCount := binary.LittleEndian.Uint32(data[off : off+4])
	off += 4
	rd.RemovedTxids = make([]chainhash.Hash, removedCount)
	for i := uint32(0); i < removedCount; i++ {
		if off+chainhash.HashSize > len(data) {
			return nil, bytesTooShort
		}
		copy(rd.RemovedTxids[i][:], data[off:off+chainhash.HashSize])
		off += chainhash.HashSize
	}

	if off+4 > len(data) {
		return nil, bytesTooShort
	}
	restoredCount := binary.LittleEndian.Uint32(data[off : off+4])
	off += 4
	rd.RestoredOutputs = make(map[chainhash.Hash]*UnspentOutputs, restoredCount)
	for i := uint32(0); i < restoredCount; i++ {
		if off+chainhash.HashSize+4 > len(data) {
			return nil, bytesTooShort
		}
		var txid chainhash.Hash
		copy(txid[:], data[off:off+chainhash.HashSize])
		off += chainhash.HashSize
		entryLen := int(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
		if off+entryLen > len(data) {
			return nil, bytesTooShort
		}
		entry, err := decodeUnspentOutputs(data[off : off+entryLen])
		if err != nil {
			return nil, err
		}
		off += entryLen
		rd.RestoredOutputs[txid] = entry
	}
	return rd, nil
}
