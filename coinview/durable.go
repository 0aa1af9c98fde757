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

var (
	bucketUTXO    = []byte("utxo")
	bucketRewind  = []byte("rewind")
	bucketTip     = []byte("tip")
	keyTip        = []byte("tip")
	keyRewindHead = []byte("head")
)

// DurableCoinView is the KV-backed bottom layer of the coinview (spec
// §4.2): the durable store of UTXO entries and the rolling RewindData
// window. All mutation happens inside a single database transaction so
// that the tip advances atomically with the entries it depends on.
type DurableCoinView struct {
	db database.DB

	// maxRewindWindow bounds how many RewindData entries are retained;
	// spec §3 requires at least max_reorg_length (125).
	maxRewindWindow int
}

// NewDurableCoinView wraps db as a DurableCoinView.
func NewDurableCoinView(db database.DB, maxRewindWindow int) *DurableCoinView {
	return &DurableCoinView{db: db, maxRewindWindow: maxRewindWindow}
}

// GetTip returns the coinview's current tip hash.
func (d *DurableCoinView) GetTip() (chainhash.Hash, error) {
	var tip chainhash.Hash
	err := d.db.View(func(tx database.Tx) error {
		b := tx.Bucket(bucketTip)
		if b == nil {
			return nil
		}
		v := b.Get(keyTip)
		if v == nil {
			return nil
		}
		return tip.SetBytes(v)
	})
	return tip, err
}

// Fetch returns the current UTXO entries for the requested txids, matching
// entries absent from the store (spec §4.2: "missing keys map to Absent").
func (d *DurableCoinView) Fetch(txids []chainhash.Hash) (map[chainhash.Hash]FetchResult, error) {
	result := make(map[chainhash.Hash]FetchResult, len(txids))
	err := d.db.View(func(tx database.Tx) error {
		b := tx.Bucket(bucketUTXO)
		for _, txid := range txids {
			if b == nil {
				result[txid] = FetchResult{Absent: true}
				continue
			}
			v := b.Get(txid[:])
			if v == nil {
				result[txid] = FetchResult{Absent: true}
				continue
			}
			entry, err := decodeUnspentOutputs(v)
			if err != nil {
				return storageError(err)
			}
			result[txid] = FetchResult{Entry: entry}
		}
		return nil
	})
	return result, err
}

// Apply atomically writes changes, advances the tip to blockHash, and
// records the RewindData needed to undo it (spec §4.2).
func (d *DurableCoinView) Apply(blockHash chainhash.Hash, prevBlockHash chainhash.Hash, changes Changes) error {
	return d.db.Update(func(tx database.Tx) error {
		utxoBucket, err := tx.CreateBucketIfNotExists(bucketUTXO)
		if err != nil {
			return storageError(err)
		}

		restored := make(map[chainhash.Hash]*UnspentOutputs)
		removed := make([]chainhash.Hash, 0)

		// Snapshot entries about to be spent, then apply the spend.
		touched := make(map[chainhash.Hash]*UnspentOutputs)
		for _, sp := range changes.Spends {
			entry, ok := touched[sp.Outpoint.Hash]
			if !ok {
				v := utxoBucket.Get(sp.Outpoint.Hash[:])
				if v == nil {
					return missingInputError(sp.Outpoint.Hash)
				}
				decoded, err := decodeUnspentOutputs(v)
				if err != nil {
					return storageError(err)
				}
				entry = decoded
				touched[sp.Outpoint.Hash] = entry
				if _, already := restored[sp.Outpoint.Hash]; !already {
					restored[sp.Outpoint.Hash] = entry.Clone()
				}
			}
			if entry.Spend(sp.Outpoint.Index) == nil {
				return missingInputError(sp.Outpoint.Hash)
			}
		}

		for txid, entry := range touched {
			if entry.IsFullySpent() {
				if err := utxoBucket.Delete(txid[:]); err != nil {
					return storageError(err)
				}
			} else {
				if err := utxoBucket.Put(txid[:], encodeUnspentOutputs(entry)); err != nil {
					return storageError(err)
				}
			}
		}

		for txid, entry := range changes.NewUTXOs {
			removed = append(removed, txid)
			if err := utxoBucket.Put(txid[:], encodeUnspentOutputs(entry)); err != nil {
				return storageError(err)
			}
		}

		rd := RewindData{
			PrevBlockHash:   prevBlockHash,
			RemovedTxids:    removed,
			RestoredOutputs: restored,
		}
		if err := pushRewindData(tx, rd, d.maxRewindWindow); err != nil {
			return err
		}

		tipBucket, err := tx.CreateBucketIfNotExists(bucketTip)
		if err != nil {
			return storageError(err)
		}
		return tipBucket.Put(keyTip, blockHash[:])
	})
}

// Rewind pops the latest RewindData, restoring removed outputs and
// deleting just-created outputs, and moves the tip back one block (spec
// §4.2).
func (d *DurableCoinView) Rewind() (chainhash.Hash, error) {
	var newTip chainhash.Hash
	err := d.db.Update(func(tx database.Tx) error {
		rd, err := popRewindData(tx)
		if err != nil {
			return err
		}
		if rd == nil {
			return invariantViolation("rewind called with empty rewind window")
		}

		utxoBucket, err := tx.CreateBucketIfNotExists(bucketUTXO)
		if err != nil {
			return storageError(err)
		}

		for _, txid := range rd.RemovedTxids {
			if err := utxoBucket.Delete(txid[:]); err != nil {
				return storageError(err)
			}
		}
		for txid, entry := range rd.RestoredOutputs {
			if err := utxoBucket.Put(txid[:], encodeUnspentOutputs(entry)); err != nil {
				return storageError(err)
			}
		}

		tipBucket, err := tx.CreateBucketIfNotExists(bucketTip)
		if err != nil {
			return storageError(err)
		}
		newTip = rd.PrevBlockHash
		return tipBucket.Put(keyTip, newTip[:])
	})
	return newTip, err
}

func encodeUnspentOutputs(u *UnspentOutputs) []byte {
	var buf bytes.Buffer
	var hdr [9]byte
	binary.LittleEndian.PutUint32(hdr[0:4], u.Height)
	if u.IsCoinBase {
		hdr[4] = 1
	}
	if u.IsCoinStake {
		hdr[4] |= 2
	}
	binary.LittleEndian.PutUint32(hdr[5:9], u.Time)
	buf.Write(hdr[:])

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(u.Outputs)))
	buf.Write(countBuf[:])

	for _, o := range u.Outputs {
		if o == nil {
			buf.WriteByte(0)
			continue
		}
		buf.WriteByte(1)
		var amtBuf [8]byte
		binary.LittleEndian.PutUint64(amtBuf[:], uint64(o.Amount))
		buf.Write(amtBuf[:])
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(o.Script)))
		buf.Write(lenBuf[:])
		buf.Write(o.Script)
	}
	return buf.Bytes()
}

func decodeUnspentOutputs(data []byte) (*UnspentOutputs, error) {
	if len(data) < 13 {
		return nil, bytesTooShort
	}
	u := &UnspentOutputs{
		Height:      binary.LittleEndian.Uint32(data[0:4]),
		IsCoinBase:  data[4]&1 != 0,
		IsCoinStake: data[4]&2 != 0,
		Time:        binary.LittleEndian.Uint32(data[5:9]),
	}
	count := binary.LittleEndian.Uint32(data[9:13])
	off := 13
	u.Outputs = make([]*TxOutput, count)
	for i := uint32(0); i < count; i++ {
		if off >= len(data) {
			return nil, bytesTooShort
		}
		present := data[off]
		off++
		if present == 0 {
			continue
		}
		if off+12 > len(data) {
			return nil, bytesTooShort
		}
		amount := int64(binary.LittleEndian.Uint64(data[off : off+8]))
		off += 8
		scriptLen := int(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
		if off+scriptLen > len(data) {
			return nil, bytesTooShort
		}
		script := append([]byte(nil), data[off:off+scriptLen]...)
		off += scriptLen
		u.Outputs[i] = &TxOutput{Amount: amount, Script: script}
	}
	return u, nil
}

var bytesTooShort = storageErrorf("truncated coinview entry")

func storageErrorf(msg string) error {
	return &CoinViewError{Kind: ErrStorage, Message: msg}
}
