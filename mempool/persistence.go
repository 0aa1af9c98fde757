// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"bytes"

	"github.com/xds-project/xdsd/database"
	"github.com/xds-project/xdsd/wire"
)

var (
	commonBucketName = []byte("common")
	snapshotKey      = []byte("mempool-snapshot")
)

// Snapshot writes every held transaction to db's "common" bucket under a
// single key (spec §4.7: "On graceful shutdown the mempool snapshot is
// written", spec §6's on-disk layout: "common/ — generic key-value store
// for small singletons").
func (mp *Mempool) Snapshot(db database.DB) error {
	mp.mu.RLock()
	txs := make([]*wire.MsgTx, 0, len(mp.entries))
	for _, e := range mp.entries {
		txs = append(txs, e.Tx)
	}
	mp.mu.RUnlock()

	var buf bytes.Buffer
	if err := wire.WriteVarInt(&buf, uint64(len(txs))); err != nil {
		return err
	}
	for _, tx := range txs {
		if err := tx.Serialize(&buf); err != nil {
			return err
		}
	}

	return db.Update(func(tx database.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(commonBucketName)
		if err != nil {
			return err
		}
		return bucket.Put(snapshotKey, buf.Bytes())
	})
}

// Replay reads a previously written snapshot from db and runs every
// transaction in it back through the acceptance pipeline, in the order it
// was serialized; entries that no longer validate are dropped rather than
// failing the whole replay (spec §4.7: "on startup it is replayed through
// the acceptance pipeline (entries that no longer validate are
// dropped)"). Replay is a no-op (not an error) if no snapshot exists.
func (mp *Mempool) Replay(db database.DB) error {
	var raw []byte
	err := db.View(func(tx database.Tx) error {
		bucket := tx.Bucket(commonBucketName)
		if bucket == nil {
			return nil
		}
		raw = bucket.Get(snapshotKey)
		return nil
	})
	if err != nil || len(raw) == 0 {
		return err
	}

	r := bytes.NewReader(raw)
	count, err := wire.ReadVarInt(r)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		tx := &wire.MsgTx{}
		if err := tx.Deserialize(r); err != nil {
			return err
		}
		_ = mp.AcceptTx(tx)
	}
	return nil
}
