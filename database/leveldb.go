// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// levelDB adapts github.com/syndtr/goleveldb into the ordered transactional
// Bucket/Tx/DB contract of database.go. Buckets are modeled as key
// prefixes; a writable transaction buffers all mutations in a
// leveldb.Batch and applies them atomically on Commit, giving the "atomic
// multi-key commit" spec §1 requires without leveldb's own (nonexistent)
// multi-statement transactions.
type levelDB struct {
	mu sync.Mutex
	db *leveldb.DB
}

// OpenLevelDB opens (creating if necessary) a goleveldb store at path.
func OpenLevelDB(path string) (DB, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, err
	}
	return &levelDB{db: db}, nil
}

func (l *levelDB) Begin(writable bool) (Tx, error) {
	if writable {
		l.mu.Lock()
	}
	snap, err := l.db.GetSnapshot()
	if err != nil {
		if writable {
			l.mu.Unlock()
		}
		return nil, err
	}
	return &levelTx{
		db:       l,
		snap:     snap,
		writable: writable,
		batch:    new(leveldb.Batch),
		prefix:   nil,
	}, nil
}

func (l *levelDB) Update(fn func(tx Tx) error) error {
	tx, err := l.Begin(true)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (l *levelDB) View(fn func(tx Tx) error) error {
	tx, err := l.Begin(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return fn(tx)
}

func (l *levelDB) Close() error {
	return l.db.Close()
}

// levelTx implements Tx and Bucket. A levelTx scoped to a nested bucket
// carries the accumulated key prefix; root and nested buckets share the
// same batch/snapshot so a Commit on the root transaction is atomic across
// every bucket written through it.
type levelTx struct {
	db       *levelDB
	snap     *leveldb.Snapshot
	writable bool
	batch    *leveldb.Batch
	prefix   []byte
	closed   bool
}

func (t *levelTx) key(k []byte) []byte {
	if len(t.prefix) == 0 {
		return k
	}
	full := make([]byte, 0, len(t.prefix)+len(k))
	full = append(full, t.prefix...)
	full = append(full, k...)
	return full
}

func (t *levelTx) Writable() bool { return t.writable }

func (t *levelTx) Get(k []byte) []byte {
	if t.closed {
		return nil
	}
	v, err := t.snap.Get(t.key(k), nil)
	if err != nil {
		return nil
	}
	return v
}

func (t *levelTx) Put(k, v []byte) error {
	if t.closed {
		return ErrTxClosed
	}
	if !t.writable {
		return ErrTxClosed
	}
	t.batch.Put(t.key(k), v)
	return nil
}

func (t *levelTx) Delete(k []byte) error {
	if t.closed {
		return ErrTxClosed
	}
	if !t.writable {
		return ErrTxClosed
	}
	t.batch.Delete(t.key(k))
	return nil
}

func (t *levelTx) ForEach(fn func(k, v []byte) error) error {
	if t.closed {
		return ErrTxClosed
	}
	rng := util.BytesPrefix(t.prefix)
	iter := t.snap.NewIterator(rng, nil)
	defer iter.Release()
	for iter.Next() {
		key := bytes.TrimPrefix(iter.Key(), t.prefix)
		// Do not descend into nested-bucket keys at this level.
		if bytes.ContainsRune(key, 0) {
			continue
		}
		if err := fn(append([]byte(nil), key...), append([]byte(nil), iter.Value()...)); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (t *levelTx) Bucket(name []byte) Bucket {
	return &levelTx{
		db:       t.db,
		snap:     t.snap,
		writable: t.writable,
		batch:    t.batch,
		prefix:   bucketPrefix(t.prefix, name),
	}
}

func (t *levelTx) CreateBucketIfNotExists(name []byte) (Bucket, error) {
	return t.Bucket(name), nil
}

func bucketPrefix(parent, name []byte) []byte {
	p := make([]byte, 0, len(parent)+len(name)+1)
	p = append(p, parent...)
	p = append(p, name...)
	p = append(p, 0)
	return p
}

func (t *levelTx) Commit() error {
	if t.closed {
		return ErrTxClosed
	}
	t.closed = true
	t.snap.Release()
	if t.writable {
		defer t.db.mu.Unlock()
		if t.batch.Len() == 0 {
			return nil
		}
		return t.db.db.Write(t.batch, nil)
	}
	return nil
}

func (t *levelTx) Rollback() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.snap.Release()
	if t.writable {
		t.db.mu.Unlock()
	}
	return nil
}
