// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package database defines the ordered, transactional key-value contract
// the consensus core consumes for all persistence (spec §1: "Core
// consumes: an ordered transactional KV with atomic multi-key commit").
// The contract itself, and the iteration order it guarantees, is the part
// of this package the core depends on; the concrete backend
// (goleveldb-based, see leveldb.go) is an adapter behind it.
package database

import "errors"

// ErrNotFound is returned by Get when the requested key does not exist.
var ErrNotFound = errors.New("database: key not found")

// ErrBucketNotFound is returned when a named bucket has not been created.
var ErrBucketNotFound = errors.New("database: bucket not found")

// ErrTxClosed is returned when an operation is attempted against a
// transaction that has already been committed or rolled back.
var ErrTxClosed = errors.New("database: transaction closed")

// Bucket is a named, ordered keyspace within a transaction. Buckets may be
// nested to give each subsystem (coinview, block store, stake chain, proven
// headers, the "common" singleton store) its own namespace within a single
// underlying store, matching the on-disk layout of spec §6.
type Bucket interface {
	// Get returns the value for key, or nil if it does not exist.
	Get(key []byte) []byte
	// Put sets key to value. The value is copied; callers may reuse the
	// slice they passed in.
	Put(key, value []byte) error
	// Delete removes key, if present.
	Delete(key []byte) error
	// ForEach calls fn for every key/value pair in the bucket, in
	// ascending key order, stopping early if fn returns an error.
	ForEach(fn func(k, v []byte) error) error
	// Bucket returns a nested bucket by name. The goleveldb backend
	// never returns nil: a bucket that was never written reads as empty.
	Bucket(name []byte) Bucket
	// CreateBucketIfNotExists returns the nested bucket by name, creating
	// it if necessary.
	CreateBucketIfNotExists(name []byte) (Bucket, error)
}

// Tx is a single atomic transaction. All mutations performed through a Tx
// become visible to subsequent transactions atomically when Commit
// returns, or are entirely discarded on Rollback — the "atomic multi-key
// commit" the coinview's apply/rewind rely on (spec §4.2).
type Tx interface {
	Bucket
	// Writable reports whether the transaction permits mutation.
	Writable() bool
	// Commit finalizes the transaction, making all writes durable
	// atomically. A failed Commit leaves the store unchanged.
	Commit() error
	// Rollback discards all writes performed through the transaction.
	Rollback() error
}

// DB is a handle to the underlying store.
type DB interface {
	// Begin starts a new transaction. Only one writable transaction may
	// be open at a time; readers may proceed concurrently with a writer
	// against a consistent snapshot.
	Begin(writable bool) (Tx, error)
	// Update runs fn inside a writable transaction, committing on a nil
	// return and rolling back otherwise.
	Update(fn func(tx Tx) error) error
	// View runs fn inside a read-only transaction.
	View(fn func(tx Tx) error) error
	// Close releases the underlying resources held by the store.
	Close() error
}
