// Package durablestore is the transactional key/value abstraction required
// by spec.md §4.3: a small, fixed set of tables over a memory-mapped B-tree
// database with ACID transactions. It is backed by go.etcd.io/bbolt, whose
// single-writer/multi-reader MVCC model is exactly the "memory-mapped
// B-tree" the data model calls for.
//
// The shape of this package (constructor takes a path and a *zap.Logger,
// wraps engine-specific errors with context, exposes Close/HealthCheck) is
// grounded on pkg/persistence/badger/badger.go in the teacher repo, adapted
// from Badger's LSM-tree API onto bbolt's bucket/cursor API.
package durablestore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// Table names — the fixed set of "tables" spec.md §3 requires.
const (
	TableMeta   = "meta"
	TableLeaves = "leaves"
	TableLevels = "levels"
)

var allTables = [...]string{TableMeta, TableLeaves, TableLevels}

// openTimeout bounds how long Open waits for the bbolt file lock before
// giving up, so a second process contending for the same STORAGE_PATH
// fails fast with StorageFailure instead of hanging indefinitely.
const openTimeout = 5 * time.Second

// Store is a transactional key/value store over a single on-disk database,
// scoped to the fixed table set above.
type Store struct {
	db     *bbolt.DB
	logger *zap.Logger
}

// Open creates the storage directory if needed and opens (or creates) the
// mapped database at path, defining every table declared above.
func Open(path string, logger *zap.Logger) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolve storage path")
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "create storage directory")
	}

	db, err := bbolt.Open(absPath, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, errors.Wrapf(err, "open bbolt database at %s", absPath)
	}

	s := &Store{db: db, logger: logger}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, table := range allTables {
			if _, err := tx.CreateBucketIfNotExists([]byte(table)); err != nil {
				return fmt.Errorf("create table %q: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "initialize tables")
	}

	logger.Sugar().Infow("durable store opened", "path", absPath)
	return s, nil
}

// View runs fn in a read-only transaction: a consistent snapshot that may
// coexist with any number of other readers and at most one writer.
func (s *Store) View(fn func(tx *Tx) error) error {
	err := s.db.View(func(btx *bbolt.Tx) error {
		return fn(&Tx{btx: btx})
	})
	if err != nil {
		return errors.Wrap(err, "read transaction")
	}
	return nil
}

// Update runs fn in a read-write transaction, serialized with all other
// writers. The transaction commits if fn returns nil and rolls back
// otherwise, so a failing fn never leaves partial state visible.
func (s *Store) Update(fn func(tx *Tx) error) error {
	err := s.db.Update(func(btx *bbolt.Tx) error {
		return fn(&Tx{btx: btx})
	})
	if err != nil {
		return errors.Wrap(err, "write transaction")
	}
	return nil
}

// HealthCheck verifies the store is reachable, failing fast if not.
func (s *Store) HealthCheck() error {
	return s.View(func(tx *Tx) error { return nil })
}

// Close flushes and unmaps the underlying database. Idempotent.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "close durable store")
	}
	return nil
}

// Tx is a single read or write transaction, scoped to the fixed table set.
type Tx struct {
	btx *bbolt.Tx
}

// Get returns the value stored at key in table, or ok=false if absent. The
// returned slice is a copy safe to retain past the transaction's lifetime.
func (t *Tx) Get(table string, key []byte) (value []byte, ok bool) {
	b := t.btx.Bucket([]byte(table))
	if b == nil {
		return nil, false
	}
	v := b.Get(key)
	if v == nil {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

// Put writes key -> value in table. Only valid within Store.Update.
func (t *Tx) Put(table string, key, value []byte) error {
	b := t.btx.Bucket([]byte(table))
	if b == nil {
		return fmt.Errorf("durablestore: unknown table %q", table)
	}
	return b.Put(key, value)
}

// Delete removes key from table. Idempotent. Only valid within Store.Update.
func (t *Tx) Delete(table string, key []byte) error {
	b := t.btx.Bucket([]byte(table))
	if b == nil {
		return fmt.Errorf("durablestore: unknown table %q", table)
	}
	return b.Delete(key)
}

// Clear removes every key in table. Only valid within Store.Update.
func (t *Tx) Clear(table string) error {
	name := []byte(table)
	if t.btx.Bucket(name) == nil {
		return fmt.Errorf("durablestore: unknown table %q", table)
	}
	if err := t.btx.DeleteBucket(name); err != nil {
		return err
	}
	_, err := t.btx.CreateBucket(name)
	return err
}

// ForEach iterates table in key order, stopping at the first error fn
// returns.
func (t *Tx) ForEach(table string, fn func(key, value []byte) error) error {
	b := t.btx.Bucket([]byte(table))
	if b == nil {
		return fmt.Errorf("durablestore: unknown table %q", table)
	}
	return b.ForEach(fn)
}

// ScanPrefix iterates every key in table that starts with prefix, in key
// order, stopping at the first error fn returns.
func (t *Tx) ScanPrefix(table string, prefix []byte, fn func(key, value []byte) error) error {
	b := t.btx.Bucket([]byte(table))
	if b == nil {
		return fmt.Errorf("durablestore: unknown table %q", table)
	}
	c := b.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}
