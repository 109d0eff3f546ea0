// Package storage provides the key/value abstraction pool snapshots are
// persisted through.
package storage

import "errors"

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// DB is the interface for key-value storage.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// KV is a single key/value write.
type KV struct {
	Key   []byte
	Value []byte
}

// Batcher is implemented by databases that can apply a set of deletes and
// puts as one atomic unit. Deletes are applied before puts.
type Batcher interface {
	ApplyBatch(deletes [][]byte, puts []KV) error
}

// ApplyBatch applies deletes then puts through db, atomically when db
// implements Batcher and one write at a time otherwise.
func ApplyBatch(db DB, deletes [][]byte, puts []KV) error {
	if b, ok := db.(Batcher); ok {
		return b.ApplyBatch(deletes, puts)
	}
	for _, k := range deletes {
		if err := db.Delete(k); err != nil {
			return err
		}
	}
	for _, kv := range puts {
		if err := db.Put(kv.Key, kv.Value); err != nil {
			return err
		}
	}
	return nil
}
