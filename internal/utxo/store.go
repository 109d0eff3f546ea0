package utxo

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-settle/internal/log"
	"github.com/Klingon-tech/klingnet-settle/internal/storage"
	"github.com/Klingon-tech/klingnet-settle/pkg/tx"
	"github.com/Klingon-tech/klingnet-settle/pkg/types"
)

// Key prefixes for the UTXO store.
var (
	prefixUTXO  = []byte("u/") // u/<index><txhash> -> output JSON
	keyMeta     = []byte("m/commitment")
	prefixExtra = []byte("x/") // caller metadata saved with a snapshot
)

// ErrCorruptSnapshot is returned when a stored snapshot does not match
// its recorded commitment.
var ErrCorruptSnapshot = errors.New("pool snapshot does not match commitment")

// Store persists pool snapshots in a storage.DB.
type Store struct {
	db storage.DB
}

// NewStore creates a new UTXO store backed by the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// utxoKey builds a storage key for an identifier: "u/" + index(4) + txhash.
func utxoKey(id types.UTXOID) []byte {
	txHash := id.TxHash()
	key := make([]byte, len(prefixUTXO)+4+len(txHash))
	copy(key, prefixUTXO)
	binary.BigEndian.PutUint32(key[len(prefixUTXO):], id.Index())
	copy(key[len(prefixUTXO)+4:], txHash)
	return key
}

// parseKey is the inverse of utxoKey.
func parseKey(key []byte) (types.UTXOID, error) {
	if len(key) < len(prefixUTXO)+4 {
		return types.UTXOID{}, fmt.Errorf("short utxo key %x", key)
	}
	index := binary.BigEndian.Uint32(key[len(prefixUTXO):])
	return types.NewUTXOID(key[len(prefixUTXO)+4:], index)
}

// Save replaces the stored snapshot with the contents of pool. Metadata
// entries are written in the same batch, so a reader never sees a snapshot
// paired with metadata from another save.
func (s *Store) Save(pool *Pool, meta ...storage.KV) error {
	var stale [][]byte
	err := s.db.ForEach(prefixUTXO, func(key, _ []byte) error {
		stale = append(stale, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("utxo scan: %w", err)
	}

	puts := make([]storage.KV, 0, pool.Len()+1+len(meta))
	for _, e := range pool.Entries() {
		data, err := json.Marshal(e.Output)
		if err != nil {
			return fmt.Errorf("utxo marshal %s: %w", e.ID, err)
		}
		puts = append(puts, storage.KV{Key: utxoKey(e.ID), Value: data})
	}
	root := Commitment(pool)
	puts = append(puts, storage.KV{Key: keyMeta, Value: root[:]})
	for _, kv := range meta {
		puts = append(puts, storage.KV{Key: extraKey(kv.Key), Value: kv.Value})
	}

	if err := storage.ApplyBatch(s.db, stale, puts); err != nil {
		return fmt.Errorf("utxo save: %w", err)
	}

	log.UTXO.Debug().
		Int("entries", pool.Len()).
		Int("replaced", len(stale)).
		Str("commitment", root.String()).
		Msg("Pool snapshot saved")
	return nil
}

// Load rebuilds the stored snapshot. An empty store yields an empty pool.
// The rebuilt pool is checked against the commitment recorded by Save.
func (s *Store) Load() (*Pool, error) {
	pool := NewPool()
	err := s.db.ForEach(prefixUTXO, func(key, value []byte) error {
		id, err := parseKey(key)
		if err != nil {
			return err
		}
		var out tx.Output
		if err := json.Unmarshal(value, &out); err != nil {
			return fmt.Errorf("utxo unmarshal %s: %w", id, err)
		}
		pool.Add(id, out)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("utxo load: %w", err)
	}

	stored, err := s.db.Get(keyMeta)
	if errors.Is(err, storage.ErrNotFound) {
		if pool.Len() > 0 {
			return nil, fmt.Errorf("%w: missing commitment", ErrCorruptSnapshot)
		}
		return pool, nil
	}
	if err != nil {
		return nil, fmt.Errorf("utxo load commitment: %w", err)
	}
	if root := Commitment(pool); string(stored) != string(root[:]) {
		return nil, ErrCorruptSnapshot
	}
	return pool, nil
}

// StoredCommitment returns the commitment recorded by the last Save, or
// the zero hash if nothing has been saved.
func (s *Store) StoredCommitment() (types.Hash, error) {
	stored, err := s.db.Get(keyMeta)
	if errors.Is(err, storage.ErrNotFound) {
		return types.Hash{}, nil
	}
	if err != nil {
		return types.Hash{}, err
	}
	var h types.Hash
	copy(h[:], stored)
	return h, nil
}

// Has reports whether a snapshot has been saved, including an empty one.
func (s *Store) Has() (bool, error) {
	return s.db.Has(keyMeta)
}

// Meta returns metadata recorded by Save, or storage.ErrNotFound.
func (s *Store) Meta(key []byte) ([]byte, error) {
	return s.db.Get(extraKey(key))
}

func extraKey(key []byte) []byte {
	return append(append([]byte{}, prefixExtra...), key...)
}
