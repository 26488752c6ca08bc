// Package bbolt provides a BBolt-backed audit store so the trail survives
// process restarts.
package bbolt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/rvaughn/gatewarden/storage"
)

var (
	bucketEntries = []byte("audit_entries")
	bucketMeta    = []byte("audit_meta")
	keyLastHash   = []byte("last_hash")
)

// Store implements storage.Store backed by a BBolt database. Entries are
// keyed by the bucket's monotonic sequence, so iteration order is append
// order.
type Store struct {
	db *bbolt.DB
}

var _ storage.Store = (*Store)(nil)

// NewStore returns a Store backed by the given BBolt database.
func NewStore(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEntries); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("initializing audit buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreFromFile opens a BBolt database at the given path.
func NewStoreFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewStore(db)
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Append(entry storage.Entry) (storage.Entry, error) {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		entries := tx.Bucket(bucketEntries)
		meta := tx.Bucket(bucketMeta)

		entry.PrevHash = storage.GenesisHash
		if last := meta.Get(keyLastHash); last != nil {
			entry.PrevHash = string(last)
		}
		entry.Hash = storage.ChainHash(entry.ID, entry.PrevHash, entry.CreatedAt)

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		seq, err := entries.NextSequence()
		if err != nil {
			return err
		}
		if err := entries.Put(seqKey(seq), data); err != nil {
			return err
		}
		return meta.Put(keyLastHash, []byte(entry.Hash))
	})
	if err != nil {
		return storage.Entry{}, err
	}
	return entry, nil
}

func (s *Store) Recent(limit int) ([]storage.Entry, error) {
	var out []storage.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var entry storage.Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decoding audit entry: %w", err)
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Len() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketEntries).Stats().KeyN
		return nil
	})
	return n, err
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
