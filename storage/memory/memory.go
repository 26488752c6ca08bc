// Package memory provides a thread-safe in-memory audit store. Suitable
// for testing, demos, and deployments that can afford to lose the trail on
// restart.
package memory

import (
	"sync"

	"github.com/rvaughn/gatewarden/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu      sync.RWMutex
	entries []storage.Entry
	closed  bool
}

var _ storage.Store = (*Store)(nil)

// NewStore creates an empty in-memory audit store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) Append(entry storage.Entry) (storage.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.Entry{}, storage.ErrClosed
	}

	entry.PrevHash = storage.GenesisHash
	if n := len(s.entries); n > 0 {
		entry.PrevHash = s.entries[n-1].Hash
	}
	entry.Hash = storage.ChainHash(entry.ID, entry.PrevHash, entry.CreatedAt)
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *Store) Recent(limit int) ([]storage.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}

	n := len(s.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]storage.Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *Store) Len() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, storage.ErrClosed
	}
	return len(s.entries), nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
