// Package storage defines the append-only audit trail behind the gateway's
// authentication events, with a tamper-evident hash chain over the entries.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrClosed is returned by stores after Close.
var ErrClosed = errors.New("audit store closed")

// GenesisHash anchors the first entry of an audit chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Entry is one audit record. PrevHash and Hash are assigned by the store
// on append; callers fill in the event fields only.
type Entry struct {
	ID        string `json:"id"`
	Event     string `json:"event"`
	UserID    string `json:"user_id,omitempty"`
	Method    string `json:"method,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
	PrevHash  string `json:"prev_hash"`
	Hash      string `json:"hash"`
}

// ChainHash computes the chain link for an entry.
// hash = SHA-256( entryID || prevHash || createdAt )
func ChainHash(entryID, prevHash, createdAt string) string {
	h := sha256.Sum256([]byte(entryID + prevHash + createdAt))
	return hex.EncodeToString(h[:])
}

// Store is an append-only audit trail. Append assigns the chain fields and
// returns the completed entry; Recent returns up to limit entries, newest
// first.
type Store interface {
	Append(entry Entry) (Entry, error)
	Recent(limit int) ([]Entry, error)
	Len() (int, error)
	Close() error
}

// VerifyChain walks entries in append order and reports the index of the
// first broken link, or -1 when the chain is intact. An empty chain is
// intact.
func VerifyChain(entries []Entry) int {
	prev := GenesisHash
	for i, e := range entries {
		if e.PrevHash != prev {
			return i
		}
		if ChainHash(e.ID, e.PrevHash, e.CreatedAt) != e.Hash {
			return i
		}
		prev = e.Hash
	}
	return -1
}
