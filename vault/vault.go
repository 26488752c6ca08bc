// Package vault provides ephemeral custody of password-derived keys. Keys
// live in memguard enclaves keyed by session, are consumed by a single
// atomic read, and may be recomputed from the remembered password a bounded
// number of times. Handlers never touch the vault directly; they go through
// the RequestAuth capability object.
package vault

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/awnumar/memguard"

	"github.com/rvaughn/gatewarden/internal/util"
)

// KeyDeriver recomputes a derived key from a password. Key derivation is a
// pure external dependency; the vault neither selects parameters nor
// imposes a timeout; it returns as soon as the deriver does.
type KeyDeriver func(ctx context.Context, password []byte) ([]byte, error)

// entrySweepInterval is how often untouched entries are dropped.
const entrySweepInterval = 5 * time.Minute

type entry struct {
	key          *memguard.Enclave // nil once consumed by TakeKey
	password     *memguard.Enclave // nil when no password is remembered
	rehydrations int
	lastAccess   time.Time
}

// Vault is the per-session derived-key store.
type Vault struct {
	mu      sync.Mutex
	entries map[string]*entry
	derive  KeyDeriver
	maxRehy int
	ttl     time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a vault. maxRehydrations bounds how many times Rehydrate may
// invoke the deriver per session; ttl bounds how long an untouched entry
// survives (normally the session timeout). Close stops the sweeper.
func New(derive KeyDeriver, maxRehydrations int, ttl time.Duration) *Vault {
	v := &Vault{
		entries: make(map[string]*entry),
		derive:  derive,
		maxRehy: maxRehydrations,
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
	go v.sweepLoop()
	return v
}

// StoreKey places a derived key into the session's entry, replacing any
// unconsumed one and resetting nothing else. The input buffer is moved into
// an enclave and wiped by memguard; callers must not reuse it.
func (v *Vault) StoreKey(sessionID string, key []byte) error {
	if len(key) != KeySize {
		util.WipeBytes(key)
		return fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	enc := memguard.NewEnclave(key)

	v.mu.Lock()
	e := v.entryLocked(sessionID)
	e.key = enc
	v.mu.Unlock()
	return nil
}

// StorePassword remembers the session's password for later rehydration.
// The input buffer is moved into an enclave and wiped by memguard.
func (v *Vault) StorePassword(sessionID string, password []byte) {
	if len(password) == 0 {
		return
	}
	enc := memguard.NewEnclave(password)

	v.mu.Lock()
	v.entryLocked(sessionID).password = enc
	v.mu.Unlock()
}

// HasPassword reports whether a password is remembered for the session.
func (v *Vault) HasPassword(sessionID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.entries[sessionID]
	return ok && e.password != nil
}

// TakeKey performs the one-shot read: the key is removed from the entry
// under the lock, so a second reader racing the first observes an empty
// vault, never a torn or duplicated value.
func (v *Vault) TakeKey(sessionID string) ([]byte, bool) {
	v.mu.Lock()
	e, ok := v.entries[sessionID]
	if !ok || e.key == nil {
		v.mu.Unlock()
		return nil, false
	}
	enc := e.key
	e.key = nil
	e.lastAccess = time.Now()
	v.mu.Unlock()

	buf, err := enc.Open()
	if err != nil {
		return nil, false
	}
	out := util.CopyBytes(buf.Bytes())
	buf.Destroy()
	return out, true
}

// Rehydrate recomputes the derived key from the remembered password. Every
// call that reaches the deriver consumes one attempt from the quota,
// success or not; once the quota is spent the session stays exhausted until
// Drop (logout/re-login) resets it.
func (v *Vault) Rehydrate(ctx context.Context, sessionID string) ([]byte, error) {
	v.mu.Lock()
	e, ok := v.entries[sessionID]
	if !ok || e.password == nil {
		v.mu.Unlock()
		return nil, ErrNoKey
	}
	if e.rehydrations >= v.maxRehy {
		v.mu.Unlock()
		return nil, ErrRehydrationExhausted
	}
	e.rehydrations++
	e.lastAccess = time.Now()
	enc := e.password
	v.mu.Unlock()

	buf, err := enc.Open()
	if err != nil {
		return nil, fmt.Errorf("opening password enclave: %w", err)
	}
	password := util.CopyBytes(buf.Bytes())
	buf.Destroy()
	defer util.WipeBytes(password)

	key, err := v.derive(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	if len(key) != KeySize {
		util.WipeBytes(key)
		return nil, fmt.Errorf("%w: deriver returned %d bytes", ErrInvalidKey, len(key))
	}
	return key, nil
}

// Rehydrations returns how many quota attempts the session has consumed.
func (v *Vault) Rehydrations(sessionID string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if e, ok := v.entries[sessionID]; ok {
		return e.rehydrations
	}
	return 0
}

// Drop removes the session's entry entirely, resetting the rehydration
// counter. Idempotent; the logout path calls it unconditionally.
func (v *Vault) Drop(sessionID string) {
	v.mu.Lock()
	delete(v.entries, sessionID)
	v.mu.Unlock()
}

// Len returns the number of live entries.
func (v *Vault) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}

// Close stops the background sweeper.
func (v *Vault) Close() {
	v.stopOnce.Do(func() { close(v.stopCh) })
}

func (v *Vault) entryLocked(sessionID string) *entry {
	e, ok := v.entries[sessionID]
	if !ok {
		e = &entry{lastAccess: time.Now()}
		v.entries[sessionID] = e
	}
	e.lastAccess = time.Now()
	return e
}

func (v *Vault) sweepLoop() {
	ticker := time.NewTicker(entrySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-v.stopCh:
			return
		case <-ticker.C:
			v.sweepStale()
		}
	}
}

// sweepStale drops entries whose sessions went away without a logout.
func (v *Vault) sweepStale() {
	if v.ttl <= 0 {
		return
	}
	now := time.Now()
	v.mu.Lock()
	for id, e := range v.entries {
		if now.Sub(e.lastAccess) >= v.ttl {
			delete(v.entries, id)
		}
	}
	v.mu.Unlock()
}
