package vault

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rvaughn/gatewarden/internal/util"
)

// secretCell is the side-table entry holding a request's secret material.
// It carries no reference back to the RequestAuth that owns it, so the
// capability object stays collectible; the factory drops the cell when the
// request releases it or the GC cleanup fires.
type secretCell struct {
	mu        sync.Mutex
	key       []byte
	password  []byte
	destroyed bool
}

// String implements fmt.Stringer so a cell can never leak its contents
// through formatting.
func (c *secretCell) String() string { return "secretCell([REDACTED])" }

// MarshalJSON keeps secrets out of any accidental serialization.
func (c *secretCell) MarshalJSON() ([]byte, error) { return []byte(`"[REDACTED]"`), nil }

func (c *secretCell) wipe() {
	c.mu.Lock()
	util.WipeBytes(c.key)
	util.WipeBytes(c.password)
	c.key = nil
	c.password = nil
	c.destroyed = true
	c.mu.Unlock()
}

// Factory builds per-request RequestAuth capability objects and owns the
// side table their secrets live in.
type Factory struct {
	vault *Vault

	mu    sync.Mutex
	cells map[uint64]*secretCell
	next  uint64
}

// NewFactory creates a factory wired to the given vault.
func NewFactory(v *Vault) *Factory {
	return &Factory{
		vault: v,
		cells: make(map[uint64]*secretCell),
	}
}

// Params is the construction input for a RequestAuth. At most one of
// DerivedKey and DerivedKeyHex may be set; SessionID plus HasPassword
// enable lazy hydration from the vault when no direct key is supplied.
type Params struct {
	UserID        string
	Authenticated bool
	DerivedKey    []byte
	DerivedKeyHex string
	Password      []byte
	SessionID     string
	HasPassword   bool
}

// RequestAuth is the request-scoped capability object handed to the route
// layer. It exposes its user identity as plain data but reaches secrets
// only through accessor methods; the bytes themselves live in the
// factory's side table. Handlers must call DestroySecrets at the end of
// every request path; the GC cleanup is only a backstop.
type RequestAuth struct {
	UserID        string
	Authenticated bool

	sessionID   string
	hasPassword bool
	handle      uint64
	factory     *Factory
	cleanup     runtime.Cleanup
}

// New builds a RequestAuth for one request. Derived-key input is
// normalized and validated up front: raw keys must be exactly KeySize
// bytes, hex keys exactly 64 hex characters (optionally 0x-prefixed).
func (f *Factory) New(p Params) (*RequestAuth, error) {
	var key []byte
	var err error
	switch {
	case p.DerivedKeyHex != "":
		key, err = ParseKeyHex(p.DerivedKeyHex)
	case p.DerivedKey != nil:
		key, err = ParseKeyBytes(p.DerivedKey)
	}
	if err != nil {
		return nil, err
	}

	cell := &secretCell{key: key}
	if len(p.Password) > 0 {
		cell.password = util.CopyBytes(p.Password)
	}

	f.mu.Lock()
	f.next++
	handle := f.next
	f.cells[handle] = cell
	f.mu.Unlock()

	ra := &RequestAuth{
		UserID:        p.UserID,
		Authenticated: p.Authenticated,
		sessionID:     p.SessionID,
		hasPassword:   p.HasPassword,
		handle:        handle,
		factory:       f,
	}
	// Backstop for requests that are aborted before DestroySecrets runs.
	// The cleanup argument must not reference ra, so it captures only the
	// factory and handle.
	ra.cleanup = runtime.AddCleanup(ra, func(h uint64) { f.reap(h) }, handle)
	return ra, nil
}

// GetDerivedKey returns a copy of the request's derived key. A direct key
// supplied at construction is returned (copied) on every call. Otherwise
// the key is hydrated lazily: first from the vault's one-shot slot, then by
// rehydration from the remembered password under the session's quota. The
// hydrated key is cached for the remainder of the request. Absence and
// quota exhaustion both report ErrNoKey, an expected state, not a crash.
func (ra *RequestAuth) GetDerivedKey(ctx context.Context) ([]byte, error) {
	cell := ra.factory.cell(ra.handle)
	if cell == nil {
		return nil, ErrNoKey
	}

	cell.mu.Lock()
	defer cell.mu.Unlock()
	if cell.destroyed {
		return nil, ErrNoKey
	}
	if cell.key != nil {
		return util.CopyBytes(cell.key), nil
	}
	if ra.sessionID == "" {
		return nil, ErrNoKey
	}

	if key, ok := ra.factory.vault.TakeKey(ra.sessionID); ok {
		cell.key = key
		return util.CopyBytes(cell.key), nil
	}

	if !ra.hasPassword {
		return nil, ErrNoKey
	}
	key, err := ra.factory.vault.Rehydrate(ctx, ra.sessionID)
	if err != nil {
		if errors.Is(err, ErrRehydrationExhausted) || errors.Is(err, ErrNoKey) {
			return nil, ErrNoKey
		}
		return nil, err
	}
	cell.key = key
	return util.CopyBytes(cell.key), nil
}

// GetPassword returns a copy of the password supplied at construction,
// if any.
func (ra *RequestAuth) GetPassword() ([]byte, bool) {
	cell := ra.factory.cell(ra.handle)
	if cell == nil {
		return nil, false
	}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	if cell.destroyed || cell.password == nil {
		return nil, false
	}
	return util.CopyBytes(cell.password), true
}

// DestroySecrets releases the request's secrets early: cached bytes are
// zeroed, the side-table entry is dropped, and the GC cleanup is
// cancelled. Idempotent: a second call, or a call when nothing was
// stored, is a no-op.
func (ra *RequestAuth) DestroySecrets() {
	ra.cleanup.Stop()
	ra.factory.reap(ra.handle)
}

func (f *Factory) cell(handle uint64) *secretCell {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cells[handle]
}

// reap wipes and drops one cell. Safe to call from both DestroySecrets and
// the GC cleanup; whichever runs second finds nothing.
func (f *Factory) reap(handle uint64) {
	f.mu.Lock()
	cell := f.cells[handle]
	delete(f.cells, handle)
	f.mu.Unlock()
	if cell != nil {
		cell.wipe()
	}
}

// liveCells reports the side-table population, for tests.
func (f *Factory) liveCells() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cells)
}
