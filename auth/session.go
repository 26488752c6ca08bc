package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/rvaughn/gatewarden/internal/util"
)

// sessionIDBytes gives 256 bits of entropy per identifier.
const sessionIDBytes = 32

// sweepInterval is how often the janitor removes expired records, so an
// idle server does not accumulate session memory without traffic.
const sweepInterval = 5 * time.Minute

// SessionRecord is the server-side state for one authenticated session.
type SessionRecord struct {
	UserID     string
	CreatedAt  time.Time
	LastAccess time.Time
	ClientIP   string
}

// SessionStore maps session identifiers to records with absolute TTL
// expiry. Records are keyed by HMAC-SHA256(secret, id) rather than the raw
// identifier, so the in-memory map never holds usable bearer tokens.
type SessionStore struct {
	mu      sync.Mutex
	secret  []byte
	timeout time.Duration
	records map[string]*SessionRecord

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewSessionStore creates a store and starts its background sweep. An empty
// secret disables session creation and authentication entirely (Create
// returns ErrSessionsDisabled). Close stops the sweep goroutine.
func NewSessionStore(secret string, timeout time.Duration) *SessionStore {
	s := &SessionStore{
		timeout: timeout,
		records: make(map[string]*SessionRecord),
		stopCh:  make(chan struct{}),
	}
	if secret != "" {
		s.secret = []byte(secret)
	}
	go s.sweepLoop()
	return s
}

// Enabled reports whether a session secret is configured.
func (s *SessionStore) Enabled() bool {
	return s.secret != nil
}

// Create generates a fresh unpredictable session identifier for userID and
// stores its record. It returns ErrSessionsDisabled when no session secret
// is configured.
func (s *SessionStore) Create(userID, clientIP string) (string, error) {
	if !s.Enabled() {
		return "", ErrSessionsDisabled
	}
	id, err := util.RandomToken(sessionIDBytes)
	if err != nil {
		return "", err
	}
	now := time.Now()

	s.mu.Lock()
	s.sweepLocked(now)
	s.records[s.digest(id)] = &SessionRecord{
		UserID:     userID,
		CreatedAt:  now,
		LastAccess: now,
		ClientIP:   clientIP,
	}
	s.mu.Unlock()
	return id, nil
}

// Authenticate resolves a session identifier to its user. Expired records
// are removed at read time, before the sweep gets to them, so an expired
// session can never authenticate even if the janitor is behind.
func (s *SessionStore) Authenticate(sessionID string) (string, error) {
	if !s.Enabled() {
		return "", ErrNoSession
	}
	key := s.digest(sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return "", ErrNoSession
	}
	if time.Since(rec.CreatedAt) >= s.timeout {
		delete(s.records, key)
		return "", ErrSessionExpired
	}
	rec.LastAccess = time.Now()
	return rec.UserID, nil
}

// Destroy removes a session. Unknown identifiers are a no-op.
func (s *SessionStore) Destroy(sessionID string) {
	if !s.Enabled() {
		return
	}
	s.mu.Lock()
	delete(s.records, s.digest(sessionID))
	s.mu.Unlock()
}

// DestroyAll removes every session and returns how many were dropped.
func (s *SessionStore) DestroyAll() int {
	s.mu.Lock()
	n := len(s.records)
	s.records = make(map[string]*SessionRecord)
	s.mu.Unlock()
	return n
}

// Len returns the number of live records, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Close stops the background sweep goroutine.
func (s *SessionStore) Close() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Timeout returns the configured absolute session lifetime.
func (s *SessionStore) Timeout() time.Duration {
	return s.timeout
}

func (s *SessionStore) digest(sessionID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(sessionID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *SessionStore) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweepExpired()
		}
	}
}

func (s *SessionStore) sweepExpired() {
	s.mu.Lock()
	s.sweepLocked(time.Now())
	s.mu.Unlock()
}

func (s *SessionStore) sweepLocked(now time.Time) {
	for key, rec := range s.records {
		if now.Sub(rec.CreatedAt) >= s.timeout {
			delete(s.records, key)
		}
	}
}
