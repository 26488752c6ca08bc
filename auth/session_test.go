package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_CreateAndAuthenticate(t *testing.T) {
	s := NewSessionStore("test-secret", time.Hour)
	defer s.Close()

	id, err := s.Create("olivia", "10.0.0.1")
	require.NoError(t, err)
	assert.Len(t, id, 64, "session id is 256 bits of lowercase hex")

	userID, err := s.Authenticate(id)
	require.NoError(t, err)
	assert.Equal(t, "olivia", userID)
}

func TestSessionStore_UnknownID(t *testing.T) {
	s := NewSessionStore("test-secret", time.Hour)
	defer s.Close()

	_, err := s.Authenticate("deadbeef")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionStore_ExpiresAtReadTime(t *testing.T) {
	s := NewSessionStore("test-secret", 50*time.Millisecond)
	defer s.Close()

	id, err := s.Create("olivia", "10.0.0.1")
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	_, err = s.Authenticate(id)
	assert.ErrorIs(t, err, ErrSessionExpired)

	// The expired record was removed on read; a second attempt sees NoSession.
	_, err = s.Authenticate(id)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionStore_Destroy(t *testing.T) {
	s := NewSessionStore("test-secret", time.Hour)
	defer s.Close()

	id, err := s.Create("olivia", "10.0.0.1")
	require.NoError(t, err)

	s.Destroy(id)
	_, err = s.Authenticate(id)
	assert.ErrorIs(t, err, ErrNoSession, "destroyed session never authenticates again")

	// Idempotent.
	s.Destroy(id)
}

func TestSessionStore_DestroyAll(t *testing.T) {
	s := NewSessionStore("test-secret", time.Hour)
	defer s.Close()

	for i := 0; i < 3; i++ {
		_, err := s.Create("u", "ip")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.DestroyAll())
	assert.Equal(t, 0, s.Len())
}

func TestSessionStore_DisabledWithoutSecret(t *testing.T) {
	s := NewSessionStore("", time.Hour)
	defer s.Close()

	assert.False(t, s.Enabled())

	_, err := s.Create("olivia", "10.0.0.1")
	assert.ErrorIs(t, err, ErrSessionsDisabled)

	_, err = s.Authenticate("anything")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionStore_SweepRemovesExpired(t *testing.T) {
	s := NewSessionStore("test-secret", 10*time.Millisecond)
	defer s.Close()

	_, err := s.Create("olivia", "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	time.Sleep(20 * time.Millisecond)
	s.sweepExpired()

	assert.Equal(t, 0, s.Len(), "sweep should remove expired records without traffic")
}

func TestSessionStore_CreateSweepsOpportunistically(t *testing.T) {
	s := NewSessionStore("test-secret", 10*time.Millisecond)
	defer s.Close()

	_, err := s.Create("stale", "ip")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	_, err = s.Create("fresh", "ip")
	require.NoError(t, err)

	assert.Equal(t, 1, s.Len(), "create should sweep the stale record")
}

func TestSessionStore_RecordsKeyedByHMAC(t *testing.T) {
	s := NewSessionStore("test-secret", time.Hour)
	defer s.Close()

	id, err := s.Create("olivia", "10.0.0.1")
	require.NoError(t, err)

	s.mu.Lock()
	_, rawKeyPresent := s.records[id]
	s.mu.Unlock()
	assert.False(t, rawKeyPresent, "map must not be keyed by the bearer token itself")
}
