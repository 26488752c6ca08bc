package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvaughn/gatewarden/storage"
)

func appendN(t *testing.T, s storage.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := s.Append(storage.Entry{
			ID:        fmt.Sprintf("entry-%d", i),
			Event:     "login_success",
			UserID:    "alice",
			CreatedAt: "2026-01-02T15:04:05Z",
		})
		require.NoError(t, err)
	}
}

func TestStore_AppendChains(t *testing.T) {
	s := NewStore()
	appendN(t, s, 3)

	recent, err := s.Recent(0)
	require.NoError(t, err)
	require.Len(t, recent, 3)

	// Recent is newest first; verify in append order.
	ordered := []storage.Entry{recent[2], recent[1], recent[0]}
	assert.Equal(t, storage.GenesisHash, ordered[0].PrevHash)
	assert.Equal(t, ordered[0].Hash, ordered[1].PrevHash)
	assert.Equal(t, -1, storage.VerifyChain(ordered))
}

func TestStore_RecentLimit(t *testing.T) {
	s := NewStore()
	appendN(t, s, 5)

	recent, err := s.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "entry-4", recent[0].ID)
	assert.Equal(t, "entry-3", recent[1].ID)

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestStore_Closed(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Close())

	_, err := s.Append(storage.Entry{ID: "x"})
	assert.ErrorIs(t, err, storage.ErrClosed)
	_, err = s.Recent(1)
	assert.ErrorIs(t, err, storage.ErrClosed)
}
