package vault

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvaughn/gatewarden/internal/util"
)

func newTestFactory(t *testing.T, maxRehydrations int) (*Factory, *Vault) {
	t.Helper()
	v := New(testDeriver, maxRehydrations, time.Hour)
	t.Cleanup(v.Close)
	return NewFactory(v), v
}

func TestRequestAuth_DirectKey(t *testing.T) {
	f, _ := newTestFactory(t, 0)
	ra, err := f.New(Params{
		UserID:        "alice",
		Authenticated: true,
		DerivedKey:    testKey(),
	})
	require.NoError(t, err)
	defer ra.DestroySecrets()

	// Repeats work; each call hands out an independent copy.
	first, err := ra.GetDerivedKey(t.Context())
	require.NoError(t, err)
	assert.Equal(t, testKey(), first)

	first[0] ^= 0xff
	second, err := ra.GetDerivedKey(t.Context())
	require.NoError(t, err)
	assert.Equal(t, testKey(), second, "caller mutation must not reach the stored key")
}

func TestRequestAuth_HexKey(t *testing.T) {
	f, _ := newTestFactory(t, 0)

	t.Run("plain", func(t *testing.T) {
		ra, err := f.New(Params{DerivedKeyHex: util.HexEncode(testKey())})
		require.NoError(t, err)
		defer ra.DestroySecrets()
		key, err := ra.GetDerivedKey(t.Context())
		require.NoError(t, err)
		assert.Equal(t, testKey(), key)
	})

	t.Run("prefixed", func(t *testing.T) {
		ra, err := f.New(Params{DerivedKeyHex: "0x" + util.HexEncode(testKey())})
		require.NoError(t, err)
		defer ra.DestroySecrets()
		key, err := ra.GetDerivedKey(t.Context())
		require.NoError(t, err)
		assert.Equal(t, testKey(), key)
	})

	t.Run("malformed", func(t *testing.T) {
		for _, bad := range []string{"xyz", util.HexEncode(testKey())[:30], util.HexEncode(testKey()) + "00"} {
			_, err := f.New(Params{DerivedKeyHex: bad})
			assert.ErrorIs(t, err, ErrInvalidKey)
		}
		assert.Equal(t, 0, f.liveCells(), "rejected construction leaves no cell behind")
	})
}

func TestRequestAuth_NoKey(t *testing.T) {
	f, _ := newTestFactory(t, 0)
	ra, err := f.New(Params{UserID: "api", Authenticated: true})
	require.NoError(t, err)
	defer ra.DestroySecrets()

	_, err = ra.GetDerivedKey(t.Context())
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestRequestAuth_HydratesFromVault(t *testing.T) {
	f, v := newTestFactory(t, 0)
	require.NoError(t, v.StoreKey("sess-1", testKey()))

	ra, err := f.New(Params{UserID: "alice", Authenticated: true, SessionID: "sess-1"})
	require.NoError(t, err)
	defer ra.DestroySecrets()

	key, err := ra.GetDerivedKey(t.Context())
	require.NoError(t, err)
	assert.Equal(t, testKey(), key)

	// The vault slot was consumed, but the request keeps its cached copy.
	_, ok := v.TakeKey("sess-1")
	assert.False(t, ok)
	key, err = ra.GetDerivedKey(t.Context())
	require.NoError(t, err)
	assert.Equal(t, testKey(), key)
}

func TestRequestAuth_RehydratesOncePerRequest(t *testing.T) {
	f, v := newTestFactory(t, 1)
	v.StorePassword("sess-1", []byte("hunter2"))

	ra, err := f.New(Params{UserID: "alice", Authenticated: true, SessionID: "sess-1", HasPassword: true})
	require.NoError(t, err)
	defer ra.DestroySecrets()

	_, err = ra.GetDerivedKey(t.Context())
	require.NoError(t, err)
	_, err = ra.GetDerivedKey(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, v.Rehydrations("sess-1"), "cached key must not burn quota again")
}

func TestRequestAuth_QuotaExhaustedReadsAsNoKey(t *testing.T) {
	f, v := newTestFactory(t, 0)
	v.StorePassword("sess-1", []byte("hunter2"))

	ra, err := f.New(Params{UserID: "alice", Authenticated: true, SessionID: "sess-1", HasPassword: true})
	require.NoError(t, err)
	defer ra.DestroySecrets()

	_, err = ra.GetDerivedKey(t.Context())
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestRequestAuth_DestroySecrets(t *testing.T) {
	f, _ := newTestFactory(t, 0)
	ra, err := f.New(Params{DerivedKey: testKey(), Password: []byte("hunter2")})
	require.NoError(t, err)
	require.Equal(t, 1, f.liveCells())

	ra.DestroySecrets()
	assert.Equal(t, 0, f.liveCells())

	_, err = ra.GetDerivedKey(t.Context())
	assert.ErrorIs(t, err, ErrNoKey)
	_, ok := ra.GetPassword()
	assert.False(t, ok)

	// Second destroy is a no-op.
	ra.DestroySecrets()
}

func TestRequestAuth_GetPassword(t *testing.T) {
	f, _ := newTestFactory(t, 0)
	ra, err := f.New(Params{Password: []byte("hunter2")})
	require.NoError(t, err)
	defer ra.DestroySecrets()

	pw, ok := ra.GetPassword()
	require.True(t, ok)
	assert.Equal(t, []byte("hunter2"), pw)

	pw[0] = 'X'
	again, ok := ra.GetPassword()
	require.True(t, ok)
	assert.Equal(t, []byte("hunter2"), again)

	none, err := f.New(Params{})
	require.NoError(t, err)
	defer none.DestroySecrets()
	_, ok = none.GetPassword()
	assert.False(t, ok)
}

func TestSecretCell_NeverRendersContents(t *testing.T) {
	cell := &secretCell{key: testKey(), password: []byte("hunter2")}

	assert.NotContains(t, fmt.Sprintf("%v", cell), "hunter2")
	assert.NotContains(t, fmt.Sprintf("%+v", cell), "hunter2")

	out, err := json.Marshal(cell)
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(out))
}
