package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyBytes(t *testing.T) {
	src := []byte{1, 2, 3}
	dst := CopyBytes(src)
	require.Equal(t, src, dst)

	dst[0] = 9
	assert.Equal(t, byte(1), src[0], "copy must not alias source")
}

func TestWipeBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	WipeBytes(b)
	assert.Equal(t, []byte{0, 0, 0, 0}, b)
}

func TestRandomBytes(t *testing.T) {
	a, err := RandomBytes(32)
	require.NoError(t, err)
	b, err := RandomBytes(32)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b, "two draws should differ")
}

func TestRandomToken(t *testing.T) {
	tok, err := RandomToken(32)
	require.NoError(t, err)
	assert.Len(t, tok, 64, "32 bytes hex-encode to 64 chars")

	decoded, err := HexDecode(tok)
	require.NoError(t, err)
	assert.Len(t, decoded, 32)
}

func TestNormalize(t *testing.T) {
	// U+212B ANGSTROM SIGN decomposes to A + combining ring.
	assert.Equal(t, Normalize("Å"), Normalize("Å"))
}

func TestDeriveArgon2idKey(t *testing.T) {
	params, err := Argon2idProfile(KDFProfileInteractive)
	require.NoError(t, err)

	salt := []byte("0123456789abcdef")
	k1, err := DeriveArgon2idKey("correct horse", salt, params)
	require.NoError(t, err)
	require.Len(t, k1, 32)

	k2, err := DeriveArgon2idKey("correct horse", salt, params)
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "derivation is deterministic")

	k3, err := DeriveArgon2idKey("wrong horse", salt, params)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}

func TestArgon2idProfile_Unknown(t *testing.T) {
	_, err := Argon2idProfile("bogus")
	assert.Error(t, err)
}

func TestValidateArgon2idParams(t *testing.T) {
	require.NoError(t, ValidateArgon2idParams(DefaultArgon2idParams()))

	bad := DefaultArgon2idParams()
	bad.KeyLen = 16
	assert.Error(t, ValidateArgon2idParams(bad))

	bad = DefaultArgon2idParams()
	bad.MemoryKiB = 1024
	assert.Error(t, ValidateArgon2idParams(bad))
}
