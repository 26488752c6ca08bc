package vault

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/rvaughn/gatewarden/internal/util"
)

// KeySize is the fixed derived-key length in bytes.
const KeySize = 32

// hexKeyLen is the encoded length: 64 hex characters for 32 bytes.
const hexKeyLen = 2 * KeySize

// ParseKeyHex validates and decodes a hex-encoded derived key. Accepted
// input is exactly 64 hex characters, case-insensitive, with an optional
// 0x prefix. Anything else is rejected, never truncated or padded, and
// the error never echoes the input.
func ParseKeyHex(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidKey)
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	if len(s) != hexKeyLen {
		return nil, fmt.Errorf("%w: want %d hex characters, got %d", ErrInvalidKey, hexKeyLen, len(s))
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: non-hex character in input", ErrInvalidKey)
	}
	return key, nil
}

// ParseKeyBytes validates a raw derived key and returns a defensive copy.
func ParseKeyBytes(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidKey)
	}
	if len(b) != KeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, KeySize, len(b))
	}
	return util.CopyBytes(b), nil
}
