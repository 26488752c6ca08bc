package util

import (
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2idParams configures Argon2id key derivation.
type Argon2idParams struct {
	Time        uint32 `json:"time" yaml:"time"`
	MemoryKiB   uint32 `json:"memory" yaml:"memory"`
	Parallelism uint8  `json:"parallelism" yaml:"parallelism"`
	KeyLen      uint32 `json:"key_len" yaml:"key_len"`
}

// Named KDF profiles for different deployment scenarios.
const (
	KDFProfileInteractive = "interactive" // sub-second, dev/testing
	KDFProfileModerate    = "moderate"    // production default
	KDFProfileSensitive   = "sensitive"   // high-value secrets
)

func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		Time:        1,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
		KeyLen:      32,
	}
}

// Argon2idProfile returns the parameters for a named profile.
func Argon2idProfile(name string) (Argon2idParams, error) {
	switch name {
	case KDFProfileInteractive:
		return Argon2idParams{Time: 1, MemoryKiB: 16 * 1024, Parallelism: 2, KeyLen: 32}, nil
	case KDFProfileModerate, "":
		return DefaultArgon2idParams(), nil
	case KDFProfileSensitive:
		return Argon2idParams{Time: 3, MemoryKiB: 256 * 1024, Parallelism: 4, KeyLen: 32}, nil
	}
	return Argon2idParams{}, fmt.Errorf("unknown KDF profile %q", name)
}

// ValidateArgon2idParams checks that the given parameters meet the minimum
// acceptable thresholds.
func ValidateArgon2idParams(p Argon2idParams) error {
	if p.Time < 1 {
		return fmt.Errorf("argon2id time cost must be at least 1")
	}
	if p.MemoryKiB < 8*1024 {
		return fmt.Errorf("argon2id memory cost must be at least 8 MiB")
	}
	if p.Parallelism < 1 {
		return fmt.Errorf("argon2id parallelism must be at least 1")
	}
	if p.KeyLen != 32 {
		return fmt.Errorf("argon2id key length must be 32 bytes")
	}
	return nil
}

// DeriveArgon2idKey derives a 32-byte key from the passphrase. The passphrase
// must already be NFKD-normalized if it may contain Unicode.
func DeriveArgon2idKey(passphrase string, salt []byte, params Argon2idParams) ([]byte, error) {
	if err := ValidateArgon2idParams(params); err != nil {
		return nil, err
	}
	key := argon2.IDKey([]byte(passphrase), salt, params.Time, params.MemoryKiB, params.Parallelism, params.KeyLen)
	return key, nil
}
