package vault

import "errors"

var (
	// ErrNoKey indicates no derived key is available for the request. This
	// is an expected, recoverable state; handlers degrade to requiring
	// fresh credentials, they do not treat it as a crash.
	ErrNoKey = errors.New("no derived key available")
	// ErrRehydrationExhausted indicates the per-session rehydration quota
	// was reached. It stays exhausted until logout/re-login drops the entry.
	ErrRehydrationExhausted = errors.New("rehydration quota exhausted")
	// ErrInvalidKey indicates malformed derived-key input. The message never
	// carries the rejected value.
	ErrInvalidKey = errors.New("invalid derived key")
)
