package auth

import "crypto/subtle"

// SecureCompare reports whether a and b are equal without leaking, through
// timing, the position of the first differing byte. A length mismatch
// returns false after the length check alone. Every credential comparison
// in this package goes through here; plain == on secrets is a bug.
func SecureCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// SecureCompareString is SecureCompare for strings.
func SecureCompareString(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
