// Package uuid wraps the external UUID dependency behind a single call site.
package uuid

import "github.com/google/uuid"

// New returns a random (version 4) UUID string.
func New() string {
	return uuid.NewString()
}
