package auth

import "errors"

var (
	// ErrSessionsDisabled indicates no session secret is configured.
	// Sessions are an opt-in feature; callers degrade instead of failing.
	ErrSessionsDisabled = errors.New("sessions disabled: no session secret configured")
	// ErrNoSession indicates the session identifier is unknown.
	ErrNoSession = errors.New("no such session")
	// ErrSessionExpired indicates the session exceeded its lifetime.
	ErrSessionExpired = errors.New("session expired")
)
