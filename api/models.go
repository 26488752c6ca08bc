package api

import "github.com/rvaughn/gatewarden/storage"

// LoginRequest is the JSON body for POST /auth/login. Either apiKey or the
// username/password pair must be set.
type LoginRequest struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	APIKey   string `json:"apiKey,omitempty"`
}

// LoginResponse is returned from POST /auth/login, success or failure.
// SessionID and ExpiresIn are only set for the password flow; API-key
// logins carry no session. Error is only set when Success is false.
type LoginResponse struct {
	Success   bool   `json:"success"`
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
	Error     string `json:"error,omitempty"`
}

// LogoutResponse is returned from POST /auth/logout.
type LogoutResponse struct {
	Success bool `json:"success"`
}

// SessionResponse is returned from GET /auth/session.
type SessionResponse struct {
	UserID string `json:"userId"`
	Method string `json:"method"`
}

// ErrorResponse is the body of every error status. AuthMethods lists the
// configured mechanisms on 401 denials, never which credential failed.
type ErrorResponse struct {
	Error       string   `json:"error"`
	AuthMethods []string `json:"authMethods,omitempty"`
}

// AdminSessionsResponse is returned from GET /admin/sessions.
type AdminSessionsResponse struct {
	Sessions int `json:"sessions"`
}

// RevokeSessionsResponse is returned from DELETE /admin/sessions.
type RevokeSessionsResponse struct {
	Revoked int `json:"revoked"`
}

// AuditListResponse is returned from GET /admin/audit, newest entry first.
type AuditListResponse struct {
	Entries []storage.Entry `json:"entries"`
}

// HealthResponse is returned from GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}
