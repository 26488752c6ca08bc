package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/rvaughn/gatewarden/auth"
	"github.com/rvaughn/gatewarden/internal/util"
)

// Login handles POST /auth/login. An API key yields a stateless success;
// a username/password pair creates a session, derives the caller's key and
// seeds the vault with both the key and the password for later
// rehydration. All failures share one message so the response never
// distinguishes a bad username from a bad password.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	clientIP := a.extractClientIP(r)

	if d := a.limiter.Check(auth.BucketRecovery, clientIP); !d.Allowed {
		a.audit.log(AuditLoginRateLimited, auditRecord{clientIP: clientIP})
		writeRateLimited(w, d.RetryAfter)
		return
	}

	if req.APIKey != "" {
		if !a.authn.CheckAPIKey(req.APIKey) {
			a.audit.log(AuditLoginFailure, auditRecord{clientIP: clientIP, method: string(auth.MethodAPIKey)})
			writeLoginFailure(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		a.audit.log(AuditLoginSuccess, auditRecord{userID: auth.APIKeyUser, method: string(auth.MethodAPIKey), clientIP: clientIP})
		writeJSON(w, http.StatusOK, LoginResponse{Success: true, UserID: auth.APIKeyUser})
		return
	}

	if req.Username == "" || req.Password == "" {
		writeLoginFailure(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if !a.authn.CheckPassword(req.Username, req.Password) {
		a.audit.log(AuditLoginFailure, auditRecord{clientIP: clientIP, method: string(auth.MethodBasic)})
		writeLoginFailure(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sessionID, err := a.sessions.Create(req.Username, clientIP)
	if err != nil {
		if errors.Is(err, auth.ErrSessionsDisabled) {
			writeLoginFailure(w, http.StatusServiceUnavailable, "session login unavailable")
			return
		}
		writeLoginFailure(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	// Passwords are normalized before key derivation so visually identical
	// inputs derive the same key.
	password := []byte(util.Normalize(req.Password))
	key, err := a.derive(r.Context(), password)
	if err != nil {
		a.sessions.Destroy(sessionID)
		writeLoginFailure(w, http.StatusInternalServerError, "key derivation failed")
		return
	}
	if err := a.vault.StoreKey(sessionID, key); err != nil {
		a.sessions.Destroy(sessionID)
		writeLoginFailure(w, http.StatusInternalServerError, "failed to store key")
		return
	}
	// StorePassword moves the buffer into an enclave and wipes it, so the
	// normalized password must go in after key derivation.
	a.vault.StorePassword(sessionID, password)

	timeout := a.sessions.Timeout()
	a.writeSessionCookie(w, r, sessionID, timeout)
	a.audit.log(AuditLoginSuccess, auditRecord{userID: req.Username, method: string(auth.MethodSession), clientIP: clientIP})
	writeJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		UserID:    req.Username,
		SessionID: sessionID,
		ExpiresIn: int(timeout.Seconds()),
	})
}

// Logout handles POST /auth/logout. It destroys the presented session and
// its vault entry, clears the cookie, and always answers 200 so repeated
// logouts are harmless.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	clientIP := a.extractClientIP(r)
	if token := auth.SessionFromRequest(r); token != "" {
		a.sessions.Destroy(token)
		a.vault.Drop(token)
		a.audit.log(AuditLogout, auditRecord{clientIP: clientIP})
	}
	a.clearSessionCookie(w, r)
	writeJSON(w, http.StatusOK, LogoutResponse{Success: true})
}

// Session handles GET /auth/session: the authenticated whoami probe.
func (a *API) Session(w http.ResponseWriter, r *http.Request) {
	ra := RequestAuthFrom(r.Context())
	if ra == nil {
		writeError(w, http.StatusInternalServerError, "missing request auth")
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{
		UserID: ra.UserID,
		Method: string(MethodFrom(r.Context())),
	})
}

func (a *API) writeSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string, timeout time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.production || requestIsSecure(r, a.trustedProxies),
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(timeout.Seconds()),
	})
}

func (a *API) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.production || requestIsSecure(r, a.trustedProxies),
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}
