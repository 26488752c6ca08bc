package api

import (
	"context"
	"net/http"

	"github.com/rvaughn/gatewarden/auth"
	"github.com/rvaughn/gatewarden/vault"
)

// HeaderDerivedKey lets a caller supply pre-derived key material directly,
// as 64 hex characters (optionally 0x-prefixed).
const HeaderDerivedKey = "X-Derived-Key"

type ctxKey int

const (
	ctxKeyRequestAuth ctxKey = iota
	ctxKeyMethod
)

// RequestAuthFrom returns the request's capability object, or nil outside
// an authenticated route.
func RequestAuthFrom(ctx context.Context) *vault.RequestAuth {
	ra, _ := ctx.Value(ctxKeyRequestAuth).(*vault.RequestAuth)
	return ra
}

// MethodFrom returns the method that authenticated the request.
func MethodFrom(ctx context.Context) auth.Method {
	m, _ := ctx.Value(ctxKeyMethod).(auth.Method)
	return m
}

// RequireAuth authenticates the request and installs a RequestAuth in the
// context. Secrets are destroyed when the handler returns; the factory's
// GC cleanup only covers paths that never get that far.
func (a *API) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := a.extractClientIP(r)
		res := a.authn.Authenticate(r, clientIP)
		if !res.Authenticated {
			switch res.Reason {
			case auth.DenyRateLimited:
				a.audit.log(AuditRateLimited, auditRecord{clientIP: clientIP})
				writeRateLimited(w, res.RetryAfter)
			default:
				a.audit.log(AuditAuthDenied, auditRecord{clientIP: clientIP})
				a.writeUnauthorized(w, res.Methods)
			}
			return
		}

		params := vault.Params{
			UserID:        res.UserID,
			Authenticated: true,
		}
		if hx := r.Header.Get(HeaderDerivedKey); hx != "" {
			params.DerivedKeyHex = hx
		}
		if res.Method == auth.MethodSession {
			sessionID := auth.SessionFromRequest(r)
			params.SessionID = sessionID
			params.HasPassword = a.vault.HasPassword(sessionID)
		}

		ra, err := a.factory.New(params)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid derived key")
			return
		}
		defer ra.DestroySecrets()

		ctx := context.WithValue(r.Context(), ctxKeyRequestAuth, ra)
		ctx = context.WithValue(ctx, ctxKeyMethod, res.Method)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin gates the privileged routes behind the separate admin
// secret and the admin rate-limit bucket. The regular method chain never
// grants admin access.
func (a *API) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := a.extractClientIP(r)

		if d := a.limiter.Check(auth.BucketAdmin, clientIP); !d.Allowed {
			a.audit.log(AuditRateLimited, auditRecord{clientIP: clientIP, detail: "admin"})
			writeRateLimited(w, d.RetryAfter)
			return
		}

		if !a.authn.VerifyAdminSecret(r.Header.Get(auth.HeaderAdmin)) {
			a.audit.log(AuditAdminDenied, auditRecord{clientIP: clientIP})
			writeError(w, http.StatusUnauthorized, "admin authorization required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets standard security response headers on every
// response. It should be placed early in the middleware chain.
func (a *API) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if requestIsSecure(r, a.trustedProxies) {
			w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}
