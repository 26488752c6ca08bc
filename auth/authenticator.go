// Package auth implements request authentication for the signing gateway:
// constant-time credential checks, named rate-limit buckets, TTL sessions,
// and the ordered multi-method authenticator that ties them together.
package auth

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

// Credential input locations recognized on any authenticated request.
const (
	HeaderAPIKey    = "X-API-Key"
	HeaderSessionID = "X-Session-ID"
	HeaderAdmin     = "X-Admin-Secret"
	SessionCookie   = "session"
)

// Method names an authentication mechanism, as reported to clients in
// AuthResult.Methods and logged by the audit trail.
type Method string

const (
	MethodAPIKey  Method = "apikey"
	MethodBasic   Method = "basic"
	MethodSession Method = "session"
	MethodNone    Method = "none"
)

// AnonymousUser is the identity assigned when authentication is disabled.
const AnonymousUser = "anonymous"

// APIKeyUser is the identity assigned to API-key authenticated requests.
const APIKeyUser = "api"

// DenyReason classifies a terminal denial.
type DenyReason string

const (
	DenyRateLimited  DenyReason = "rate_limited"
	DenyAuthRequired DenyReason = "auth_required"
)

// Result is the single unified outcome of request authentication.
// Exactly one of Authenticated or Reason is meaningful. Methods lists the
// mechanisms actually configured; guidance for the client, never a hint
// about which presented credential was wrong.
type Result struct {
	Authenticated bool
	UserID        string
	Method        Method
	Reason        DenyReason
	RetryAfter    time.Duration
	Methods       []Method
}

// Config is the immutable credential configuration the authenticator
// compares against. It is read once at startup.
type Config struct {
	Enabled       bool
	APIKey        string
	BasicUser     string
	BasicPassword string
	AdminSecret   string
}

// Authenticator tries the configured methods against an incoming request
// in fixed priority order: API key, basic credentials, session token. The
// first success wins; a caller presenting several methods never has to
// satisfy more than one.
type Authenticator struct {
	cfg      Config
	sessions *SessionStore
	limiter  *RateLimiter
}

func NewAuthenticator(cfg Config, sessions *SessionStore, limiter *RateLimiter) *Authenticator {
	return &Authenticator{cfg: cfg, sessions: sessions, limiter: limiter}
}

// ConfiguredMethods returns the methods a client could use, in priority order.
func (a *Authenticator) ConfiguredMethods() []Method {
	var methods []Method
	if a.cfg.APIKey != "" {
		methods = append(methods, MethodAPIKey)
	}
	if a.cfg.BasicUser != "" {
		methods = append(methods, MethodBasic)
	}
	if a.sessions.Enabled() {
		methods = append(methods, MethodSession)
	}
	return methods
}

// Authenticate runs the per-request state machine. clientID is the caller's
// rate-limit identity, derived externally (trusted-proxy-aware extraction
// lives in the HTTP layer). The default bucket is checked before any
// credential parsing so brute-force traffic is rejected cheaply.
func (a *Authenticator) Authenticate(r *http.Request, clientID string) Result {
	if !a.cfg.Enabled {
		return Result{Authenticated: true, UserID: AnonymousUser, Method: MethodNone}
	}

	if d := a.limiter.Check(BucketDefault, clientID); !d.Allowed {
		return Result{Reason: DenyRateLimited, RetryAfter: d.RetryAfter}
	}

	if a.cfg.APIKey != "" {
		if candidate := apiKeyFromRequest(r); candidate != "" {
			if SecureCompareString(candidate, a.cfg.APIKey) {
				return Result{Authenticated: true, UserID: APIKeyUser, Method: MethodAPIKey}
			}
		}
	}

	if a.cfg.BasicUser != "" {
		if user, pass, ok := basicCredentials(r); ok {
			// Both comparisons always run; a short-circuit on the username
			// would reveal valid usernames through timing.
			userOK := SecureCompareString(user, a.cfg.BasicUser)
			passOK := SecureCompareString(pass, a.cfg.BasicPassword)
			if userOK && passOK {
				return Result{Authenticated: true, UserID: a.cfg.BasicUser, Method: MethodBasic}
			}
		}
	}

	if token := SessionFromRequest(r); token != "" {
		if userID, err := a.sessions.Authenticate(token); err == nil {
			return Result{Authenticated: true, UserID: userID, Method: MethodSession}
		}
	}

	return Result{Reason: DenyAuthRequired, Methods: a.ConfiguredMethods()}
}

// VerifyAdminSecret checks the deliberately separate admin channel. It is
// not part of the ordered method list; privileged routes call it directly.
// An unconfigured admin secret never matches.
func (a *Authenticator) VerifyAdminSecret(candidate string) bool {
	if a.cfg.AdminSecret == "" || candidate == "" {
		return false
	}
	return SecureCompareString(candidate, a.cfg.AdminSecret)
}

// BasicConfigured reports whether basic credentials are configured; the
// HTTP layer uses this to emit WWW-Authenticate on denials.
func (a *Authenticator) BasicConfigured() bool {
	return a.cfg.BasicUser != ""
}

// CheckAPIKey verifies a candidate against the configured API key. An
// unconfigured key never matches.
func (a *Authenticator) CheckAPIKey(candidate string) bool {
	if a.cfg.APIKey == "" || candidate == "" {
		return false
	}
	return SecureCompareString(candidate, a.cfg.APIKey)
}

// CheckPassword verifies a username/password pair against the configured
// basic credentials, for the login endpoint. Both comparisons always run.
func (a *Authenticator) CheckPassword(user, pass string) bool {
	if a.cfg.BasicUser == "" {
		return false
	}
	userOK := SecureCompareString(user, a.cfg.BasicUser)
	passOK := SecureCompareString(pass, a.cfg.BasicPassword)
	return userOK && passOK
}

// apiKeyFromRequest extracts an API-key candidate from the X-API-Key header
// or a bearer-style Authorization header.
func apiKeyFromRequest(r *http.Request) string {
	if key := r.Header.Get(HeaderAPIKey); key != "" {
		return key
	}
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	return ""
}

// basicCredentials parses an RFC 7617 Basic authorization header, splitting
// the decoded pair on the first colon only.
func basicCredentials(r *http.Request) (user, pass string, ok bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Basic ") {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(authz, "Basic "))
	if err != nil {
		return "", "", false
	}
	user, pass, ok = strings.Cut(string(decoded), ":")
	return user, pass, ok
}

// SessionFromRequest extracts a session identifier from the dedicated
// header or the session cookie. The header wins when both are present.
func SessionFromRequest(r *http.Request) string {
	if id := r.Header.Get(HeaderSessionID); id != "" {
		return id
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}
