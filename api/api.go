// Package api exposes the gateway's HTTP surface: login and logout, the
// authenticated session probe, and the admin channel, all fronted by the
// auth package's ordered authenticator and named rate-limit buckets.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"net/netip"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/rvaughn/gatewarden/auth"
	"github.com/rvaughn/gatewarden/storage"
	"github.com/rvaughn/gatewarden/vault"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	authn    *auth.Authenticator
	sessions *auth.SessionStore
	vault    *vault.Vault
	factory  *vault.Factory
	limiter  *auth.RateLimiter
	derive   vault.KeyDeriver
	audit    *auditLogger

	trustedProxies []netip.Prefix
	production     bool

	// option staging; folded into audit at construction
	auditStoreOpt storage.Store
	alertFnOpt    AlertFunc
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithAuditStore persists audit events to the given trail.
func WithAuditStore(store storage.Store) Option {
	return func(a *API) {
		a.auditStoreOpt = store
	}
}

// WithAlertFunc installs an anomaly alert callback.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.alertFnOpt = fn
	}
}

// WithTrustedProxies sets the proxy prefixes whose forwarding headers are
// honored for client IP extraction.
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(a *API) {
		a.trustedProxies = prefixes
	}
}

// WithProduction marks the deployment as production; session cookies are
// then always sent with the Secure attribute.
func WithProduction(production bool) Option {
	return func(a *API) {
		a.production = production
	}
}

// New creates a new API instance. derive is the KDF used to turn a login
// password into the caller's signing key material.
func New(authn *auth.Authenticator, sessions *auth.SessionStore, v *vault.Vault, factory *vault.Factory, limiter *auth.RateLimiter, derive vault.KeyDeriver, opts ...Option) *API {
	a := &API{
		authn:    authn,
		sessions: sessions,
		vault:    v,
		factory:  factory,
		limiter:  limiter,
		derive:   derive,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	a.audit.store = a.auditStoreOpt
	a.audit.metrics = newMetricsCollector(a.alertFnOpt)
	return a
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Get("/healthz", a.Health)
	r.Post("/auth/login", a.Login)
	r.Post("/auth/logout", a.Logout)
	r.With(a.RequireAuth).Get("/auth/session", a.Session)

	r.Route("/admin", func(r chi.Router) {
		r.Use(a.RequireAdmin)
		r.Get("/sessions", a.AdminSessions)
		r.Delete("/sessions", a.AdminRevokeSessions)
		r.Get("/audit", a.AdminAudit)
	})

	return r
}

// Health reports liveness.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
