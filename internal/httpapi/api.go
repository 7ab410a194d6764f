// Package httpapi is the HTTP surface of the users service: routing,
// request decoding, error mapping and the authentication and authorization
// middleware.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"ecotrack.app/internal/auth"
	"ecotrack.app/internal/obs"
)

// ReadyProbe checks dependencies for the readiness endpoint.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options tunes the HTTP layer.
type Options struct {
	Version string
	// PublicRequestsPerMin limits unauthenticated endpoints per client IP.
	PublicRequestsPerMin int
	// LoginMaxAttempts / LoginWindow form the stricter login limiter.
	LoginMaxAttempts int
	LoginWindow      time.Duration
	// VerboseErrors includes internal detail in 500 responses. Never
	// enabled in production.
	VerboseErrors bool
}

func (o Options) withDefaults() Options {
	if o.Version == "" {
		o.Version = "dev"
	}
	if o.PublicRequestsPerMin <= 0 {
		o.PublicRequestsPerMin = 100
	}
	if o.LoginMaxAttempts <= 0 {
		o.LoginMaxAttempts = 5
	}
	if o.LoginWindow <= 0 {
		o.LoginWindow = 15 * time.Minute
	}
	return o
}

// API is the users-service HTTP layer.
type API struct {
	svc   *auth.Service
	codec *auth.Codec
	probe ReadyProbe
	log   zerolog.Logger
	opts  Options
	mux   chi.Router
}

// New wires the router.
func New(svc *auth.Service, codec *auth.Codec, probe ReadyProbe, log zerolog.Logger, opts Options) *API {
	a := &API{
		svc:   svc,
		codec: codec,
		probe: probe,
		log:   log,
		opts:  opts.withDefaults(),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(log))
	r.Use(Recover(log))
	r.Use(SecurityHeaders)
	r.Use(obs.Instrument)

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	publicLimiter := RateLimitPerMinute(a.opts.PublicRequestsPerMin)
	loginLimiter := RateLimit(a.opts.LoginMaxAttempts, a.opts.LoginWindow)

	r.Route("/auth", func(r chi.Router) {
		r.With(publicLimiter).Post("/register", a.handleRegister)
		r.With(loginLimiter).Post("/login", a.handleLogin)
		r.With(publicLimiter).Post("/refresh", a.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(a.Authenticate)
			r.Get("/profile", a.handleProfile)
			r.Post("/logout", a.handleLogout)
			r.Post("/logout-all", a.handleLogoutAll)
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(a.Authenticate)
		r.Put("/profile", a.handleUpdateProfile)
		r.Post("/change-password", a.handleChangePassword)
		r.With(RequireAnyPermission("users:read")).Get("/", a.handleListUsers)
		r.With(RequireRole(auth.RoleAdmin)).Delete("/{id}", a.handleDeleteUser)
		r.With(RequireRole(auth.RoleAdmin)).Post("/{id}/deactivate", a.handleDeactivateUser)
	})

	r.Route("/audit", func(r chi.Router) {
		r.Use(a.Authenticate)
		r.With(RequireRole(auth.RoleAdmin)).Get("/logins", a.handleRecentLogins)
	})

	a.mux = r
	return a
}

// Handler returns the root handler.
func (a *API) Handler() http.Handler {
	return a.mux
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "ecotrack-users",
		"version": a.opts.Version,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := a.probe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
