// Package gateway is the thin reverse proxy in front of the services. It
// owns no business logic: it forwards by path prefix, rate-limits public
// traffic and reports upstream failures as 502.
package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"ecotrack.app/internal/httpapi"
)

// Options configures the gateway.
type Options struct {
	// UsersServiceURL receives /auth, /users and /audit traffic.
	UsersServiceURL string
	// GamificationURL receives /gamification traffic. Optional; when
	// unset those routes answer 502.
	GamificationURL string
	// PublicRequestsPerMin limits traffic per client IP.
	PublicRequestsPerMin int
}

// Gateway proxies requests to the backing services.
type Gateway struct {
	mux chi.Router
	log zerolog.Logger
}

// New builds the proxy route table.
func New(log zerolog.Logger, opts Options) (*Gateway, error) {
	users, err := newProxy(opts.UsersServiceURL, log)
	if err != nil {
		return nil, fmt.Errorf("users service: %w", err)
	}

	g := &Gateway{log: log}

	r := chi.NewRouter()
	r.Use(httpapi.RequestID)
	r.Use(httpapi.RequestLogger(log))
	r.Use(httpapi.Recover(log))
	r.Use(httpapi.SecurityHeaders)
	if opts.PublicRequestsPerMin > 0 {
		r.Use(httpapi.RateLimitPerMinute(opts.PublicRequestsPerMin))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"status":"ok","service":"ecotrack-gateway"}`))
	})

	r.Handle("/auth/*", users)
	r.Handle("/users", users)
	r.Handle("/users/*", users)
	r.Handle("/audit/*", users)

	if opts.GamificationURL != "" {
		gamification, err := newProxy(opts.GamificationURL, log)
		if err != nil {
			return nil, fmt.Errorf("gamification service: %w", err)
		}
		r.Handle("/gamification/*", gamification)
	} else {
		r.Handle("/gamification/*", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeProxyError(w, "gamification service is not configured")
		}))
	}

	g.mux = r
	return g, nil
}

// Handler returns the root handler.
func (g *Gateway) Handler() http.Handler {
	return g.mux
}

func newProxy(rawURL string, log zerolog.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL %q", rawURL)
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error().Err(err).Str("path", r.URL.Path).Str("upstream", target.Host).Msg("upstream request failed")
		writeProxyError(w, "upstream service unavailable")
	}
	return proxy, nil
}

func writeProxyError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusBadGateway)
	_, _ = fmt.Fprintf(w, `{"error":%q}`, msg)
}
