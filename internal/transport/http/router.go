// Package httptransport assembles the public HTTP API: shared middleware,
// the per-domain handlers and the health probe. Handlers stay thin and
// delegate to domain services.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	chargerhandler "topcharger/internal/charger/handler"
	identityhandler "topcharger/internal/identity/handler"
	matchinghandler "topcharger/internal/matching/handler"
	"topcharger/internal/platform/metrics"
	"topcharger/internal/platform/middleware"
	"topcharger/internal/ratelimit"
	dErrors "topcharger/pkg/domain-errors"
	"topcharger/pkg/platform/httputil"
	authmw "topcharger/pkg/platform/middleware/auth"
	"topcharger/pkg/platform/middleware/metadata"
	request "topcharger/pkg/platform/middleware/request"
	"topcharger/pkg/platform/middleware/requesttime"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Dependencies is everything the router needs. Metrics and Health are
// optional.
type Dependencies struct {
	Users          identityhandler.Service
	Chargers       chargerhandler.Service
	Matches        matchinghandler.Service
	Verifier       authmw.TokenVerifier
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Health         HealthCheck
	RequestTimeout time.Duration
	// TrustProxy takes the client address from X-Forwarded-For.
	TrustProxy bool
	// WriteLimiter, when set, caps authenticated writes per caller.
	WriteLimiter     ratelimit.Limiter
	RateLimitMetrics *ratelimit.Metrics
}

// NewRouter wires every public endpoint behind the shared middleware chain.
func NewRouter(deps Dependencies) http.Handler {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(deps.Logger))
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata(deps.TrustProxy))
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(deps.Logger))
	r.Use(request.Timeout(timeout))
	if deps.Metrics != nil {
		r.Use(middleware.Latency(deps.Metrics))
	}
	r.Use(request.ContentTypeJSON)

	r.Get("/health", health(deps.Health))

	requireAuth := authmw.RequireAuth(deps.Verifier, deps.Logger)
	if deps.WriteLimiter != nil {
		limit := ratelimit.Middleware(deps.WriteLimiter, deps.RateLimitMetrics, deps.Logger)
		authOnly := requireAuth
		requireAuth = func(next http.Handler) http.Handler {
			return authOnly(limit(next))
		}
	}
	identityhandler.New(deps.Users, deps.Logger).Register(r, requireAuth)
	chargerhandler.New(deps.Chargers, deps.Logger).Register(r, requireAuth)
	matchinghandler.New(deps.Matches, deps.Logger).Register(r, requireAuth)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
	})
	return r
}

func health(check HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"error":  err.Error(),
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
