package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"topcharger/internal/authority"
	dErrors "topcharger/pkg/domain-errors"
	"topcharger/pkg/platform/httputil"
	"topcharger/pkg/platform/middleware/metadata"
	request "topcharger/pkg/platform/middleware/request"
)

// Middleware limits requests per verified authority, or per client IP for
// anonymous requests. It must run after the auth middleware. A failing
// limiter lets the request through.
func Middleware(limiter Limiter, metrics *Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := callerKey(r)

			result, err := limiter.Allow(ctx, key)
			if err != nil {
				if metrics != nil {
					metrics.CheckErrors.Inc()
				}
				logger.ErrorContext(ctx, "rate limit check failed",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				if metrics != nil {
					metrics.Rejected.Inc()
				}
				logger.WarnContext(ctx, "rate limit exceeded",
					"key", key,
					"request_id", request.GetRequestID(ctx),
				)
				h.Set("Retry-After", strconv.Itoa(int(result.RetryAfter(time.Now()).Seconds())))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, retry later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func callerKey(r *http.Request) string {
	if caller, ok := authority.FromContext(r.Context()); ok {
		return "authority:" + caller.Authority.String()
	}
	if ip := metadata.GetClientIP(r.Context()); ip != "" {
		return "ip:" + ip
	}
	return "ip:" + metadata.ClientIPFromRequest(r, false)
}
