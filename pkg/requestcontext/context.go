// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them without importing
// net/http.
//
// Usage in services (read values):
//
//	caller := requestcontext.Authority(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithAuthority(ctx, "driver-wallet")
package requestcontext

import (
	"context"
	"time"

	"topcharger/pkg/domain"
)

type (
	authorityKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyAuthority   = authorityKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Authority retrieves the verified caller authority from the context.
// Returns the empty authority if the request was not authenticated.
func Authority(ctx context.Context) domain.Authority {
	if a, ok := ctx.Value(ContextKeyAuthority).(domain.Authority); ok {
		return a
	}
	return ""
}

// WithAuthority injects a verified caller authority into the context.
func WithAuthority(ctx context.Context, authority domain.Authority) context.Context {
	return context.WithValue(ctx, ContextKeyAuthority, authority)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context so every timestamp
// written during one request agrees.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
