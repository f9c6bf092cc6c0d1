package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topcharger/pkg/platform/middleware/metadata"
	tu "topcharger/pkg/testutil"
)

func newClockedWindow(limit int, window time.Duration) (*SlidingWindow, *time.Time) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	w := NewSlidingWindow(limit, window)
	w.now = func() time.Time { return now }
	return w, &now
}

func TestSlidingWindow(t *testing.T) {
	ctx := context.Background()
	w, now := newClockedWindow(2, time.Minute)

	r, err := w.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, r.Allowed)
	assert.Equal(t, 1, r.Remaining)

	*now = now.Add(10 * time.Second)
	r, _ = w.Allow(ctx, "a")
	assert.True(t, r.Allowed)
	assert.Equal(t, 0, r.Remaining)

	r, _ = w.Allow(ctx, "a")
	assert.False(t, r.Allowed)
	assert.Equal(t, now.Add(50*time.Second), r.ResetAt)
	assert.Equal(t, 51*time.Second, r.RetryAfter(*now))

	r, _ = w.Allow(ctx, "b")
	assert.True(t, r.Allowed, "keys are independent")

	*now = now.Add(51 * time.Second)
	r, _ = w.Allow(ctx, "a")
	assert.True(t, r.Allowed, "first request slid out of the window")
}

func TestSlidingWindowPrune(t *testing.T) {
	w, now := newClockedWindow(1, time.Minute)
	_, _ = w.Allow(context.Background(), "a")
	w.Prune()
	assert.Equal(t, 1, w.size())

	*now = now.Add(2 * time.Minute)
	w.Prune()
	assert.Equal(t, 0, w.size())
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (Result, error) {
	return Result{}, errors.New("store offline")
}

func TestMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	t.Run("rejects the caller over budget", func(t *testing.T) {
		w, _ := newClockedWindow(1, time.Minute)
		m := NewMetrics(prometheus.NewRegistry())
		h := Middleware(w, m, logger)(ok)

		rr := tu.DoRequest(h, tu.WithAuthority(tu.NewRequest(t, http.MethodPost, "/v1/x"), "driver-wallet"))
		tu.AssertStatus(t, rr, http.StatusNoContent)
		assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

		rr = tu.DoRequest(h, tu.WithAuthority(tu.NewRequest(t, http.MethodPost, "/v1/x"), "driver-wallet"))
		tu.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limited")
		assert.NotEmpty(t, rr.Header().Get("Retry-After"))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejected))

		rr = tu.DoRequest(h, tu.WithAuthority(tu.NewRequest(t, http.MethodPost, "/v1/x"), "host-wallet"))
		tu.AssertStatus(t, rr, http.StatusNoContent)
	})

	t.Run("fails open", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		rr := httptest.NewRecorder()
		Middleware(brokenLimiter{}, m, logger)(ok).ServeHTTP(rr, tu.NewRequest(t, http.MethodPost, "/v1/x"))
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckErrors))
	})
}

func TestCallerKey(t *testing.T) {
	req := tu.NewRequest(t, http.MethodPost, "/")
	req.RemoteAddr = "203.0.113.7:5555"
	assert.Equal(t, "ip:203.0.113.7", callerKey(req))
	assert.Equal(t, "authority:svc", callerKey(tu.WithAuthority(req, "svc")))

	proxied := req.WithContext(metadata.WithClientMetadata(req.Context(), "198.51.100.4", ""))
	assert.Equal(t, "ip:198.51.100.4", callerKey(proxied))
}
