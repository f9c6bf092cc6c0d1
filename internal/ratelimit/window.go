// Package ratelimit caps how often one caller may hit the write endpoints.
// Each key gets a sliding window of request timestamps; a request is
// allowed while fewer than Limit timestamps fall inside the window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result describes the caller's window after a check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long a rejected caller should wait, rounded up to a
// whole second.
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d <= 0 {
		return time.Second
	}
	return d.Truncate(time.Second) + time.Second
}

// Limiter decides whether the request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// SlidingWindow is an in-process Limiter.
//
// TODO: back windows with Redis so replicas behind a load balancer share
// one budget per caller.
type SlidingWindow struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string][]time.Time
	now     func() time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:   limit,
		window:  window,
		buckets: make(map[string][]time.Time),
		now:     time.Now,
	}
}

func (s *SlidingWindow) Allow(_ context.Context, key string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stamps := expire(s.buckets[key], now.Add(-s.window))
	if len(stamps) >= s.limit {
		s.buckets[key] = stamps
		return Result{Limit: s.limit, ResetAt: stamps[0].Add(s.window)}, nil
	}

	stamps = append(stamps, now)
	s.buckets[key] = stamps
	return Result{
		Allowed:   true,
		Limit:     s.limit,
		Remaining: s.limit - len(stamps),
		ResetAt:   stamps[0].Add(s.window),
	}, nil
}

// Prune drops keys whose windows have fully expired.
func (s *SlidingWindow) Prune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.window)
	for key, stamps := range s.buckets {
		if len(expire(stamps, cutoff)) == 0 {
			delete(s.buckets, key)
		}
	}
}

// Run prunes every interval until ctx is cancelled.
func (s *SlidingWindow) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Prune()
		}
	}
}

func (s *SlidingWindow) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// expire drops timestamps at or before cutoff. stamps is sorted.
func expire(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	return stamps[i:]
}
