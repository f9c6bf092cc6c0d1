package audit

import (
	"context"
	"log/slog"

	"topcharger/pkg/platform/circuit"
)

// FallbackStore writes to primary while it is healthy and diverts events
// to fallback when a write fails or the breaker is open, so an outage of
// the broker never loses an event outright.
type FallbackStore struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewFallbackStore(primary, fallback Store, breaker *circuit.Breaker, logger *slog.Logger) *FallbackStore {
	return &FallbackStore{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (s *FallbackStore) Append(ctx context.Context, event Event) error {
	if s.breaker.AllowPrimary() {
		err := s.primary.Append(ctx, event)
		if err == nil {
			if _, change := s.breaker.RecordSuccess(); change.Closed && s.logger != nil {
				s.logger.InfoContext(ctx, "audit sink recovered", "sink", s.breaker.Name())
			}
			return nil
		}
		if _, change := s.breaker.RecordFailure(); change.Opened && s.logger != nil {
			s.logger.WarnContext(ctx, "audit sink failing, diverting to fallback",
				"sink", s.breaker.Name(),
				"error", err,
			)
		}
	}
	return s.fallback.Append(ctx, event)
}
