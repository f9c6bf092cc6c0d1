package audit

import (
	"context"
	"log/slog"
)

// LogStore writes events as structured log lines. It is the default sink
// when no broker is configured.
type LogStore struct {
	logger *slog.Logger
}

func NewLogStore(logger *slog.Logger) *LogStore {
	return &LogStore{logger: logger}
}

func (s *LogStore) Append(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "audit",
		"category", event.Category,
		"action", event.Action,
		"subject", event.Subject,
		"actor", event.Actor,
		"resource", event.Resource,
		"decision", event.Decision,
		"reason", event.Reason,
		"request_id", event.RequestID,
		"timestamp", event.Timestamp,
	)
	return nil
}
