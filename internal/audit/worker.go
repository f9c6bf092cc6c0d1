package audit

import (
	"context"
	"errors"
	"log/slog"
)

// ErrQueueFull is returned by QueueStore.Append when the buffer is full.
var ErrQueueFull = errors.New("audit queue full")

// QueueStore hands events to a Worker through a buffered channel so slow
// sinks never sit on the request path.
type QueueStore struct {
	queue chan Event
}

// NewQueueStore creates a queue with room for size events.
func NewQueueStore(size int) *QueueStore {
	return &QueueStore{queue: make(chan Event, size)}
}

func (q *QueueStore) Append(_ context.Context, event Event) error {
	select {
	case q.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Inbox is the receive side consumed by a Worker.
func (q *QueueStore) Inbox() <-chan Event {
	return q.queue
}

// Worker consumes audit events from a channel and persists them.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run drains the inbox until ctx is cancelled. A failed append is logged
// and the event dropped; the worker keeps running.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil && w.logger != nil {
				w.logger.ErrorContext(ctx, "failed to persist audit event",
					"error", err,
					"action", event.Action,
					"request_id", event.RequestID,
				)
			}
		}
	}
}
