package audit

import (
	"context"

	"topcharger/pkg/requestcontext"
)

// Store persists audit events. Implementations must be safe for concurrent
// use.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It is append-only and hands
// persistence to a Store so tests and deployments can swap sinks.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit stamps the event with the request time and request ID when the
// caller left them empty, then appends it.
func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = requestcontext.Now(ctx)
	}
	if base.RequestID == "" {
		base.RequestID = requestcontext.RequestID(ctx)
	}
	if base.Category == "" {
		base.Category = CategoryMarketplace
	}
	return p.store.Append(ctx, base)
}
