package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topcharger/pkg/platform/circuit"
)

type flakyStore struct {
	fail  bool
	calls int
	MemoryStore
}

func (f *flakyStore) Append(ctx context.Context, e Event) error {
	f.calls++
	if f.fail {
		return errors.New("broker unreachable")
	}
	return f.MemoryStore.Append(ctx, e)
}

func TestFallbackStore(t *testing.T) {
	ctx := context.Background()
	primary := &flakyStore{}
	fallback := NewMemoryStore()
	store := NewFallbackStore(primary, fallback, circuit.New("kafka", circuit.WithFailureThreshold(2)), nil)

	require.NoError(t, store.Append(ctx, Event{Action: ActionUserRegistered}))

	primary.fail = true
	require.NoError(t, store.Append(ctx, Event{Action: ActionChargerListed}))
	require.NoError(t, store.Append(ctx, Event{Action: ActionChargerReserved}))
	assert.Equal(t, 3, primary.calls)

	// Open: the primary is skipped until the cooldown passes.
	require.NoError(t, store.Append(ctx, Event{Action: ActionChargeConfirmed}))
	assert.Equal(t, 3, primary.calls)

	delivered, _ := primary.ListAll(ctx)
	diverted, _ := fallback.ListAll(ctx)
	assert.Len(t, delivered, 1)
	assert.Len(t, diverted, 3)
}
