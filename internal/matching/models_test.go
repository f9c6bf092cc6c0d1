package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topcharger/internal/charger"
	"topcharger/pkg/domain"
	"topcharger/pkg/platform/sentinel"
)

func TestKeyFor(t *testing.T) {
	host := domain.HashExternalID("host")
	a := charger.NewKey(host, 1)
	b := charger.NewKey(host, 2)

	assert.Equal(t, KeyFor(a), KeyFor(a))
	assert.NotEqual(t, KeyFor(a), KeyFor(b))
	assert.NotEqual(t, a.Address(), KeyFor(a), "match slot must not alias the charger record")
}

func TestComplete(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	m := newMatch(charger.NewKey(domain.HashExternalID("host"), 1), domain.HashExternalID("driver"), 1, now)
	require.True(t, m.IsLive())

	require.NoError(t, m.Complete(false, now.Add(time.Hour)))
	assert.False(t, m.IsLive())
	assert.False(t, m.ConfirmedCorrect)
	assert.Equal(t, now.Add(time.Hour), *m.CompletedAt)

	assert.ErrorIs(t, m.Complete(true, now.Add(2*time.Hour)), sentinel.ErrInvalidState)
	assert.False(t, m.ConfirmedCorrect)
}

func TestMatchEncoding(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	m := newMatch(charger.NewKey(domain.HashExternalID("host"), 3), domain.HashExternalID("driver"), 4, now)
	require.NoError(t, m.Complete(true, now))

	first, err := encodeMatch(m)
	require.NoError(t, err)
	second, err := encodeMatch(m)
	require.NoError(t, err)
	assert.Equal(t, first, second, "encoding must be deterministic")

	decoded, err := decodeMatch(first)
	require.NoError(t, err)
	assert.Equal(t, m.Key, decoded.Key)
	assert.Equal(t, m.Charger, decoded.Charger)
	assert.Equal(t, uint64(4), decoded.Round)
	assert.Equal(t, StatusCompleted, decoded.Status)
}
