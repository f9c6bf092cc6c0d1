package charger

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topcharger/pkg/domain"
	dErrors "topcharger/pkg/domain-errors"
	"topcharger/pkg/platform/sentinel"
)

func TestNewLocation(t *testing.T) {
	t.Run("pads short values", func(t *testing.T) {
		loc, err := NewLocation("Bay 3, Level -1")
		require.NoError(t, err)
		assert.Equal(t, "Bay 3, Level -1", loc.String())
		assert.Equal(t, byte(0), loc[LocationSize-1])
	})

	t.Run("accepts exactly 64 bytes", func(t *testing.T) {
		s := strings.Repeat("x", LocationSize)
		loc, err := NewLocation(s)
		require.NoError(t, err)
		assert.Equal(t, s, loc.String())
	})

	t.Run("rejects 65 bytes", func(t *testing.T) {
		_, err := NewLocation(strings.Repeat("x", LocationSize+1))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("counts bytes not runes", func(t *testing.T) {
		_, err := NewLocation(strings.Repeat("é", 33))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects embedded NUL", func(t *testing.T) {
		_, err := NewLocation("a\x00b")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestKeyAddress(t *testing.T) {
	owner := domain.HashExternalID("host")
	assert.Equal(t, NewKey(owner, 1).Address(), NewKey(owner, 1).Address())
	assert.NotEqual(t, NewKey(owner, 1).Address(), NewKey(owner, 2).Address())
	assert.NotEqual(t, NewKey(owner, 1).Address(), NewKey(domain.HashExternalID("other"), 1).Address())
}

func TestParseKey(t *testing.T) {
	owner := domain.HashExternalID("host")
	key, err := ParseKey(owner.String(), "42")
	require.NoError(t, err)
	assert.Equal(t, NewKey(owner, 42), key)

	_, err = ParseKey(owner.String(), "-1")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseKey("nothex", "1")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestNewChargerValidation(t *testing.T) {
	valid := ListChargerRequest{
		Owner: domain.HashExternalID("host"), ChargerID: 1, PowerKW: 50, Supply: SupplyDC, Price: 100,
	}
	now := time.Now()

	c, err := NewCharger(valid, now)
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, c.Status)

	free := valid
	free.Price = 0
	c, err = NewCharger(free, now)
	require.NoError(t, err, "free listings are allowed")
	assert.Zero(t, c.Price)

	cases := map[string]func(r *ListChargerRequest){
		"no owner":      func(r *ListChargerRequest) { r.Owner = domain.IdentityHash{} },
		"zero power":    func(r *ListChargerRequest) { r.PowerKW = 0 },
		"bad supply":    func(r *ListChargerRequest) { r.Supply = Supply(7) },
		"long location": func(r *ListChargerRequest) { r.Location = strings.Repeat("l", 65) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := valid
			mutate(&req)
			_, err := NewCharger(req, now)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestTransitions(t *testing.T) {
	c, err := NewCharger(ListChargerRequest{
		Owner: domain.HashExternalID("host"), ChargerID: 1, PowerKW: 11, Supply: SupplyAC, Price: 5,
	}, time.Now())
	require.NoError(t, err)

	require.NoError(t, c.Allocate(time.Now()))
	assert.Equal(t, StatusAllocated, c.Status)
	assert.ErrorIs(t, c.Allocate(time.Now()), sentinel.ErrInvalidState)

	require.NoError(t, c.Release(time.Now()))
	assert.Equal(t, StatusAvailable, c.Status)
	assert.ErrorIs(t, c.Release(time.Now()), sentinel.ErrInvalidState)
}

func TestChargerJSONAndCodec(t *testing.T) {
	c, err := NewCharger(ListChargerRequest{
		Owner: domain.HashExternalID("host"), ChargerID: 9, PowerKW: 50, Supply: SupplyDC, Price: 100, Location: "Depot",
	}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(out, &body))
	assert.Equal(t, "dc", body["supply"])
	assert.Equal(t, "available", body["status"])
	assert.Equal(t, "Depot", body["location"])

	value, err := Encode(c)
	require.NoError(t, err)
	decoded, err := Decode(value)
	require.NoError(t, err)
	assert.Equal(t, c.Key, decoded.Key)
	assert.Equal(t, c.Location, decoded.Location)
	assert.True(t, c.CreatedAt.Equal(decoded.CreatedAt))
}
