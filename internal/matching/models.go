package matching

import (
	"strings"
	"time"

	"topcharger/internal/charger"
	"topcharger/internal/recordstore"
	"topcharger/pkg/domain"
	dErrors "topcharger/pkg/domain-errors"
	"topcharger/pkg/platform/sentinel"
)

// Status of a match. Completed is terminal.
type Status uint8

const (
	StatusPending   Status = 0
	StatusCompleted Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "pending":
		*s = StatusPending
	case "completed":
		*s = StatusCompleted
	default:
		return dErrors.New(dErrors.CodeValidation, "status must be pending or completed")
	}
	return nil
}

// KeyFor returns the match slot of a charger. Each charger has exactly one
// slot; a new reservation reuses it once the previous match completed.
func KeyFor(c charger.Key) recordstore.Address {
	chargerAddr := c.Address()
	return recordstore.Derive(recordstore.NamespaceMatch, chargerAddr[:])
}

// Match binds one driver to one charger for one charging session.
type Match struct {
	_                struct{}            `cbor:",toarray"`
	Key              recordstore.Address `json:"match_key"`
	Driver           domain.IdentityHash `json:"driver"`
	Charger          charger.Key         `json:"charger"`
	Status           Status              `json:"status"`
	ConfirmedCorrect bool                `json:"confirmed_correct"`
	// Round counts reservations of this charger, starting at 1.
	Round       uint64     `json:"round"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func newMatch(c charger.Key, driver domain.IdentityHash, round uint64, now time.Time) *Match {
	return &Match{
		Key:       KeyFor(c),
		Driver:    driver,
		Charger:   c,
		Status:    StatusPending,
		Round:     round,
		CreatedAt: now.UTC(),
	}
}

// IsLive reports whether the match still holds its charger.
func (m *Match) IsLive() bool {
	return m.Status == StatusPending
}

// Complete records the driver's confirmation. It succeeds once.
func (m *Match) Complete(wasCorrect bool, now time.Time) error {
	if !m.IsLive() {
		return sentinel.ErrInvalidState
	}
	at := now.UTC()
	m.Status = StatusCompleted
	m.ConfirmedCorrect = wasCorrect
	m.CompletedAt = &at
	return nil
}

func encodeMatch(m *Match) ([]byte, error) {
	return recordstore.Marshal(m)
}

func decodeMatch(value []byte) (*Match, error) {
	var m Match
	if err := recordstore.Unmarshal(value, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
