package charger

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"topcharger/internal/recordstore"
	"topcharger/pkg/domain"
	dErrors "topcharger/pkg/domain-errors"
	"topcharger/pkg/platform/sentinel"
)

// Supply is the current type a charger delivers.
type Supply uint8

const (
	SupplyAC Supply = 0
	SupplyDC Supply = 1
)

func ParseSupply(s string) (Supply, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ac":
		return SupplyAC, nil
	case "dc":
		return SupplyDC, nil
	default:
		return 0, dErrors.New(dErrors.CodeValidation, "supply must be ac or dc")
	}
}

func (s Supply) String() string {
	switch s {
	case SupplyAC:
		return "ac"
	case SupplyDC:
		return "dc"
	default:
		return "unknown"
	}
}

func (s Supply) Valid() bool { return s == SupplyAC || s == SupplyDC }

func (s Supply) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Supply) UnmarshalText(text []byte) error {
	parsed, err := ParseSupply(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Status is the availability of a charger.
type Status uint8

const (
	StatusAvailable Status = 0
	StatusAllocated Status = 1
)

func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "available":
		return StatusAvailable, nil
	case "allocated":
		return StatusAllocated, nil
	default:
		return 0, dErrors.New(dErrors.CodeValidation, "status must be available or allocated")
	}
}

func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusAllocated:
		return "allocated"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// LocationSize is the fixed width of the stored location.
const LocationSize = 64

// Location is free text stored zero-padded in a fixed buffer.
type Location [LocationSize]byte

// NewLocation rejects text longer than LocationSize bytes rather than
// truncating it, so a stored location is always what the host sent.
func NewLocation(s string) (Location, error) {
	var loc Location
	if len(s) > LocationSize {
		return loc, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("location must be at most %d bytes", LocationSize))
	}
	if strings.IndexByte(s, 0) >= 0 {
		return loc, dErrors.New(dErrors.CodeValidation, "location cannot contain NUL bytes")
	}
	copy(loc[:], s)
	return loc, nil
}

// String returns the text without its zero padding.
func (l Location) String() string {
	return string(bytes.TrimRight(l[:], "\x00"))
}

func (l Location) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *Location) UnmarshalText(text []byte) error {
	parsed, err := NewLocation(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Key identifies a charger: the owner's identity and an owner-chosen id.
type Key struct {
	_     struct{}            `cbor:",toarray"`
	Owner domain.IdentityHash `json:"owner"`
	ID    uint64              `json:"charger_id"`
}

func NewKey(owner domain.IdentityHash, id uint64) Key {
	return Key{Owner: owner, ID: id}
}

// ParseKey reads the path form: owner hash and decimal id.
func ParseKey(owner, id string) (Key, error) {
	hash, err := domain.ParseIdentityHash(owner)
	if err != nil {
		return Key{}, err
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return Key{}, dErrors.New(dErrors.CodeInvalidInput, "charger id must be an unsigned integer")
	}
	return NewKey(hash, n), nil
}

// Address is where the charger record lives.
func (k Key) Address() recordstore.Address {
	return recordstore.Derive(recordstore.NamespaceCharger, k.Owner[:], recordstore.Uint64(k.ID))
}

func (k Key) String() string {
	return k.Owner.String() + "/" + strconv.FormatUint(k.ID, 10)
}

// Charger is a listed charging point.
type Charger struct {
	_         struct{}  `cbor:",toarray"`
	Key       Key       `json:"key"`
	PowerKW   uint16    `json:"power_kw"`
	Supply    Supply    `json:"supply"`
	Price     uint64    `json:"price"`
	Status    Status    `json:"status"`
	Location  Location  `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListChargerRequest carries the fields a host supplies when listing.
type ListChargerRequest struct {
	Owner     domain.IdentityHash
	ChargerID uint64
	PowerKW   uint16
	Supply    Supply
	Price     uint64
	Location  string
}

// NewCharger validates a listing and returns an Available charger.
func NewCharger(req ListChargerRequest, now time.Time) (*Charger, error) {
	if req.Owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "owner is required")
	}
	if req.PowerKW == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "power_kw must be positive")
	}
	if !req.Supply.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "supply must be ac or dc")
	}
	loc, err := NewLocation(req.Location)
	if err != nil {
		return nil, err
	}
	now = now.UTC()
	return &Charger{
		Key:       NewKey(req.Owner, req.ChargerID),
		PowerKW:   req.PowerKW,
		Supply:    req.Supply,
		Price:     req.Price,
		Status:    StatusAvailable,
		Location:  loc,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanAllocate reports whether a reservation may take this charger.
func (c *Charger) CanAllocate() bool {
	return c.Status == StatusAvailable
}

// Allocate marks the charger taken by a reservation.
func (c *Charger) Allocate(now time.Time) error {
	if !c.CanAllocate() {
		return sentinel.ErrInvalidState
	}
	c.Status = StatusAllocated
	c.UpdatedAt = now.UTC()
	return nil
}

// Release makes the charger bookable again.
func (c *Charger) Release(now time.Time) error {
	if c.Status != StatusAllocated {
		return sentinel.ErrInvalidState
	}
	c.Status = StatusAvailable
	c.UpdatedAt = now.UTC()
	return nil
}
