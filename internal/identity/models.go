package identity

import (
	"strings"
	"time"

	"topcharger/pkg/domain"
	dErrors "topcharger/pkg/domain-errors"
)

// Role is fixed at registration.
type Role uint8

const (
	RoleDriver Role = 0
	RoleHost   Role = 1
)

// ParseRole accepts "driver" or "host" in any case.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "driver":
		return RoleDriver, nil
	case "host":
		return RoleHost, nil
	default:
		return 0, dErrors.New(dErrors.CodeValidation, "role must be driver or host")
	}
}

func (r Role) String() string {
	switch r {
	case RoleDriver:
		return "driver"
	case RoleHost:
		return "host"
	default:
		return "unknown"
	}
}

func (r Role) Valid() bool {
	return r == RoleDriver || r == RoleHost
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown role")
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User is a registered marketplace participant. Immutable once stored.
type User struct {
	_         struct{}            `cbor:",toarray"`
	Hash      domain.IdentityHash `json:"identity_hash"`
	Role      Role                `json:"role"`
	Authority domain.Authority    `json:"authority"`
	CreatedAt time.Time           `json:"created_at"`
}

// NewUser validates the fields of a registration.
func NewUser(hash domain.IdentityHash, role Role, authority domain.Authority, now time.Time) (*User, error) {
	if hash.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity hash cannot be zero")
	}
	if !role.Valid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown role")
	}
	if authority.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "authority cannot be empty")
	}
	return &User{Hash: hash, Role: role, Authority: authority, CreatedAt: now.UTC()}, nil
}

// IsHost reports whether the user may list chargers.
func (u *User) IsHost() bool {
	return u.Role == RoleHost
}
