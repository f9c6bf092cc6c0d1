package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into coded domain errors.
//
//   - ErrNotFound: no record at the address
//   - ErrAlreadyExists: a create-only write found the slot occupied
//   - ErrConflict: another writer committed since the value was read
//   - ErrInvalidState: record is in the wrong state for the transition
//   - ErrUnavailable: backend temporarily unreachable
//
// Validation failures are not sentinel facts; use pkg/domain-errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrConflict      = errors.New("conflict")
	ErrInvalidState  = errors.New("invalid state")
	ErrUnavailable   = errors.New("unavailable")
)
