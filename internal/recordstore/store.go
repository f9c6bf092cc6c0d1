// Package recordstore is the single mutator of persisted marketplace state.
//
// Records live at deterministic addresses (see Derive) and carry a version
// that increments on every committed write. Writers read a record, compute
// the next value, and Commit against the version they read; the commit
// fails with ErrConcurrentModification if anyone else committed first.
// Commit is all-or-nothing across every write in the batch.
package recordstore

import (
	"context"
	"errors"
	"fmt"

	"topcharger/pkg/platform/sentinel"
)

// Store errors wrap the platform sentinels so callers can match on either.
var (
	ErrNotFound               = fmt.Errorf("record %w", sentinel.ErrNotFound)
	ErrAlreadyExists          = fmt.Errorf("record %w", sentinel.ErrAlreadyExists)
	ErrConcurrentModification = fmt.Errorf("concurrent modification: %w", sentinel.ErrConflict)
)

// Record is a persisted value at an address. Version 0 never appears on a
// stored record; it denotes "absent" in Write expectations.
type Record struct {
	Namespace Namespace
	Address   Address
	Version   uint64
	Value     []byte
}

// Write is one element of an atomic Commit. ExpectVersion is the version
// the writer observed: 0 means the slot must be empty.
type Write struct {
	Namespace     Namespace
	Address       Address
	ExpectVersion uint64
	Value         []byte
}

// Store is implemented by each backend.
//
// Error contract:
//   - Get returns ErrNotFound when the slot is empty
//   - Commit returns ErrConcurrentModification when any expectation fails,
//     and applies nothing in that case
//   - Commit persists durably before returning nil
//   - infrastructure failures are returned wrapped with context
type Store interface {
	Get(ctx context.Context, ns Namespace, addr Address) (Record, error)
	Commit(ctx context.Context, writes ...Write) error
	List(ctx context.Context, ns Namespace) ([]Record, error)
}

// Create writes value into an empty slot.
// Returns ErrAlreadyExists when the slot is occupied.
func Create(ctx context.Context, s Store, ns Namespace, addr Address, value []byte) (Record, error) {
	err := s.Commit(ctx, Write{Namespace: ns, Address: addr, ExpectVersion: 0, Value: value})
	if errors.Is(err, ErrConcurrentModification) {
		return Record{}, ErrAlreadyExists
	}
	if err != nil {
		return Record{}, err
	}
	return Record{Namespace: ns, Address: addr, Version: 1, Value: value}, nil
}

// Update reads the record at addr, applies mutate to its current value and
// commits the result against the version read. mutate must be pure: it may
// run again if the caller retries. Errors returned by mutate are passed
// through unchanged and nothing is written.
//
// Returns ErrNotFound for an empty slot and ErrConcurrentModification when
// another writer committed between the read and the commit.
func Update(ctx context.Context, s Store, ns Namespace, addr Address, mutate func(current []byte) ([]byte, error)) (Record, error) {
	current, err := s.Get(ctx, ns, addr)
	if err != nil {
		return Record{}, err
	}
	next, err := mutate(current.Value)
	if err != nil {
		return Record{}, err
	}
	if err := s.Commit(ctx, current.Next(next)); err != nil {
		return Record{}, err
	}
	return Record{Namespace: ns, Address: addr, Version: current.Version + 1, Value: next}, nil
}

// Next builds the write that replaces r with value, expecting r's version.
func (r Record) Next(value []byte) Write {
	return Write{Namespace: r.Namespace, Address: r.Address, ExpectVersion: r.Version, Value: value}
}

// Lookup is Get that reports an empty slot as a zero-version record instead
// of ErrNotFound. Writers use it when absence is a valid starting state.
func Lookup(ctx context.Context, s Store, ns Namespace, addr Address) (Record, error) {
	rec, err := s.Get(ctx, ns, addr)
	if errors.Is(err, ErrNotFound) {
		return Record{Namespace: ns, Address: addr}, nil
	}
	return rec, err
}

// Exists reports whether the record holds a committed value.
func (r Record) Exists() bool {
	return r.Version > 0
}

// validateBatch rejects batches that name the same slot twice; the outcome
// of such a batch would depend on write order.
func validateBatch(writes []Write) error {
	if len(writes) == 0 {
		return errors.New("recordstore: empty commit")
	}
	seen := make(map[slot]struct{}, len(writes))
	for _, w := range writes {
		k := slot{ns: w.Namespace, addr: w.Address}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("recordstore: duplicate write to %s/%s", w.Namespace, w.Address)
		}
		seen[k] = struct{}{}
	}
	return nil
}

type slot struct {
	ns   Namespace
	addr Address
}
