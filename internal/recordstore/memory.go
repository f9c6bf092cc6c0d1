package recordstore

import (
	"bytes"
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps records in process memory for tests and single-node
// development. A commit holds the write lock across the expectation check
// and the apply, which gives the same all-or-nothing semantics as the
// networked backends.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[slot]Record
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[slot]Record)}
}

func (s *MemoryStore) Get(_ context.Context, ns Namespace, addr Address) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[slot{ns: ns, addr: addr}]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec.clone(), nil
}

func (s *MemoryStore) Commit(ctx context.Context, writes ...Write) error {
	if err := validateBatch(writes); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range writes {
		current := s.records[slot{ns: w.Namespace, addr: w.Address}]
		if current.Version != w.ExpectVersion {
			return ErrConcurrentModification
		}
	}
	for _, w := range writes {
		s.records[slot{ns: w.Namespace, addr: w.Address}] = Record{
			Namespace: w.Namespace,
			Address:   w.Address,
			Version:   w.ExpectVersion + 1,
			Value:     bytes.Clone(w.Value),
		}
	}
	return nil
}

// List returns every record in ns ordered by address.
func (s *MemoryStore) List(_ context.Context, ns Namespace) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for k, rec := range s.records {
		if k.ns == ns {
			out = append(out, rec.clone())
		}
	}
	slices.SortFunc(out, func(a, b Record) int {
		return bytes.Compare(a.Address[:], b.Address[:])
	})
	return out, nil
}

func (r Record) clone() Record {
	r.Value = bytes.Clone(r.Value)
	return r
}
