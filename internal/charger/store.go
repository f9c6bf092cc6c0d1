package charger

import (
	"context"
	"fmt"

	"topcharger/internal/recordstore"
)

// Encode serializes a charger for the record store.
func Encode(c *Charger) ([]byte, error) {
	value, err := recordstore.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode charger: %w", err)
	}
	return value, nil
}

// Decode parses a stored charger.
func Decode(value []byte) (*Charger, error) {
	var c Charger
	if err := recordstore.Unmarshal(value, &c); err != nil {
		return nil, fmt.Errorf("decode charger: %w", err)
	}
	return &c, nil
}

// Load reads the charger at key together with the record it came from, so
// a caller can commit a transition against the version it saw.
// Returns recordstore.ErrNotFound for an unknown key.
func Load(ctx context.Context, s recordstore.Store, key Key) (recordstore.Record, *Charger, error) {
	rec, err := s.Get(ctx, recordstore.NamespaceCharger, key.Address())
	if err != nil {
		return recordstore.Record{}, nil, err
	}
	c, err := Decode(rec.Value)
	if err != nil {
		return recordstore.Record{}, nil, err
	}
	return rec, c, nil
}

type chargerStore struct {
	records recordstore.Store
}

func (s chargerStore) create(ctx context.Context, c *Charger) error {
	value, err := Encode(c)
	if err != nil {
		return err
	}
	_, err = recordstore.Create(ctx, s.records, recordstore.NamespaceCharger, c.Key.Address(), value)
	return err
}

func (s chargerStore) find(ctx context.Context, key Key) (*Charger, error) {
	_, c, err := Load(ctx, s.records, key)
	return c, err
}

func (s chargerStore) list(ctx context.Context) ([]*Charger, error) {
	recs, err := s.records.List(ctx, recordstore.NamespaceCharger)
	if err != nil {
		return nil, err
	}
	out := make([]*Charger, 0, len(recs))
	for _, rec := range recs {
		c, err := Decode(rec.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
