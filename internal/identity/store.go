package identity

import (
	"context"
	"fmt"

	"topcharger/internal/recordstore"
	"topcharger/pkg/domain"
)

// Address is where the user record for hash lives.
func Address(hash domain.IdentityHash) recordstore.Address {
	return recordstore.Derive(recordstore.NamespaceUser, hash[:])
}

// userStore maps User values onto the record store.
type userStore struct {
	records recordstore.Store
}

func (s userStore) create(ctx context.Context, user *User) error {
	value, err := recordstore.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	_, err = recordstore.Create(ctx, s.records, recordstore.NamespaceUser, Address(user.Hash), value)
	return err
}

func (s userStore) find(ctx context.Context, hash domain.IdentityHash) (*User, error) {
	rec, err := s.records.Get(ctx, recordstore.NamespaceUser, Address(hash))
	if err != nil {
		return nil, err
	}
	return decodeUser(rec.Value)
}

func (s userStore) list(ctx context.Context) ([]*User, error) {
	recs, err := s.records.List(ctx, recordstore.NamespaceUser)
	if err != nil {
		return nil, err
	}
	users := make([]*User, 0, len(recs))
	for _, rec := range recs {
		u, err := decodeUser(rec.Value)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func decodeUser(value []byte) (*User, error) {
	var u User
	if err := recordstore.Unmarshal(value, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}
