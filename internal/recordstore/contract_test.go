package recordstore_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/suite"

	"topcharger/internal/recordstore"
	"topcharger/pkg/platform/sentinel"
)

// storeContractSuite exercises the Store contract. Each backend embeds it
// and sets store in SetupTest.
type storeContractSuite struct {
	suite.Suite
	store recordstore.Store
}

func addr(material string) recordstore.Address {
	return recordstore.Derive(recordstore.NamespaceUser, []byte(material))
}

func (s *storeContractSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), recordstore.NamespaceUser, addr("missing"))
	s.ErrorIs(err, recordstore.ErrNotFound)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *storeContractSuite) TestCreate() {
	ctx := context.Background()
	a := addr("create")

	s.Run("writes version 1", func() {
		rec, err := recordstore.Create(ctx, s.store, recordstore.NamespaceUser, a, []byte("v1"))
		s.Require().NoError(err)
		s.Equal(uint64(1), rec.Version)

		got, err := s.store.Get(ctx, recordstore.NamespaceUser, a)
		s.Require().NoError(err)
		s.Equal(uint64(1), got.Version)
		s.Equal([]byte("v1"), got.Value)
	})

	s.Run("occupied slot reports already exists and keeps the value", func() {
		_, err := recordstore.Create(ctx, s.store, recordstore.NamespaceUser, a, []byte("other"))
		s.ErrorIs(err, recordstore.ErrAlreadyExists)

		got, err := s.store.Get(ctx, recordstore.NamespaceUser, a)
		s.Require().NoError(err)
		s.Equal([]byte("v1"), got.Value)
	})

	s.Run("same address in another namespace is a different slot", func() {
		_, err := recordstore.Create(ctx, s.store, recordstore.NamespaceMatch, a, []byte("m"))
		s.NoError(err)
	})
}

func (s *storeContractSuite) TestUpdate() {
	ctx := context.Background()
	a := addr("update")

	s.Run("missing slot", func() {
		_, err := recordstore.Update(ctx, s.store, recordstore.NamespaceUser, a, func(b []byte) ([]byte, error) {
			return b, nil
		})
		s.ErrorIs(err, recordstore.ErrNotFound)
	})

	_, err := recordstore.Create(ctx, s.store, recordstore.NamespaceUser, a, []byte("a"))
	s.Require().NoError(err)

	s.Run("increments version", func() {
		rec, err := recordstore.Update(ctx, s.store, recordstore.NamespaceUser, a, func(b []byte) ([]byte, error) {
			return append(b, 'b'), nil
		})
		s.Require().NoError(err)
		s.Equal(uint64(2), rec.Version)
		s.Equal([]byte("ab"), rec.Value)
	})

	s.Run("mutate error writes nothing", func() {
		boom := errors.New("boom")
		_, err := recordstore.Update(ctx, s.store, recordstore.NamespaceUser, a, func([]byte) ([]byte, error) {
			return nil, boom
		})
		s.ErrorIs(err, boom)

		got, err := s.store.Get(ctx, recordstore.NamespaceUser, a)
		s.Require().NoError(err)
		s.Equal(uint64(2), got.Version)
	})
}

func (s *storeContractSuite) TestCommitStaleVersion() {
	ctx := context.Background()
	a := addr("stale")
	rec, err := recordstore.Create(ctx, s.store, recordstore.NamespaceUser, a, []byte("a"))
	s.Require().NoError(err)

	s.Require().NoError(s.store.Commit(ctx, rec.Next([]byte("b"))))

	err = s.store.Commit(ctx, rec.Next([]byte("c")))
	s.ErrorIs(err, recordstore.ErrConcurrentModification)
	s.ErrorIs(err, sentinel.ErrConflict)

	got, err := s.store.Get(ctx, recordstore.NamespaceUser, a)
	s.Require().NoError(err)
	s.Equal([]byte("b"), got.Value)
}

func (s *storeContractSuite) TestCommitIsAllOrNothing() {
	ctx := context.Background()
	charger := recordstore.Derive(recordstore.NamespaceCharger, []byte("host"), recordstore.Uint64(1))
	match := recordstore.Derive(recordstore.NamespaceMatch, charger[:])

	chargerRec, err := recordstore.Create(ctx, s.store, recordstore.NamespaceCharger, charger, []byte("available"))
	s.Require().NoError(err)
	// Occupy the match slot so the batch below fails on its second write.
	_, err = recordstore.Create(ctx, s.store, recordstore.NamespaceMatch, match, []byte("pending"))
	s.Require().NoError(err)

	err = s.store.Commit(ctx,
		chargerRec.Next([]byte("allocated")),
		recordstore.Write{Namespace: recordstore.NamespaceMatch, Address: match, ExpectVersion: 0, Value: []byte("new")},
	)
	s.ErrorIs(err, recordstore.ErrConcurrentModification)

	got, err := s.store.Get(ctx, recordstore.NamespaceCharger, charger)
	s.Require().NoError(err)
	s.Equal(uint64(1), got.Version)
	s.Equal([]byte("available"), got.Value)
}

func (s *storeContractSuite) TestCommitRejectsMalformedBatches() {
	ctx := context.Background()
	s.Error(s.store.Commit(ctx))

	w := recordstore.Write{Namespace: recordstore.NamespaceUser, Address: addr("dup"), Value: []byte("x")}
	s.Error(s.store.Commit(ctx, w, w))

	_, err := s.store.Get(ctx, recordstore.NamespaceUser, addr("dup"))
	s.ErrorIs(err, recordstore.ErrNotFound)
}

func (s *storeContractSuite) TestList() {
	ctx := context.Background()
	for _, m := range []string{"l1", "l2", "l3"} {
		_, err := recordstore.Create(ctx, s.store, recordstore.NamespaceCharger, recordstore.Derive(recordstore.NamespaceCharger, []byte(m)), []byte(m))
		s.Require().NoError(err)
	}
	_, err := recordstore.Create(ctx, s.store, recordstore.NamespaceMatch, addr("elsewhere"), []byte("x"))
	s.Require().NoError(err)

	recs, err := s.store.List(ctx, recordstore.NamespaceCharger)
	s.Require().NoError(err)
	s.Len(recs, 3)
	for _, r := range recs {
		s.Equal(recordstore.NamespaceCharger, r.Namespace)
		s.Equal(uint64(1), r.Version)
	}
}

// TestConcurrentCreateSingleWinner races many creators on one slot.
func (s *storeContractSuite) TestConcurrentCreateSingleWinner() {
	ctx := context.Background()
	a := addr("race")
	const goroutines = 32

	var wg sync.WaitGroup
	var created, rejected atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := recordstore.Create(ctx, s.store, recordstore.NamespaceUser, a, []byte("x"))
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, recordstore.ErrAlreadyExists):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), created.Load())
	s.Equal(int32(goroutines-1), rejected.Load())
}

// TestConcurrentUpdatesNoLostWrites retries on conflict and checks every
// increment landed.
func (s *storeContractSuite) TestConcurrentUpdatesNoLostWrites() {
	ctx := context.Background()
	a := addr("counter")
	_, err := recordstore.Create(ctx, s.store, recordstore.NamespaceUser, a, []byte{})
	s.Require().NoError(err)

	const goroutines = 16
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, err := recordstore.Update(ctx, s.store, recordstore.NamespaceUser, a, func(b []byte) ([]byte, error) {
					return append(b, '+'), nil
				})
				if errors.Is(err, recordstore.ErrConcurrentModification) {
					continue
				}
				if err != nil {
					failures.Add(1)
				}
				return
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load())
	got, err := s.store.Get(ctx, recordstore.NamespaceUser, a)
	s.Require().NoError(err)
	s.Len(got.Value, goroutines)
	s.Equal(uint64(goroutines+1), got.Version)
}
