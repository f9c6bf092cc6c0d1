//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"topcharger/internal/audit"
	"topcharger/pkg/testutil/containers"
)

type KafkaStoreSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	store    *audit.KafkaStore
}

func TestKafkaStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaStoreSuite))
}

func (s *KafkaStoreSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
	store, err := audit.NewKafkaStore(s.redpanda.Brokers, "topcharger.audit.test")
	s.Require().NoError(err)
	s.store = store
	s.Require().NoError(s.store.EnsureTopic(context.Background(), 1, 1))
}

func (s *KafkaStoreSuite) TearDownSuite() {
	s.store.Close()
}

func (s *KafkaStoreSuite) TestEnsureTopicIsIdempotent() {
	s.NoError(s.store.EnsureTopic(context.Background(), 1, 1))
}

func (s *KafkaStoreSuite) TestAppendPublishesJSON() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	event := audit.Event{
		Category:  audit.CategoryMarketplace,
		Action:    audit.ActionChargerReserved,
		Subject:   "driver-hash",
		Resource:  "match-address",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	s.Require().NoError(s.store.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics("topcharger.audit.test"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())

	var found bool
	fetches.EachRecord(func(r *kgo.Record) {
		var got audit.Event
		s.Require().NoError(json.Unmarshal(r.Value, &got))
		if got.Action == audit.ActionChargerReserved && got.Subject == "driver-hash" {
			found = true
			s.Equal("driver-hash", string(r.Key))
		}
	})
	s.True(found)
}
