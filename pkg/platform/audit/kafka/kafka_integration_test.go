//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"saccoflow/pkg/platform/audit"
	auditkafka "saccoflow/pkg/platform/audit/kafka"
	"saccoflow/pkg/testutil/containers"
)

func TestSink_RoutesEventsByCategory(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	rp.CreateTopics(t, auditkafka.TopicCompliance, auditkafka.TopicOperations)

	sink, err := auditkafka.NewSink(rp.Brokers)
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	compliance := audit.Event{
		Category:  audit.CategoryCompliance,
		Timestamp: time.Now().UTC(),
		Kind:      "posting",
		RecordID:  "rec-1",
		Actor:     "reviewer1@sacco.example",
		Action:    string(audit.EventReviewApproved),
		FromStage: "submitted",
		ToStage:   "primary",
		Status:    "submitted",
	}
	operations := audit.Event{
		Category:  audit.CategoryOperations,
		Timestamp: time.Now().UTC(),
		Kind:      "posting",
		RecordID:  "rec-1",
		Action:    string(audit.EventRecordCreated),
	}
	require.NoError(t, sink.Append(ctx, compliance))
	require.NoError(t, sink.Append(ctx, operations))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics(auditkafka.TopicCompliance, auditkafka.TopicOperations),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	consumed := map[string]audit.Event{}
	deadline := time.Now().Add(30 * time.Second)
	for len(consumed) < 2 && time.Now().Before(deadline) {
		pollCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		fetches := consumer.PollFetches(pollCtx)
		cancel()
		fetches.EachRecord(func(record *kgo.Record) {
			assert.Equal(t, "rec-1", string(record.Key))
			var event audit.Event
			require.NoError(t, json.Unmarshal(record.Value, &event))
			consumed[record.Topic] = event
		})
	}

	require.Len(t, consumed, 2)
	assert.Equal(t, string(audit.EventReviewApproved), consumed[auditkafka.TopicCompliance].Action)
	assert.Equal(t, "reviewer1@sacco.example", consumed[auditkafka.TopicCompliance].Actor)
	assert.Equal(t, string(audit.EventRecordCreated), consumed[auditkafka.TopicOperations].Action)
}
