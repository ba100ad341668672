// Package kafka publishes audit events to Kafka topics, one topic per
// event category so compliance and operations streams can carry different
// retention policies.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "saccoflow/pkg/platform/audit"
)

const (
	// TopicCompliance carries long-retention review and terminal events.
	TopicCompliance = "audit.compliance"

	// TopicOperations carries short-retention operational events.
	TopicOperations = "audit.operations"
)

// Sink produces audit events to Kafka. Events are keyed by record ID so all
// events for a record land on the same partition, preserving their order.
type Sink struct {
	client *kgo.Client
}

// NewSink connects a producer to the given brokers.
func NewSink(brokers []string, opts ...kgo.Opt) (*Sink, error) {
	opts = append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	}, opts...)
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Sink{client: client}, nil
}

// NewSinkFromClient wraps an existing client. The caller keeps ownership.
func NewSinkFromClient(client *kgo.Client) *Sink {
	return &Sink{client: client}
}

// Append serializes the event and produces it synchronously so the caller
// knows the event is durable before the surrounding transaction reports
// success.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: TopicFor(event.Category),
		Key:   []byte(event.RecordID),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// TopicFor maps an event category to its topic.
func TopicFor(category audit.EventCategory) string {
	if category == audit.CategoryCompliance {
		return TopicCompliance
	}
	return TopicOperations
}

// Close flushes and releases the underlying client.
func (s *Sink) Close() {
	s.client.Close()
}
