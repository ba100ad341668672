// Package audit captures structured events for every workflow transition.
// Events are transport-agnostic so sinks can fan out: the in-memory store
// backs tests, the Kafka sink feeds the compliance pipeline.
package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose, which
// drives retention and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance: review
	// decisions, terminal transitions, provisioned records. Long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and visibility.
	// These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain services at each workflow transition. Keep it
// flat; sinks serialize it as-is.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`

	// Kind and RecordID identify the reviewable record.
	Kind     string `json:"kind"`
	RecordID string `json:"recordId"`

	// Actor is the resolved identity that performed the action.
	Actor  string `json:"actor,omitempty"`
	Action string `json:"action"`

	FromStage string `json:"fromStage,omitempty"`
	ToStage   string `json:"toStage,omitempty"`
	Status    string `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`

	// Request enrichment for traceability.
	RequestID string `json:"requestId,omitempty"`
	ClientIP  string `json:"clientIp,omitempty"`
	Device    string `json:"device,omitempty"`
}

// AuditEvent names the actions this system emits.
type AuditEvent string

const (
	EventRecordCreated    AuditEvent = "record_created"
	EventReviewApproved   AuditEvent = "review_approved"
	EventReviewRejected   AuditEvent = "review_rejected"
	EventRecordApproved   AuditEvent = "record_approved"
	EventRecordRejected   AuditEvent = "record_rejected"
	EventPOPUploaded      AuditEvent = "pop_uploaded"
	EventTerminalDispatch AuditEvent = "terminal_action_dispatched"
	EventAccountCreated   AuditEvent = "account_created"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventRecordCreated:    CategoryOperations,
	EventReviewApproved:   CategoryCompliance,
	EventReviewRejected:   CategoryCompliance,
	EventRecordApproved:   CategoryCompliance,
	EventRecordRejected:   CategoryCompliance,
	EventPOPUploaded:      CategoryOperations,
	EventTerminalDispatch: CategoryCompliance,
	EventAccountCreated:   CategoryCompliance,
}

// CategoryOf returns the category for an event name, defaulting to
// operations for unknown names.
func CategoryOf(event AuditEvent) EventCategory {
	if c, ok := eventCategories[event]; ok {
		return c
	}
	return CategoryOperations
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a sink that also supports reads, for tests and detail views.
type Store interface {
	Sink
	ListByRecord(ctx context.Context, recordID string) ([]Event, error)
}
