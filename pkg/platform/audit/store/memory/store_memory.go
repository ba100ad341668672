// Package memory provides an in-memory audit store for tests and local runs.
package memory

import (
	"context"
	"sync"

	audit "saccoflow/pkg/platform/audit"
)

// Store keeps events in insertion order.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
}

// NewStore returns an empty in-memory audit store.
func NewStore() *Store {
	return &Store{}
}

// Append records one event.
func (s *Store) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByRecord returns all events for a record in the order they arrived.
func (s *Store) ListByRecord(_ context.Context, recordID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.RecordID == recordID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns a copy of every stored event. Test helper.
func (s *Store) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}
