package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"saccoflow/internal/ledger/models"
	"saccoflow/internal/workflow"
)

// MemoryStore keeps ledger lines in memory. It favors clarity over
// performance and backs unit tests and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	lines map[uuid.UUID]*models.Line
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lines: make(map[uuid.UUID]*models.Line)}
}

func (s *MemoryStore) Insert(_ context.Context, lines ...*models.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range lines {
		copied := *line
		s.lines[line.ID] = &copied
	}
	return nil
}

func (s *MemoryStore) ListBySource(_ context.Context, sourceKind workflow.Kind, sourceID uuid.UUID) ([]*models.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Line
	for _, line := range s.lines {
		if line.SourceKind == sourceKind && line.SourceID == sourceID {
			copied := *line
			out = append(out, &copied)
		}
	}
	sortLines(out)
	return out, nil
}

func (s *MemoryStore) ListByMember(_ context.Context, memberID uuid.UUID) ([]*models.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Line
	for _, line := range s.lines {
		if line.MemberID == memberID {
			copied := *line
			out = append(out, &copied)
		}
	}
	sortLines(out)
	return out, nil
}

func sortLines(lines []*models.Line) {
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].PostedAt.Equal(lines[j].PostedAt) {
			return lines[i].Kind < lines[j].Kind
		}
		return lines[i].PostedAt.Before(lines[j].PostedAt)
	})
}
