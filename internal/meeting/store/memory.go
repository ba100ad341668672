package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"saccoflow/internal/meeting/models"
	"saccoflow/internal/workflow"
)

// MemoryStore keeps meetings in memory for tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	meetings map[uuid.UUID]*models.Meeting
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{meetings: make(map[uuid.UUID]*models.Meeting)}
}

func clone(m *models.Meeting) *models.Meeting {
	copied := *m
	copied.Attendance = append([]models.AttendanceEntry(nil), m.Attendance...)
	return &copied
}

func (s *MemoryStore) Create(_ context.Context, meeting *models.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[meeting.ID] = clone(meeting)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if meeting, ok := s.meetings[id]; ok {
		return clone(meeting), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	return s.Get(ctx, id)
}

func (s *MemoryStore) Update(_ context.Context, meeting *models.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[meeting.ID]; !ok {
		return ErrNotFound
	}
	s.meetings[meeting.ID] = clone(meeting)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*models.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(*models.Meeting) bool { return true }), nil
}

func (s *MemoryStore) ListByStatus(_ context.Context, status workflow.Status) ([]*models.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(m *models.Meeting) bool { return m.Workflow.Status == status }), nil
}

func (s *MemoryStore) collect(keep func(*models.Meeting) bool) []*models.Meeting {
	out := make([]*models.Meeting, 0, len(s.meetings))
	for _, meeting := range s.meetings {
		if keep(meeting) {
			out = append(out, clone(meeting))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
