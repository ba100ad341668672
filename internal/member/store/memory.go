package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"saccoflow/internal/member/models"
	"saccoflow/internal/workflow"
	dErrors "saccoflow/pkg/domain-errors"
)

// MemoryStore keeps members in memory for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	members map[uuid.UUID]*models.Member
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{members: make(map[uuid.UUID]*models.Member)}
}

func (s *MemoryStore) Create(_ context.Context, member *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.members {
		if strings.EqualFold(existing.Email, member.Email) {
			return dErrors.Newf(dErrors.CodeConflict, "member with email %q already exists", member.Email)
		}
	}
	copied := *member
	s.members[member.ID] = &copied
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if member, ok := s.members[id]; ok {
		copied := *member
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	return s.Get(ctx, id)
}

func (s *MemoryStore) Update(_ context.Context, member *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[member.ID]; !ok {
		return ErrNotFound
	}
	copied := *member
	s.members[member.ID] = &copied
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(*models.Member) bool { return true }), nil
}

func (s *MemoryStore) ListByStatus(_ context.Context, status workflow.Status) ([]*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(m *models.Member) bool { return m.Workflow.Status == status }), nil
}

func (s *MemoryStore) collect(keep func(*models.Member) bool) []*models.Member {
	out := make([]*models.Member, 0, len(s.members))
	for _, member := range s.members {
		if keep(member) {
			copied := *member
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
