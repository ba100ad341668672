package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"saccoflow/internal/posting/models"
	"saccoflow/internal/workflow"
	dErrors "saccoflow/pkg/domain-errors"
)

// MemoryStore keeps postings in memory for tests and local development.
// Review serialization comes from the caller's tx.MemoryRunner, not from
// this store.
type MemoryStore struct {
	mu       sync.RWMutex
	postings map[uuid.UUID]*models.Posting
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{postings: make(map[uuid.UUID]*models.Posting)}
}

func (s *MemoryStore) Create(_ context.Context, posting *models.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.postings[posting.ID]; ok {
		return dErrors.Newf(dErrors.CodeConflict, "posting %s already exists", posting.ID)
	}
	copied := *posting
	s.postings[posting.ID] = &copied
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if posting, ok := s.postings[id]; ok {
		copied := *posting
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Posting, error) {
	return s.Get(ctx, id)
}

func (s *MemoryStore) Update(_ context.Context, posting *models.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.postings[posting.ID]; !ok {
		return ErrNotFound
	}
	copied := *posting
	s.postings[posting.ID] = &copied
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*models.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(*models.Posting) bool { return true }), nil
}

func (s *MemoryStore) ListByStatus(_ context.Context, status workflow.Status) ([]*models.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(p *models.Posting) bool { return p.Workflow.Status == status }), nil
}

func (s *MemoryStore) ListByMember(_ context.Context, memberID uuid.UUID) ([]*models.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(p *models.Posting) bool { return p.MemberID == memberID }), nil
}

func (s *MemoryStore) collect(keep func(*models.Posting) bool) []*models.Posting {
	out := make([]*models.Posting, 0, len(s.postings))
	for _, posting := range s.postings {
		if keep(posting) {
			copied := *posting
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
