// Package store persists monthly postings.
package store

import (
	"context"

	"github.com/google/uuid"

	"saccoflow/internal/posting/models"
	"saccoflow/internal/workflow"
	dErrors "saccoflow/pkg/domain-errors"
)

// ErrNotFound keeps posting lookups consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "posting not found")

// Store is the posting persistence contract. GetForUpdate must be called
// inside a transaction; the Postgres implementation takes a row lock so
// concurrent reviews of the same posting serialize.
type Store interface {
	Create(ctx context.Context, posting *models.Posting) error
	Get(ctx context.Context, id uuid.UUID) (*models.Posting, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Posting, error)
	Update(ctx context.Context, posting *models.Posting) error
	List(ctx context.Context) ([]*models.Posting, error)
	ListByStatus(ctx context.Context, status workflow.Status) ([]*models.Posting, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]*models.Posting, error)
}
