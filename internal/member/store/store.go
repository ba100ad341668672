// Package store persists membership records.
package store

import (
	"context"

	"github.com/google/uuid"

	"saccoflow/internal/member/models"
	"saccoflow/internal/workflow"
	dErrors "saccoflow/pkg/domain-errors"
)

// ErrNotFound keeps member lookups consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "member not found")

// Store is the member persistence contract. GetForUpdate must be called
// inside a transaction.
type Store interface {
	Create(ctx context.Context, member *models.Member) error
	Get(ctx context.Context, id uuid.UUID) (*models.Member, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Member, error)
	Update(ctx context.Context, member *models.Member) error
	List(ctx context.Context) ([]*models.Member, error)
	ListByStatus(ctx context.Context, status workflow.Status) ([]*models.Member, error)
}
