// Package store declares meeting persistence and its in-memory and
// PostgreSQL implementations.
package store

import (
	"context"

	"github.com/google/uuid"

	"saccoflow/internal/meeting/models"
	"saccoflow/internal/workflow"
	dErrors "saccoflow/pkg/domain-errors"
)

// ErrNotFound keeps meeting lookups consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "meeting not found")

// Store is the meeting persistence contract.
type Store interface {
	Create(ctx context.Context, meeting *models.Meeting) error
	Get(ctx context.Context, id uuid.UUID) (*models.Meeting, error)
	// GetForUpdate loads the meeting with a row lock held for the duration
	// of the ambient transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Meeting, error)
	Update(ctx context.Context, meeting *models.Meeting) error
	List(ctx context.Context) ([]*models.Meeting, error)
	ListByStatus(ctx context.Context, status workflow.Status) ([]*models.Meeting, error)
}
