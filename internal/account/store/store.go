// Package store persists user accounts.
package store

import (
	"context"

	"github.com/google/uuid"

	"saccoflow/internal/account/models"
	dErrors "saccoflow/pkg/domain-errors"
)

// ErrNotFound keeps account lookups consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "account not found")

// Store is the account persistence contract.
type Store interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)
}
