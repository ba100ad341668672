// Package store persists ledger lines. The Postgres implementation joins any
// ambient transaction from pkg/platform/tx so terminal-action writes commit
// or roll back with the stage mutation that produced them.
package store

import (
	"context"

	"github.com/google/uuid"

	"saccoflow/internal/ledger/models"
	"saccoflow/internal/workflow"
)

// Store is the ledger line persistence contract.
type Store interface {
	Insert(ctx context.Context, lines ...*models.Line) error
	ListBySource(ctx context.Context, sourceKind workflow.Kind, sourceID uuid.UUID) ([]*models.Line, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]*models.Line, error)
}
