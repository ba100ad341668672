package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"saccoflow/internal/ledger/models"
	"saccoflow/internal/workflow"
	dErrors "saccoflow/pkg/domain-errors"
	"saccoflow/pkg/platform/tx"
)

// PostgresStore persists ledger lines in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const insertLineSQL = `
INSERT INTO ledger_lines (
	id, kind, source_kind, source_id, member_id, amount, comments,
	term_months, interest_rate, status, stage, closed, posted_at, created_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

func (s *PostgresStore) Insert(ctx context.Context, lines ...*models.Line) error {
	exec := tx.Resolve(ctx, s.db)
	for _, line := range lines {
		_, err := exec.ExecContext(ctx, insertLineSQL,
			line.ID, string(line.Kind), string(line.SourceKind), line.SourceID,
			line.MemberID, line.Amount, line.Comments,
			nullInt(line.TermMonths), nullFloat(line.InterestRate),
			string(line.Status), string(line.Stage), line.Closed,
			line.PostedAt, line.CreatedBy,
		)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
				return dErrors.Wrap(err, dErrors.CodeConflict, "ledger line already exists")
			}
			return dErrors.Wrap(err, dErrors.CodePersistence, "insert ledger line")
		}
	}
	return nil
}

const selectLineSQL = `
SELECT id, kind, source_kind, source_id, member_id, amount, comments,
	term_months, interest_rate, status, stage, closed, posted_at, created_by
FROM ledger_lines`

func (s *PostgresStore) ListBySource(ctx context.Context, sourceKind workflow.Kind, sourceID uuid.UUID) ([]*models.Line, error) {
	exec := tx.Resolve(ctx, s.db)
	rows, err := exec.QueryContext(ctx,
		selectLineSQL+` WHERE source_kind = $1 AND source_id = $2 ORDER BY posted_at, kind`,
		string(sourceKind), sourceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list ledger lines by source")
	}
	defer rows.Close()
	return scanLines(rows)
}

func (s *PostgresStore) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*models.Line, error) {
	exec := tx.Resolve(ctx, s.db)
	rows, err := exec.QueryContext(ctx,
		selectLineSQL+` WHERE member_id = $1 ORDER BY posted_at, kind`, memberID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list ledger lines by member")
	}
	defer rows.Close()
	return scanLines(rows)
}

func scanLines(rows *sql.Rows) ([]*models.Line, error) {
	var out []*models.Line
	for rows.Next() {
		var (
			line         models.Line
			kind         string
			sourceKind   string
			status       string
			stage        string
			termMonths   sql.NullInt64
			interestRate sql.NullFloat64
		)
		err := rows.Scan(&line.ID, &kind, &sourceKind, &line.SourceID, &line.MemberID,
			&line.Amount, &line.Comments, &termMonths, &interestRate,
			&status, &stage, &line.Closed, &line.PostedAt, &line.CreatedBy)
		if err != nil {
			return nil, fmt.Errorf("scan ledger line: %w", err)
		}
		line.Kind = models.LineKind(kind)
		line.SourceKind = workflow.Kind(sourceKind)
		line.Status = workflow.Status(status)
		line.Stage = workflow.Stage(stage)
		line.TermMonths = int(termMonths.Int64)
		line.InterestRate = interestRate.Float64
		out = append(out, &line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger lines: %w", err)
	}
	return out, nil
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}
