package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"saccoflow/internal/meeting/models"
	"saccoflow/internal/workflow"
	"saccoflow/internal/workflow/wfsql"
	dErrors "saccoflow/pkg/domain-errors"
	"saccoflow/pkg/platform/tx"
)

// PostgresStore persists meetings in PostgreSQL. The attendance register is
// stored as a JSONB document alongside the meeting row.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed meeting store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const meetingColumns = `id, title, content, meeting_date, attendance, created_at, updated_at`

var insertMeetingSQL = fmt.Sprintf(`
INSERT INTO meetings (%s, %s)
VALUES ($1, $2, $3, $4, $5, $6, $7, %s)`,
	meetingColumns, wfsql.ColumnList(), wfsql.Placeholders(8))

func (s *PostgresStore) Create(ctx context.Context, meeting *models.Meeting) error {
	exec := tx.Resolve(ctx, s.db)
	attendance, err := json.Marshal(meeting.Attendance)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode attendance")
	}
	args := []any{
		meeting.ID, meeting.Title, meeting.Content, meeting.Date, attendance,
		meeting.CreatedAt, wfsql.NullTime(meeting.UpdatedAt),
	}
	args = append(args, wfsql.Args(meeting.Workflow)...)
	if _, err := exec.ExecContext(ctx, insertMeetingSQL, args...); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "create meeting")
	}
	return nil
}

var selectMeetingSQL = fmt.Sprintf(`
SELECT %s, %s FROM meetings`, meetingColumns, wfsql.ColumnList())

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	exec := tx.Resolve(ctx, s.db)
	row := exec.QueryRowContext(ctx, selectMeetingSQL+` WHERE id = $1`, id)
	return scanMeeting(row)
}

// GetForUpdate loads the meeting with a row lock. Must run inside a
// transaction.
func (s *PostgresStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	exec := tx.Resolve(ctx, s.db)
	row := exec.QueryRowContext(ctx, selectMeetingSQL+` WHERE id = $1 FOR UPDATE`, id)
	return scanMeeting(row)
}

const updateMeetingSQL = `
UPDATE meetings SET
	updated_at = $2,
	status = $3, stage = $4, approval_levels = $5, created_by = $6, updated_by = $7,
	review1_at = $8, review1_by = $9, review1_comments = $10,
	review2_at = $11, review2_by = $12, review2_comments = $13,
	review3_at = $14, review3_by = $15, review3_comments = $16
WHERE id = $1`

func (s *PostgresStore) Update(ctx context.Context, meeting *models.Meeting) error {
	exec := tx.Resolve(ctx, s.db)
	args := []any{meeting.ID, wfsql.NullTime(meeting.UpdatedAt)}
	args = append(args, wfsql.Args(meeting.Workflow)...)
	res, err := exec.ExecContext(ctx, updateMeetingSQL, args...)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "update meeting")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Meeting, error) {
	return s.query(ctx, selectMeetingSQL+` ORDER BY meeting_date`)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status workflow.Status) ([]*models.Meeting, error) {
	return s.query(ctx, selectMeetingSQL+` WHERE status = $1 ORDER BY meeting_date`, string(status))
}

func (s *PostgresStore) query(ctx context.Context, q string, args ...any) ([]*models.Meeting, error) {
	exec := tx.Resolve(ctx, s.db)
	rows, err := exec.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list meetings")
	}
	defer rows.Close()

	var out []*models.Meeting
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "iterate meetings")
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (*models.Meeting, error) {
	var (
		meeting    models.Meeting
		attendance []byte
		updatedAt  sql.NullTime
		wf         wfsql.Row
	)
	targets := []any{
		&meeting.ID, &meeting.Title, &meeting.Content, &meeting.Date, &attendance,
		&meeting.CreatedAt, &updatedAt,
	}
	targets = append(targets, wf.Targets()...)
	if err := row.Scan(targets...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "scan meeting")
	}
	if err := json.Unmarshal(attendance, &meeting.Attendance); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "decode attendance")
	}
	meeting.UpdatedAt = updatedAt.Time
	meeting.Workflow = wf.State()
	return &meeting, nil
}
