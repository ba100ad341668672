package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"saccoflow/internal/member/models"
	"saccoflow/internal/workflow"
	"saccoflow/internal/workflow/wfsql"
	dErrors "saccoflow/pkg/domain-errors"
	"saccoflow/pkg/platform/tx"
)

// PostgresStore persists members in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed member store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const memberColumns = `id, number, first_name, last_name, position,
	email, mobile1, mobile2, id_type, id_number,
	address_physical, address_postal, date_of_birth, password_hash,
	guarantor_first_name, guarantor_last_name, guarantor_mobile, guarantor_email,
	bank_name, bank_branch, bank_account_name, bank_account_number,
	created_at, updated_at`

var insertMemberSQL = fmt.Sprintf(`
INSERT INTO members (%s, %s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
	$17, $18, $19, $20, $21, $22, $23, $24, %s)`,
	memberColumns, wfsql.ColumnList(), wfsql.Placeholders(25))

func (s *PostgresStore) Create(ctx context.Context, member *models.Member) error {
	exec := tx.Resolve(ctx, s.db)
	args := []any{
		member.ID, member.Number, member.FirstName, member.LastName, member.Position,
		member.Email, member.Mobile1, member.Mobile2, member.IDType, member.IDNumber,
		member.AddressPhysical, member.AddressPostal, wfsql.NullTime(member.DateOfBirth),
		member.PasswordHash,
		member.GuarantorFirstName, member.GuarantorLastName, member.GuarantorMobile, member.GuarantorEmail,
		member.BankName, member.BankBranch, member.BankAccountName, member.BankAccountNumber,
		member.CreatedAt, wfsql.NullTime(member.UpdatedAt),
	}
	args = append(args, wfsql.Args(member.Workflow)...)
	if _, err := exec.ExecContext(ctx, insertMemberSQL, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return dErrors.Newf(dErrors.CodeConflict, "member with email %q already exists", member.Email)
		}
		return dErrors.Wrap(err, dErrors.CodePersistence, "create member")
	}
	return nil
}

var selectMemberSQL = fmt.Sprintf(`
SELECT %s, %s FROM members`, memberColumns, wfsql.ColumnList())

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	exec := tx.Resolve(ctx, s.db)
	row := exec.QueryRowContext(ctx, selectMemberSQL+` WHERE id = $1`, id)
	return scanMember(row)
}

// GetForUpdate loads the member with a row lock. Must run inside a
// transaction.
func (s *PostgresStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	exec := tx.Resolve(ctx, s.db)
	row := exec.QueryRowContext(ctx, selectMemberSQL+` WHERE id = $1 FOR UPDATE`, id)
	return scanMember(row)
}

const updateMemberSQL = `
UPDATE members SET
	updated_at = $2,
	status = $3, stage = $4, approval_levels = $5, created_by = $6, updated_by = $7,
	review1_at = $8, review1_by = $9, review1_comments = $10,
	review2_at = $11, review2_by = $12, review2_comments = $13,
	review3_at = $14, review3_by = $15, review3_comments = $16
WHERE id = $1`

func (s *PostgresStore) Update(ctx context.Context, member *models.Member) error {
	exec := tx.Resolve(ctx, s.db)
	args := []any{member.ID, wfsql.NullTime(member.UpdatedAt)}
	args = append(args, wfsql.Args(member.Workflow)...)
	res, err := exec.ExecContext(ctx, updateMemberSQL, args...)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "update member")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Member, error) {
	return s.query(ctx, selectMemberSQL+` ORDER BY created_at`)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status workflow.Status) ([]*models.Member, error) {
	return s.query(ctx, selectMemberSQL+` WHERE status = $1 ORDER BY created_at`, string(status))
}

func (s *PostgresStore) query(ctx context.Context, q string, args ...any) ([]*models.Member, error) {
	exec := tx.Resolve(ctx, s.db)
	rows, err := exec.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list members")
	}
	defer rows.Close()

	var out []*models.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, member)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "iterate members")
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*models.Member, error) {
	var (
		member    models.Member
		dob       sql.NullTime
		updatedAt sql.NullTime
		wf        wfsql.Row
	)
	targets := []any{
		&member.ID, &member.Number, &member.FirstName, &member.LastName, &member.Position,
		&member.Email, &member.Mobile1, &member.Mobile2, &member.IDType, &member.IDNumber,
		&member.AddressPhysical, &member.AddressPostal, &dob, &member.PasswordHash,
		&member.GuarantorFirstName, &member.GuarantorLastName, &member.GuarantorMobile, &member.GuarantorEmail,
		&member.BankName, &member.BankBranch, &member.BankAccountName, &member.BankAccountNumber,
		&member.CreatedAt, &updatedAt,
	}
	targets = append(targets, wf.Targets()...)
	if err := row.Scan(targets...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "scan member")
	}
	member.DateOfBirth = dob.Time
	member.UpdatedAt = updatedAt.Time
	member.Workflow = wf.State()
	return &member, nil
}
