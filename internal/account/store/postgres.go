package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"saccoflow/internal/account/models"
	"saccoflow/internal/workflow/wfsql"
	dErrors "saccoflow/pkg/domain-errors"
	"saccoflow/pkg/platform/tx"
)

// PostgresStore persists accounts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed account store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var insertAccountSQL = fmt.Sprintf(`
INSERT INTO accounts (
	id, code, first_name, last_name, position, email, mobile,
	address_physical, address_postal, role, password_hash, created_at, updated_at,
	%s
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, %s)`,
	wfsql.ColumnList(), wfsql.Placeholders(14))

func (s *PostgresStore) Create(ctx context.Context, account *models.Account) error {
	exec := tx.Resolve(ctx, s.db)
	args := []any{
		account.ID, account.Code, account.FirstName, account.LastName,
		account.Position, account.Email, account.Mobile,
		account.AddressPhysical, account.AddressPostal, account.Role,
		account.PasswordHash, account.CreatedAt, wfsql.NullTime(account.UpdatedAt),
	}
	args = append(args, wfsql.Args(account.Workflow)...)
	if _, err := exec.ExecContext(ctx, insertAccountSQL, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return dErrors.Newf(dErrors.CodeConflict, "account with email %q already exists", account.Email)
		}
		return dErrors.Wrap(err, dErrors.CodePersistence, "create account")
	}
	return nil
}

var selectAccountSQL = fmt.Sprintf(`
SELECT id, code, first_name, last_name, position, email, mobile,
	address_physical, address_postal, role, password_hash, created_at, updated_at,
	%s
FROM accounts`, wfsql.ColumnList())

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	exec := tx.Resolve(ctx, s.db)
	row := exec.QueryRowContext(ctx, selectAccountSQL+` WHERE id = $1`, id)
	return scanAccount(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	exec := tx.Resolve(ctx, s.db)
	row := exec.QueryRowContext(ctx, selectAccountSQL+` WHERE lower(email) = lower($1)`, email)
	return scanAccount(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Account, error) {
	exec := tx.Resolve(ctx, s.db)
	rows, err := exec.QueryContext(ctx, selectAccountSQL+` ORDER BY email`)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list accounts")
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "iterate accounts")
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		account   models.Account
		updatedAt sql.NullTime
		wf        wfsql.Row
	)
	targets := []any{
		&account.ID, &account.Code, &account.FirstName, &account.LastName,
		&account.Position, &account.Email, &account.Mobile,
		&account.AddressPhysical, &account.AddressPostal, &account.Role,
		&account.PasswordHash, &account.CreatedAt, &updatedAt,
	}
	targets = append(targets, wf.Targets()...)
	if err := row.Scan(targets...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "scan account")
	}
	account.UpdatedAt = updatedAt.Time
	account.Workflow = wf.State()
	return &account, nil
}
