package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"saccoflow/internal/posting/models"
	"saccoflow/internal/workflow"
	"saccoflow/internal/workflow/wfsql"
	dErrors "saccoflow/pkg/domain-errors"
	"saccoflow/pkg/platform/tx"
)

// PostgresStore persists postings in PostgreSQL. Postings carry the optional
// guarantor and proof-of-payment columns on top of the shared workflow set.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed posting store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const postingColumns = `id, code, member_id, period, posting_date,
	saving, shares, social, penalty, late_post_penalty,
	loan_interest, loan_month_repayment, loan_application,
	contribution_total, deposit_total, receive_total,
	payment_method_type, payment_method_number, payment_method_name,
	comments, created_at, updated_at`

const guarantorPOPColumns = `guarantor_required, guarantor_at, guarantor_by, guarantor_comments,
	pop_reference, pop_review_at, pop_review_by, pop_review_comments`

var insertPostingSQL = fmt.Sprintf(`
INSERT INTO postings (%s, %s, %s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
	$17, $18, $19, $20, $21, $22, %s,
	$37, $38, $39, $40, $41, $42, $43, $44)`,
	postingColumns, wfsql.ColumnList(), guarantorPOPColumns, wfsql.Placeholders(23))

func (s *PostgresStore) Create(ctx context.Context, posting *models.Posting) error {
	exec := tx.Resolve(ctx, s.db)
	args := []any{
		posting.ID, posting.Code, posting.MemberID, posting.Period, posting.Date,
		posting.Saving, posting.Shares, posting.Social, posting.Penalty, posting.LatePostPenalty,
		posting.LoanInterest, posting.LoanMonthRepayment, posting.LoanApplication,
		posting.ContributionTotal, posting.DepositTotal, posting.ReceiveTotal,
		posting.PaymentMethodType, wfsql.NullString(posting.PaymentMethodNumber),
		wfsql.NullString(posting.PaymentMethodName), wfsql.NullString(posting.Comments),
		posting.CreatedAt, wfsql.NullTime(posting.UpdatedAt),
	}
	args = append(args, wfsql.Args(posting.Workflow)...)
	args = append(args, guarantorPOPArgs(posting.Workflow)...)
	if _, err := exec.ExecContext(ctx, insertPostingSQL, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return dErrors.Newf(dErrors.CodeConflict, "posting %s already exists", posting.ID)
		}
		return dErrors.Wrap(err, dErrors.CodePersistence, "create posting")
	}
	return nil
}

var selectPostingSQL = fmt.Sprintf(`
SELECT %s, %s, %s FROM postings`, postingColumns, wfsql.ColumnList(), guarantorPOPColumns)

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*models.Posting, error) {
	exec := tx.Resolve(ctx, s.db)
	row := exec.QueryRowContext(ctx, selectPostingSQL+` WHERE id = $1`, id)
	return scanPosting(row)
}

// GetForUpdate loads the posting with a row lock. Must run inside a
// transaction; concurrent reviews of the same posting queue behind the lock.
func (s *PostgresStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Posting, error) {
	exec := tx.Resolve(ctx, s.db)
	row := exec.QueryRowContext(ctx, selectPostingSQL+` WHERE id = $1 FOR UPDATE`, id)
	return scanPosting(row)
}

const updatePostingSQL = `
UPDATE postings SET
	updated_at = $2,
	status = $3, stage = $4, approval_levels = $5, created_by = $6, updated_by = $7,
	review1_at = $8, review1_by = $9, review1_comments = $10,
	review2_at = $11, review2_by = $12, review2_comments = $13,
	review3_at = $14, review3_by = $15, review3_comments = $16,
	guarantor_required = $17, guarantor_at = $18, guarantor_by = $19, guarantor_comments = $20,
	pop_reference = $21, pop_review_at = $22, pop_review_by = $23, pop_review_comments = $24
WHERE id = $1`

func (s *PostgresStore) Update(ctx context.Context, posting *models.Posting) error {
	exec := tx.Resolve(ctx, s.db)
	args := []any{posting.ID, wfsql.NullTime(posting.UpdatedAt)}
	args = append(args, wfsql.Args(posting.Workflow)...)
	args = append(args, guarantorPOPArgs(posting.Workflow)...)
	res, err := exec.ExecContext(ctx, updatePostingSQL, args...)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "update posting")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Posting, error) {
	return s.query(ctx, selectPostingSQL+` ORDER BY created_at`)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status workflow.Status) ([]*models.Posting, error) {
	return s.query(ctx, selectPostingSQL+` WHERE status = $1 ORDER BY created_at`, string(status))
}

func (s *PostgresStore) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*models.Posting, error) {
	return s.query(ctx, selectPostingSQL+` WHERE member_id = $1 ORDER BY created_at`, memberID)
}

func (s *PostgresStore) query(ctx context.Context, q string, args ...any) ([]*models.Posting, error) {
	exec := tx.Resolve(ctx, s.db)
	rows, err := exec.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list postings")
	}
	defer rows.Close()

	var out []*models.Posting
	for rows.Next() {
		posting, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, posting)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "iterate postings")
	}
	return out, nil
}

func guarantorPOPArgs(w workflow.State) []any {
	return []any{
		w.GuarantorRequired,
		wfsql.NullTime(w.Guarantor.At), wfsql.NullString(w.Guarantor.By), wfsql.NullString(w.Guarantor.Comments),
		wfsql.NullString(w.POPReference),
		wfsql.NullTime(w.POPReview.At), wfsql.NullString(w.POPReview.By), wfsql.NullString(w.POPReview.Comments),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosting(row rowScanner) (*models.Posting, error) {
	var (
		posting   models.Posting
		number    sql.NullString
		name      sql.NullString
		comments  sql.NullString
		updatedAt sql.NullTime

		wf wfsql.Row

		guarantorRequired bool
		guarAt            sql.NullTime
		guarBy            sql.NullString
		guarComments      sql.NullString
		popReference      sql.NullString
		popAt             sql.NullTime
		popBy             sql.NullString
		popComments       sql.NullString
	)
	targets := []any{
		&posting.ID, &posting.Code, &posting.MemberID, &posting.Period, &posting.Date,
		&posting.Saving, &posting.Shares, &posting.Social, &posting.Penalty, &posting.LatePostPenalty,
		&posting.LoanInterest, &posting.LoanMonthRepayment, &posting.LoanApplication,
		&posting.ContributionTotal, &posting.DepositTotal, &posting.ReceiveTotal,
		&posting.PaymentMethodType, &number, &name, &comments,
		&posting.CreatedAt, &updatedAt,
	}
	targets = append(targets, wf.Targets()...)
	targets = append(targets,
		&guarantorRequired, &guarAt, &guarBy, &guarComments,
		&popReference, &popAt, &popBy, &popComments,
	)
	if err := row.Scan(targets...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "scan posting")
	}

	posting.PaymentMethodNumber = number.String
	posting.PaymentMethodName = name.String
	posting.Comments = comments.String
	posting.UpdatedAt = updatedAt.Time

	posting.Workflow = wf.State()
	posting.Workflow.GuarantorRequired = guarantorRequired
	posting.Workflow.Guarantor = wfsql.Mark(guarAt, guarBy, guarComments)
	posting.Workflow.POPReference = popReference.String
	posting.Workflow.POPReview = wfsql.Mark(popAt, popBy, popComments)
	return &posting, nil
}
