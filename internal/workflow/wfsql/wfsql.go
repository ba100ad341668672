// Package wfsql shares the SQL plumbing for the workflow columns every
// reviewable table carries: status, stage, approval levels, actor stamps, and
// the three numbered review marks. Kinds with guarantor/POP segments add
// those columns in their own stores.
package wfsql

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"saccoflow/internal/workflow"
)

// Columns is the canonical column list, in Args/Row order.
const Columns = `status, stage, approval_levels, created_by, updated_by,
	review1_at, review1_by, review1_comments,
	review2_at, review2_by, review2_comments,
	review3_at, review3_by, review3_comments`

// ColumnList returns Columns as a flat single-line fragment.
func ColumnList() string {
	return strings.Join(strings.Fields(Columns), " ")
}

// Placeholders returns $from..$from+13 for the workflow columns.
func Placeholders(from int) string {
	parts := make([]string, 0, 14)
	for i := range 14 {
		parts = append(parts, "$"+strconv.Itoa(from+i))
	}
	return strings.Join(parts, ", ")
}

// Args flattens a workflow state into insert/update arguments matching
// Columns order.
func Args(s workflow.State) []any {
	return []any{
		string(s.Status), string(s.Stage), s.ApprovalLevels,
		s.CreatedBy, nullString(s.UpdatedBy),
		nullTime(s.Review1.At), nullString(s.Review1.By), nullString(s.Review1.Comments),
		nullTime(s.Review2.At), nullString(s.Review2.By), nullString(s.Review2.Comments),
		nullTime(s.Review3.At), nullString(s.Review3.By), nullString(s.Review3.Comments),
	}
}

// Row receives the workflow columns from a scan. Pass Targets to rows.Scan in
// Columns order, then call State to materialize.
type Row struct {
	Status         string
	Stage          string
	ApprovalLevels int
	CreatedBy      string
	UpdatedBy      sql.NullString

	Review1At       sql.NullTime
	Review1By       sql.NullString
	Review1Comments sql.NullString
	Review2At       sql.NullTime
	Review2By       sql.NullString
	Review2Comments sql.NullString
	Review3At       sql.NullTime
	Review3By       sql.NullString
	Review3Comments sql.NullString
}

// Targets returns scan destinations in Columns order.
func (r *Row) Targets() []any {
	return []any{
		&r.Status, &r.Stage, &r.ApprovalLevels, &r.CreatedBy, &r.UpdatedBy,
		&r.Review1At, &r.Review1By, &r.Review1Comments,
		&r.Review2At, &r.Review2By, &r.Review2Comments,
		&r.Review3At, &r.Review3By, &r.Review3Comments,
	}
}

// State materializes the scanned row into a workflow state.
func (r *Row) State() workflow.State {
	return workflow.State{
		Status:         workflow.Status(r.Status),
		Stage:          workflow.Stage(r.Stage),
		ApprovalLevels: r.ApprovalLevels,
		CreatedBy:      r.CreatedBy,
		UpdatedBy:      r.UpdatedBy.String,
		Review1:        mark(r.Review1At, r.Review1By, r.Review1Comments),
		Review2:        mark(r.Review2At, r.Review2By, r.Review2Comments),
		Review3:        mark(r.Review3At, r.Review3By, r.Review3Comments),
	}
}

// Mark converts nullable audit columns into a review mark.
func Mark(at sql.NullTime, by, comments sql.NullString) workflow.ReviewMark {
	return mark(at, by, comments)
}

func mark(at sql.NullTime, by, comments sql.NullString) workflow.ReviewMark {
	if !at.Valid {
		return workflow.ReviewMark{}
	}
	return workflow.ReviewMark{At: at.Time, By: by.String, Comments: comments.String}
}

// NullTime wraps a possibly-zero time for nullable columns.
func NullTime(t time.Time) sql.NullTime { return nullTime(t) }

// NullString wraps a possibly-empty string for nullable columns.
func NullString(s string) sql.NullString { return nullString(s) }

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
