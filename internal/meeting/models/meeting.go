// Package models defines the meeting record and its attendance register.
package models

import (
	"time"

	"github.com/google/uuid"

	"saccoflow/internal/workflow"
)

// Attendance type values as recorded by the register clerk.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
	AttendanceExcused = "excused"
)

// AttendanceEntry records one member's presence at a meeting. A non-zero
// Penalty is turned into a ledger charge when the meeting is approved.
type AttendanceEntry struct {
	MemberID uuid.UUID `json:"memberId"`
	Type     string    `json:"type"`
	Penalty  float64   `json:"penalty"`
	Comments string    `json:"comments,omitempty"`
}

// Meeting is a meeting record with its attendance register, moving through
// the review workflow before any attendance penalties post.
type Meeting struct {
	ID         uuid.UUID         `json:"id"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Date       time.Time         `json:"meetingDate"`
	Attendance []AttendanceEntry `json:"attendance"`

	Workflow workflow.State `json:"workflow"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
