// Package models defines ledger lines, the derived writes emitted by
// terminal actions when a record reaches Approved.
package models

import (
	"time"

	"github.com/google/uuid"

	"saccoflow/internal/workflow"
)

// LineKind classifies a ledger line by the balance it moves.
type LineKind string

const (
	LineSavings           LineKind = "savings"
	LineShares            LineKind = "shares"
	LineSocialFund        LineKind = "social_fund"
	LinePenaltyCharge     LineKind = "penalty_charge"
	LinePenaltySettlement LineKind = "penalty_settlement"
	LineLoan              LineKind = "loan"
)

// Line is one ledger entry. Lines are born already approved and closed so
// they never re-enter the review workflow that produced them.
type Line struct {
	ID uuid.UUID `json:"id"`

	Kind LineKind `json:"kind"`

	// SourceKind and SourceID point back at the approved record whose
	// terminal action emitted this line.
	SourceKind workflow.Kind `json:"sourceKind"`
	SourceID   uuid.UUID     `json:"sourceId"`

	MemberID uuid.UUID `json:"memberId"`

	Amount   float64 `json:"amount"`
	Comments string  `json:"comments,omitempty"`

	// Loan terms, populated only on LineLoan entries.
	TermMonths   int     `json:"termMonths,omitempty"`
	InterestRate float64 `json:"interestRate,omitempty"`

	Status workflow.Status `json:"status"`
	Stage  workflow.Stage  `json:"stage"`
	Closed bool            `json:"closed"`

	PostedAt  time.Time `json:"postedAt"`
	CreatedBy string    `json:"createdBy"`
}

// NewLine builds an already-approved, closed ledger line.
func NewLine(kind LineKind, sourceKind workflow.Kind, sourceID, memberID uuid.UUID, amount float64, postedAt time.Time, createdBy string) *Line {
	return &Line{
		ID:         uuid.New(),
		Kind:       kind,
		SourceKind: sourceKind,
		SourceID:   sourceID,
		MemberID:   memberID,
		Amount:     amount,
		Status:     workflow.StatusApproved,
		Stage:      workflow.StageApproved,
		Closed:     true,
		PostedAt:   postedAt,
		CreatedBy:  createdBy,
	}
}
