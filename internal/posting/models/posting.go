// Package models defines the monthly financial posting record.
package models

import (
	"time"

	"github.com/google/uuid"

	"saccoflow/internal/workflow"
)

// Posting is one member's monthly contribution record. It enters review on
// creation and, on final approval, fans out into ledger lines.
type Posting struct {
	ID       uuid.UUID `json:"id"`
	Code     string    `json:"code"`
	MemberID uuid.UUID `json:"memberId"`

	// Period names the posting period, e.g. "2026-03".
	Period string    `json:"period"`
	Date   time.Time `json:"date"`

	Saving  float64 `json:"saving"`
	Shares  float64 `json:"shares"`
	Social  float64 `json:"social"`
	Penalty float64 `json:"penalty"`

	LatePostPenalty float64 `json:"latePostPenalty"`

	LoanInterest       float64 `json:"loanInterest"`
	LoanMonthRepayment float64 `json:"loanMonthRepayment"`
	LoanApplication    float64 `json:"loanApplication"`

	ContributionTotal float64 `json:"contributionTotal"`
	DepositTotal      float64 `json:"depositTotal"`
	ReceiveTotal      float64 `json:"receiveTotal"`

	PaymentMethodType   string `json:"paymentMethodType"`
	PaymentMethodNumber string `json:"paymentMethodNumber,omitempty"`
	PaymentMethodName   string `json:"paymentMethodName,omitempty"`

	Comments string `json:"comments,omitempty"`

	Workflow workflow.State `json:"workflow"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}
