// Package workflow implements the multi-stage approval state machine shared
// by every reviewable record kind: the stage catalog, the per-kind
// configuration, the review transition engine, and the terminal-action
// contract.
//
// The engine is entity-agnostic. Feature services embed a State value in
// their records, call Apply with their kind's Config, and run the resulting
// mutation plus any terminal-action writes inside one transaction.
package workflow

import (
	"fmt"

	dErrors "saccoflow/pkg/domain-errors"
)

// Status is the record's terminal classification, orthogonal to stage.
// Rejected and Approved are terminal: once set, no further transition is
// accepted.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusRejected  Status = "rejected"
	StatusApproved  Status = "approved"
)

// Terminal reports whether the status accepts no further review decisions.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusApproved
}

// ParseStatus validates a stored or caller-supplied status string.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusDraft, StatusSubmitted, StatusRejected, StatusApproved:
		return Status(raw), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown status %q", raw)
}

// Stage is a named point in a record's review path. A record's stage advances
// monotonically forward along the configured path and never moves backward;
// rejection freezes the record at the stage where it occurred.
type Stage string

const (
	StageAwaitingSubmission Stage = "awaiting_submission"
	StageSubmitted          Stage = "submitted"
	StagePrimary            Stage = "primary_approval"
	StageSecondary          Stage = "secondary_approval"
	StageGuarantor          Stage = "guarantor_approval"
	StagePOPUpload          Stage = "pop_upload"
	StagePOPApproval        Stage = "pop_approval"
	StageApproved           Stage = "approved"
)

// stageOrder is the single canonical ordering table for the catalog. Every
// configured path is a subsequence of this ordering, which is what makes the
// forward-only invariant checkable.
var stageOrder = map[Stage]int{
	StageAwaitingSubmission: 0,
	StageSubmitted:          1,
	StagePrimary:            2,
	StageSecondary:          3,
	StageGuarantor:          4,
	StagePOPUpload:          5,
	StagePOPApproval:        6,
	StageApproved:           7,
}

// ParseStage validates a stored stage string.
func ParseStage(raw string) (Stage, error) {
	if _, ok := stageOrder[Stage(raw)]; ok {
		return Stage(raw), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown stage %q", raw)
}

// Before reports whether s precedes other in the canonical ordering.
func (s Stage) Before(other Stage) bool {
	return stageOrder[s] < stageOrder[other]
}

// Numeric reports whether the stage is one of the numbered review stages
// bounded by a record's approval levels. The Submitted stage hosts the first
// numbered review decision, so it counts as numeric.
func (s Stage) Numeric() bool {
	return s == StageSubmitted || s == StagePrimary || s == StageSecondary
}

func (s Stage) String() string { return string(s) }

// Action is a review decision verb.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ParseAction validates a caller-supplied action. The review operation
// accepts exactly these two verbs; anything else is rejected before any
// write is issued.
func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionApprove, ActionReject:
		return Action(raw), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "action must be %q or %q, got %q",
		ActionApprove, ActionReject, raw)
}

func (a Action) String() string { return string(a) }

// MinApprovalLevels and MaxApprovalLevels bound the configurable count of
// numbered review steps. Fixed at record creation, immutable mid-flight.
const (
	MinApprovalLevels = 1
	MaxApprovalLevels = 3
)

// ValidateApprovalLevels rejects out-of-range level counts at creation time.
func ValidateApprovalLevels(levels int) error {
	if levels < MinApprovalLevels || levels > MaxApprovalLevels {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("approval levels must be between %d and %d, got %d",
				MinApprovalLevels, MaxApprovalLevels, levels))
	}
	return nil
}
