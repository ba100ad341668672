package workflow

import "time"

// ReviewMark is one stage's audit entry: who decided, when, and the free-text
// comment. Populated exactly once when the stage's decision is recorded.
type ReviewMark struct {
	At       time.Time `json:"at"`
	By       string    `json:"by"`
	Comments string    `json:"comments,omitempty"`
}

// Done reports whether the mark has been written.
func (m ReviewMark) Done() bool { return !m.At.IsZero() }

// State is the workflow portion of a reviewable record. Feature models embed
// it; the record row carries it in full, so protocol state stays colocated
// with business data.
type State struct {
	Status Status `json:"status"`
	Stage  Stage  `json:"stage"`

	// ApprovalLevels is fixed at creation and never changes mid-flight.
	ApprovalLevels int `json:"approvalLevels"`

	CreatedBy string `json:"createdBy"`
	UpdatedBy string `json:"updatedBy,omitempty"`

	Review1 ReviewMark `json:"review1,omitzero"`
	Review2 ReviewMark `json:"review2,omitzero"`
	Review3 ReviewMark `json:"review3,omitzero"`

	// GuarantorRequired is decided at the Submitted→Primary decision point
	// and frozen; later stages read it, they never re-decide it.
	GuarantorRequired bool       `json:"guarantorRequired,omitempty"`
	Guarantor         ReviewMark `json:"guarantor,omitzero"`

	// POPReference is the uploaded proof-of-payment attachment reference.
	POPReference string     `json:"popReference,omitempty"`
	POPReview    ReviewMark `json:"popReview,omitzero"`
}

// NewState returns the initial workflow state for a record entering review.
// Records are created already submitted, at the path's first non-terminal
// position.
func NewState(createdBy string, levels int) (State, error) {
	if err := ValidateApprovalLevels(levels); err != nil {
		return State{}, err
	}
	return State{
		Status:         StatusSubmitted,
		Stage:          StageSubmitted,
		ApprovalLevels: levels,
		CreatedBy:      createdBy,
	}, nil
}

// Decision is the fixed, validated input shape of one review call. There is
// no generic partial-update path into workflow state.
type Decision struct {
	// Actor is the resolved identity of the acting user.
	Actor string

	Action   Action
	Comments string

	// GuarantorRequired is honored only at the Submitted decision point
	// and ignored everywhere else. Nil means the caller expressed no
	// intent, which reads as "not required".
	GuarantorRequired *bool

	// POPReference must accompany the proof-of-payment upload transition.
	POPReference string
}

// Outcome reports what a successful transition did.
type Outcome struct {
	// Stamped is the audit mark written for the traversed stage.
	Stamped ReviewMark

	// FromStage and ToStage bracket the transition. On rejection ToStage
	// equals FromStage.
	FromStage Stage
	ToStage   Stage

	Status Status

	// TerminalActionRequired is true exactly when this transition moved the
	// record into Approved, and the caller must dispatch the terminal
	// action inside the same transaction.
	TerminalActionRequired bool
}
