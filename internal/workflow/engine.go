package workflow

import (
	"time"

	dErrors "saccoflow/pkg/domain-errors"
)

// Apply computes and applies one review transition on s. It is deterministic
// and performs no I/O; persistence, actor resolution, and terminal-action
// dispatch belong to the caller, which must run all of it atomically.
//
// Errors are raised before any field of s is touched, so a failed call leaves
// the state unchanged.
func Apply(s *State, cfg Config, d Decision, now time.Time) (Outcome, error) {
	if err := precheck(s, d); err != nil {
		return Outcome{}, err
	}

	mark := ReviewMark{At: now, By: d.Actor, Comments: d.Comments}
	out := Outcome{Stamped: mark, FromStage: s.Stage}

	switch s.Stage {
	case StageSubmitted:
		s.Review1 = mark
		if d.Action == ActionReject {
			break
		}
		// The guarantor decision is only honored here; it freezes on the
		// record and later stages read the stored flag.
		if cfg.GuarantorAllowed && d.GuarantorRequired != nil {
			s.GuarantorRequired = *d.GuarantorRequired
		}
		if s.ApprovalLevels == 1 {
			s.Stage = nextSegment(s, cfg)
		} else {
			s.Stage = StagePrimary
		}

	case StagePrimary:
		s.Review2 = mark
		if d.Action == ActionReject {
			break
		}
		if s.ApprovalLevels == 2 {
			s.Stage = nextSegment(s, cfg)
		} else {
			s.Stage = StageSecondary
		}

	case StageSecondary:
		s.Review3 = mark
		if d.Action == ActionReject {
			break
		}
		s.Stage = nextSegment(s, cfg)

	case StageGuarantor:
		s.Guarantor = mark
		if d.Action == ActionReject {
			break
		}
		if cfg.POPRequired {
			s.Stage = StagePOPUpload
		} else {
			s.Stage = StageApproved
		}

	case StagePOPUpload:
		// Driven by the upload event; the reference was validated in
		// precheck. No audit mark: uploading is not itself a decision.
		out.Stamped = ReviewMark{}
		s.POPReference = d.POPReference
		s.Stage = StagePOPApproval

	case StagePOPApproval:
		s.POPReview = mark
		if d.Action == ActionReject {
			break
		}
		s.Stage = StageApproved
	}

	if d.Action == ActionReject {
		// Rejection freezes the stage and only flips the status. The upload
		// step never reaches here; precheck refuses rejects there.
		s.Status = StatusRejected
	} else if s.Stage == StageApproved {
		s.Status = StatusApproved
		out.TerminalActionRequired = true
	}

	s.UpdatedBy = d.Actor
	out.ToStage = s.Stage
	out.Status = s.Status
	return out, nil
}

// precheck enforces every precondition from the review contract before any
// mutation: terminal guard, actor resolution, action validity, reviewer
// eligibility, and the POP upload reference.
func precheck(s *State, d Decision) error {
	if d.Actor == "" {
		return dErrors.New(dErrors.CodeInvalidActor, "acting user identity is required")
	}
	if s.Status.Terminal() {
		return dErrors.Newf(dErrors.CodeAlreadyFinalized,
			"record is already %s and accepts no further reviews", s.Status)
	}
	if err := ValidateApprovalLevels(s.ApprovalLevels); err != nil {
		return err
	}

	switch s.Stage {
	case StageAwaitingSubmission:
		return dErrors.New(dErrors.CodeValidation, "record has not been submitted for review")

	case StageSubmitted:
		if d.Actor == s.CreatedBy {
			return dErrors.New(dErrors.CodeSelfReview,
				"the creator of a record cannot be its first reviewer")
		}

	case StagePrimary:
		if d.Actor == s.Review1.By {
			return dErrors.New(dErrors.CodeSameReviewer,
				"the first reviewer cannot also perform the second review")
		}

	case StageSecondary:
		if d.Actor == s.Review2.By {
			return dErrors.New(dErrors.CodeSameReviewer,
				"the second reviewer cannot also perform the final review")
		}

	case StagePOPUpload:
		if d.Action == ActionReject {
			return dErrors.New(dErrors.CodeValidation,
				"proof-of-payment upload is not reviewable and cannot be rejected")
		}
		if d.POPReference == "" {
			return dErrors.New(dErrors.CodeValidation,
				"a proof-of-payment reference is required at the upload step")
		}

	case StageApproved:
		// Unreachable when status and stage are consistent; guard anyway.
		return dErrors.New(dErrors.CodeAlreadyFinalized, "record is already approved")
	}

	if d.Action != ActionApprove && d.Action != ActionReject {
		return dErrors.Newf(dErrors.CodeValidation, "unknown review action %q", d.Action)
	}
	return nil
}

// nextSegment returns the first non-numeric stage of the record's path:
// guarantor when the frozen flag demands it, then the POP pair, then
// Approved.
func nextSegment(s *State, cfg Config) Stage {
	if cfg.GuarantorAllowed && s.GuarantorRequired {
		return StageGuarantor
	}
	if cfg.POPRequired {
		return StagePOPUpload
	}
	return StageApproved
}
