// Package domainerrors provides coded errors shared across feature packages.
//
// Handlers translate codes into HTTP statuses; services create and wrap these
// errors so callers can distinguish policy violations (not retryable by the
// same actor) from transient persistence faults (retryable).
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeNotFound signals that a record or acting-user identity does not
	// resolve. Surfaced to the caller, no retry.
	CodeNotFound Code = "not_found"

	// CodeInvalidActor signals that the acting user could not be resolved
	// to an identity.
	CodeInvalidActor Code = "invalid_actor"

	// CodeAlreadyFinalized signals that the record is already Approved or
	// Rejected and accepts no further review decisions.
	CodeAlreadyFinalized Code = "already_finalized"

	// CodeSelfReview signals that the record's creator attempted the first
	// review of their own record.
	CodeSelfReview Code = "self_review_forbidden"

	// CodeSameReviewer signals that a reviewer attempted to approve their
	// own prior approval.
	CodeSameReviewer Code = "same_reviewer_forbidden"

	// CodeValidation signals a malformed action or a missing required
	// field, e.g. no proof-of-payment reference at the upload step.
	CodeValidation Code = "validation_failed"

	// CodeConflict signals a concurrent-modification conflict detected by
	// the persistence layer.
	CodeConflict Code = "conflict"

	// CodeUnauthorized signals a missing, invalid, or expired access token.
	CodeUnauthorized Code = "unauthorized"

	// CodePersistence signals a failed commit. The whole transition rolled
	// back; callers may retry.
	CodePersistence Code = "persistence_failed"

	// CodeTimeout signals that the unit of work exceeded its deadline.
	CodeTimeout Code = "timeout"

	// CodeInternal is the catch-all for unexpected faults.
	CodeInternal Code = "internal"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the code from err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the user-facing message from err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// Retryable reports whether the caller may retry the same request. Policy
// rejections and terminal-state guards are not retryable.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodePersistence, CodeTimeout, CodeConflict:
		return true
	}
	return false
}
