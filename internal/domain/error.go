package domain

import "errors"

var (
	// Error kinds. Callers branch on these with errors.Is.
	ErrNotFound    = errors.New("entity not found")
	ErrValidation  = errors.New("validation failed")
	ErrGateway     = errors.New("gateway call failed")
	ErrExpirySweep = errors.New("expiry sweep failed")
	ErrConflict    = errors.New("draft changed concurrently")

	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
)

// Validation failures. Each unwraps to ErrValidation.
var (
	ErrMissingFields         = validation("description and contact are required")
	ErrMissingTheme          = validation("a theme must be selected before publishing")
	ErrInvalidContact        = validation("contact must be a telegram username of 5-32 letters, digits or underscores")
	ErrInvalidTheme          = validation("unknown theme")
	ErrThemeChangeLimit      = validation("theme change limit reached")
	ErrSelfRating            = validation("users cannot rate themselves")
	ErrDuplicateRating       = validation("rating for this user already submitted")
	ErrInvalidScore          = validation("score must be between 1 and 5")
	ErrNoPendingPayment      = validation("no pending payment")
	ErrNoPendingConfirmation = validation("nothing to confirm")
	ErrNotPublished          = validation("draft is not published")
)

type kindError struct {
	msg  string
	kind error
}

func validation(msg string) error { return &kindError{msg: msg, kind: ErrValidation} }

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
