package tracker

import "errors"

// Error kinds. Match with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Error is a domain error with a message safe to show to the caller.
// Errors that are not *Error are internal failures.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func validationError(message string) *Error {
	return &Error{Kind: ErrValidation, Message: message}
}

func conflictError(message string) *Error {
	return &Error{Kind: ErrConflict, Message: message}
}

func notFoundError(message string) *Error {
	return &Error{Kind: ErrNotFound, Message: message}
}

// Message returns the caller-facing message of err, or fallback for internal errors.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fallback
}
