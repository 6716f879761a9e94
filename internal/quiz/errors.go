package quiz

import (
	"errors"
	"fmt"
)

// Kind is the stable, caller-facing category of a quiz error.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindNotStarted        Kind = "not_started"
	KindExpired           Kind = "expired"
	KindLimitReached      Kind = "limit_reached"
	KindAlreadyInProgress Kind = "already_in_progress"
	KindConflict          Kind = "conflict"
	KindValidation        Kind = "validation_failed"
)

// FieldError points a validation failure at a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned by the catalog, the tracker and the stores.
type Error struct {
	Kind   Kind
	Msg    string
	Fields []FieldError
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return e.Msg
}

// Is matches on Kind so errors.Is(err, ErrNotFound) works for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrNotStarted        = &Error{Kind: KindNotStarted, Msg: "quiz has not opened yet"}
	ErrExpired           = &Error{Kind: KindExpired, Msg: "quiz window has closed"}
	ErrLimitReached      = &Error{Kind: KindLimitReached, Msg: "attempt limit reached"}
	ErrAlreadyInProgress = &Error{Kind: KindAlreadyInProgress, Msg: "an attempt is already in progress"}
	ErrConflict          = &Error{Kind: KindConflict, Msg: "conflict"}
	ErrValidation        = &Error{Kind: KindValidation, Msg: "validation failed"}
)

func newError(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// NewValidationError builds a validation_failed error carrying per-field details.
func NewValidationError(msg string, fields ...FieldError) error {
	return &Error{Kind: KindValidation, Msg: msg, Fields: fields}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
