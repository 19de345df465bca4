// Package apperrors defines the domain error taxonomy shared by the job
// pipeline. Recognized errors are expected, task-local failures: workers mark
// the task (or row) as failed and move on without raising an operational
// alert. Anything else propagates for redelivery.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a recognized domain error
type Kind string

const (
	KindBadRequest    Kind = "bad_request"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindUnprocessable Kind = "unprocessable_entity"
)

// Error is a recognized domain error. Field is set when the error concerns a
// single attribute (uniqueness conflicts, validation failures).
type Error struct {
	Kind  Kind
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewBadRequest builds a bad-request error.
func NewBadRequest(msg string) *Error {
	return &Error{Kind: KindBadRequest, Msg: msg}
}

// NewNotFound builds a not-found error.
func NewNotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// NewConflict builds a uniqueness-conflict error on the given field.
func NewConflict(field, msg string) *Error {
	return &Error{Kind: KindConflict, Field: field, Msg: msg}
}

// NewUnprocessable builds an unprocessable-entity error.
func NewUnprocessable(msg string) *Error {
	return &Error{Kind: KindUnprocessable, Msg: msg}
}

// Wrap attaches a cause to a recognized error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Recognized reports whether err is (or wraps) a domain error.
func Recognized(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// KindOf returns the kind of a recognized error, or "" for unexpected ones.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// FieldOf returns the field of a recognized error, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
