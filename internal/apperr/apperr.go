// Package apperr carries the error kinds that the HTTP layer translates into
// status codes. Domain packages return these instead of transport errors.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindInvalidState Kind = "invalid_state"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindInternal     Kind = "internal"
)

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func NotFound(entity string) *Error {
	return New(KindNotFound, "not_found", entity+" not found")
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func InvalidState(code, message string) *Error {
	return New(KindInvalidState, code, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, "forbidden", message)
}

func Unauthorized(code, message string) *Error {
	return New(KindUnauthorized, code, message)
}

// Validation builds a validation error with one field issue per pair.
func Validation(field, reason string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    "validation_error",
		Message: "payload validation failed",
		Fields:  []FieldError{{Field: field, Reason: reason}},
	}
}

func ValidationFields(fields []FieldError) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    "validation_error",
		Message: "payload validation failed",
		Fields:  fields,
	}
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
