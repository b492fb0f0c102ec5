package models

import "fmt"

// ErrorKind is the wire tag of a structured failure.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindInvalidTerms ErrorKind = "invalid_terms"
	KindValidation   ErrorKind = "validation"
	KindConflict     ErrorKind = "conflict"
	KindInternal     ErrorKind = "internal"
)

// NotFoundError reports a referenced id that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Kind() ErrorKind { return KindNotFound }

// InvalidTermsError reports debt terms the schedule generator cannot work with.
type InvalidTermsError struct {
	Reason string
}

func (e *InvalidTermsError) Error() string {
	return "invalid debt terms: " + e.Reason
}

func (e *InvalidTermsError) Kind() ErrorKind { return KindInvalidTerms }

// ValidationError reports a malformed request, rejected before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Kind() ErrorKind { return KindValidation }

// ConflictError reports a mutation that lost a race with another writer.
type ConflictError struct {
	Op  string
	Err error
}

func (e *ConflictError) Error() string {
	if e.Err == nil {
		return "conflict during " + e.Op
	}
	return fmt.Sprintf("conflict during %s: %v", e.Op, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

func (e *ConflictError) Kind() ErrorKind { return KindConflict }

// Invalid is shorthand for a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
