package domain

import (
	"errors"
	"fmt"
)

// ValidationError represents input validation errors raised at the
// data-entry boundary, before records reach the core workflow.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// UpstreamError wraps a failure from a collaborating store or model endpoint
// after any retries were exhausted. The orchestrator converts these into
// phase-local degraded statuses; direct callers receive them as-is.
type UpstreamError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream failure in %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError creates a new UpstreamError
func NewUpstreamError(op string, err error) *UpstreamError {
	return &UpstreamError{Op: op, Err: err}
}

// ParseError is raised when a model response is not valid JSON after the
// single fenced-code-block unwrap. It carries the offending raw text for
// diagnosis; no further heuristic recovery is attempted.
type ParseError struct {
	RawResponse string
	Err         error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid JSON in model response: %v", e.Err)
}

// Unwrap exposes the underlying JSON error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError carrying the raw response text.
func NewParseError(raw string, err error) *ParseError {
	return &ParseError{RawResponse: raw, Err: err}
}

// IsNotFound reports whether err represents an expected "not found" lookup
// outcome rather than an infrastructure failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
