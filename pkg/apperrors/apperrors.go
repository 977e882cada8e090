// Package apperrors defines the categorized error type used throughout the
// reconciliation service. Every failure surfaced to a caller carries a
// category (which maps to a CLI exit code), a stable code, and optionally a
// suggestion and context values for diagnostics.
package apperrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Category represents different categories of errors
type Category string

const (
	CategoryValidation     Category = "validation"
	CategoryPayload        Category = "payload"
	CategoryStorage        Category = "storage"
	CategoryReconciliation Category = "reconciliation"
	CategoryIngest         Category = "ingest"
	CategoryConfiguration  Category = "configuration"
)

// Code represents specific error codes within categories
type Code string

const (
	// Validation errors
	CodeInvalidDateRange Code = "invalid_date_range"
	CodeInvalidInput     Code = "invalid_input"

	// Payload errors
	CodePayloadUnreadable Code = "payload_unreadable"

	// Storage errors
	CodeReadFailed  Code = "read_failed"
	CodeWriteFailed Code = "write_failed"
	CodeNotFound    Code = "not_found"

	// Reconciliation errors
	CodeRunInProgress   Code = "run_in_progress"
	CodeMatchingFailed  Code = "matching_failed"

	// Ingest errors
	CodeFileUnreadable Code = "file_unreadable"
	CodeRowRejected    Code = "row_rejected"

	// Configuration errors
	CodeInvalidConfig Code = "invalid_config"
)

// Error is the base error type for all service errors.
type Error struct {
	Category   Category          `json:"category"`
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    map[string]any    `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the CLI exit code for the error category.
func (e *Error) ExitCode() int {
	switch e.Category {
	case CategoryValidation:
		return 2
	case CategoryConfiguration:
		return 3
	case CategoryIngest, CategoryPayload:
		return 4
	case CategoryStorage, CategoryReconciliation:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates a new Error with a captured stack trace.
func New(category Category, code Code, message string) *Error {
	return &Error{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: stackTrace(),
	}
}

// Wrap creates a new Error wrapping an underlying cause.
func Wrap(err error, category Category, code Code, message string) *Error {
	e := New(category, code, message)
	e.Cause = err
	return e
}

// ValidationError builds a validation-category error for a named input.
func ValidationError(code Code, field string, err error) *Error {
	e := Wrap(err, CategoryValidation, code, fmt.Sprintf("invalid %s", field))
	return e.WithContext("field", field)
}

// StorageError builds a storage-category error for a named operation.
func StorageError(code Code, operation string, err error) *Error {
	e := Wrap(err, CategoryStorage, code, fmt.Sprintf("storage operation %s failed", operation))
	return e.WithContext("operation", operation)
}

// ReconciliationError builds a reconciliation-category error.
func ReconciliationError(code Code, message string, err error) *Error {
	return Wrap(err, CategoryReconciliation, code, message)
}

// IngestError builds an ingest-category error for a source file.
func IngestError(code Code, file string, err error) *Error {
	e := Wrap(err, CategoryIngest, code, fmt.Sprintf("failed to ingest %s", file))
	return e.WithContext("file", file)
}

// ConfigurationError builds a configuration-category error for a setting.
func ConfigurationError(code Code, setting string, err error) *Error {
	e := Wrap(err, CategoryConfiguration, code, fmt.Sprintf("invalid configuration for %s", setting))
	return e.WithContext("setting", setting)
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether the error chain contains an *Error with the code.
func Is(err error, code Code) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == code
	}
	return false
}

func stackTrace() errors.StackTrace {
	type tracer interface {
		StackTrace() errors.StackTrace
	}

	if t, ok := errors.New("").(tracer); ok {
		trace := t.StackTrace()
		if len(trace) > 2 {
			return trace[2:] // drop the frames of this package
		}
		return trace
	}
	return nil
}
