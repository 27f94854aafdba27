// Package errs defines the error taxonomy shared by every component that
// crosses a Store or Extractor boundary, modeled on the teacher's
// DocumentStoreError: a single wrapping type carrying component, operation,
// path and cause, plus sentinel causes checked with errors.Is.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel causes. Extractors and the Store wrap one of these; callers
// branch on retryability with errors.Is, never on string matching.
var (
	ErrFileLocked        = errors.New("file locked")
	ErrTimeout            = errors.New("extraction timed out")
	ErrPasswordProtected  = errors.New("password protected")
	ErrCorrupted          = errors.New("corrupted content")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrTransientIO        = errors.New("transient I/O error")
	ErrSizeExceeded       = errors.New("file exceeds size cap")
	ErrExcludedByPolicy   = errors.New("excluded by policy")
)

// ParseError wraps a format-specific parse failure. It is always terminal.
type ParseError struct {
	Detail string
}

func (e *ParseError) Error() string { return "parse error: " + e.Detail }

// IsRetryable reports whether err (or something it wraps) is one of the
// transient sentinels that the RetryQueue should hold onto.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrFileLocked),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrPasswordProtected),
		errors.Is(err, ErrTransientIO):
		return true
	default:
		return false
	}
}

// StoreError wraps a failure crossing the Store boundary.
type StoreError struct {
	Component string
	Operation string
	Message   string
	Path      string
	Err       error
	Timestamp time.Time
}

func (e *StoreError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s.%s: %s (path=%s): %v", e.Component, e.Operation, e.Message, e.Path, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s: %v", e.Component, e.Operation, e.Message, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func NewStoreError(operation, message, path string, err error) *StoreError {
	return &StoreError{
		Component: "store",
		Operation: operation,
		Message:   message,
		Path:      path,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// ExtractError wraps a failure produced by an extractor or its wrappers.
type ExtractError struct {
	Component string
	Operation string
	Message   string
	Path      string
	Err       error
	Timestamp time.Time
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("%s.%s: %s (path=%s): %v", e.Component, e.Operation, e.Message, e.Path, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

func NewExtractError(extractorName, path, message string, err error) *ExtractError {
	return &ExtractError{
		Component: "extractor." + extractorName,
		Operation: "Extract",
		Message:   message,
		Path:      path,
		Err:       err,
		Timestamp: time.Now(),
	}
}
