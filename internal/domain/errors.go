package domain

import (
	"errors"
	"fmt"
	"strings"
)

// #region codes
// Numeric codes surface the taxonomy to collaborators that cannot inspect Go types
// (rpc status details, CLI exit paths).
const (
	CodeValidation  = -32010
	CodeConcurrency = -32011
	CodeExport      = -32012
	CodeConfig      = -32013
)

// Sentinels for errors.Is checks.
var (
	ErrValidation  = errors.New("validation failed")
	ErrConcurrency = errors.New("concurrent update")
	ErrExport      = errors.New("export failed")
)

// #endregion codes

// #region validation
// ValidationError reports malformed coordinate, trigger, or configuration input.
// State is left unchanged and the caller may retry with corrected input.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError for the named field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error %d: %s", CodeValidation, e.Reason)
	}
	return fmt.Sprintf("validation error %d: %s: %s", CodeValidation, e.Field, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Code returns the numeric code.
func (e *ValidationError) Code() int { return CodeValidation }

// #endregion validation

// #region config
// ConfigError lists every problem found in a configuration file. It matches
// ErrValidation: configuration is caller input like any other.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error %d: %s", CodeConfig, strings.Join(e.Problems, "; "))
}

// Is matches ErrValidation.
func (e *ConfigError) Is(target error) bool { return target == ErrValidation }

// Code returns the numeric code.
func (e *ConfigError) Code() int { return CodeConfig }

// #endregion config

// #region concurrency
// ConcurrencyError reports an update or reset that overlapped an in-flight update.
type ConcurrencyError struct {
	Op string
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("concurrency error %d: %s called while an update is in flight", CodeConcurrency, e.Op)
}

// Is matches ErrConcurrency.
func (e *ConcurrencyError) Is(target error) bool { return target == ErrConcurrency }

// Code returns the numeric code.
func (e *ConcurrencyError) Code() int { return CodeConcurrency }

// #endregion concurrency

// #region export
// ExportFailure wraps a failed best-effort persistence attempt.
// The in-memory session log stays authoritative.
type ExportFailure struct {
	Sink  string
	Cause error
}

func (e *ExportFailure) Error() string {
	return fmt.Sprintf("export error %d: sink %s: %v", CodeExport, e.Sink, e.Cause)
}

// Unwrap exposes the underlying cause.
func (e *ExportFailure) Unwrap() error { return e.Cause }

// Is matches ErrExport.
func (e *ExportFailure) Is(target error) bool { return target == ErrExport }

// Code returns the numeric code.
func (e *ExportFailure) Code() int { return CodeExport }

// #endregion export

// #region unresolved
// UnresolvedTriggerWarning is a diagnostic, not an error: the trigger matched
// nothing in the lexicon and produced a zero delta.
type UnresolvedTriggerWarning struct {
	Input string `json:"input"`
}

func (w UnresolvedTriggerWarning) String() string {
	return fmt.Sprintf("unresolved trigger %q", w.Input)
}

// #endregion unresolved

// #region helpers
// Coded is implemented by every error in the taxonomy.
type Coded interface {
	error
	Code() int
}

// CodeOf returns the taxonomy code for err, or 0 when err is outside it.
func CodeOf(err error) int {
	var c Coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return 0
}

// #endregion helpers
