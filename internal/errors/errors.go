// Package errors provides structured error types for the traceback agent.
//
// This package follows Go best practices for error handling:
// - Sentinel errors for type checking with errors.Is()
// - Error wrapping with context using fmt.Errorf("%w", err)
// - Structured error types for detailed information
// - Error codes for machine-readable categorization
//
// Error code ranges:
// - 1xxx: Configuration errors
// - 2xxx: Ingestion errors
// - 3xxx: Oracle errors
// - 4xxx: Report errors
// - 5xxx: Investigation errors
// - 9xxx: General errors
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error identifier.
type ErrorCode string

// Configuration error codes (1xxx)
const (
	ErrCodeConfigInvalid    ErrorCode = "TRACEBACK_1001"
	ErrCodeConfigMissingKey ErrorCode = "TRACEBACK_1002"
	ErrCodeConfigValidation ErrorCode = "TRACEBACK_1003"
)

// Ingestion error codes (2xxx)
const (
	ErrCodeIngestFileNotFound ErrorCode = "TRACEBACK_2001"
	ErrCodeIngestReadFailed   ErrorCode = "TRACEBACK_2002"
	ErrCodeIngestEmptyFile    ErrorCode = "TRACEBACK_2003"
)

// Oracle error codes (3xxx)
const (
	ErrCodeOracleUnavailable ErrorCode = "TRACEBACK_3001"
	ErrCodeOracleMalformed   ErrorCode = "TRACEBACK_3002"
	ErrCodeOracleNoCandidate ErrorCode = "TRACEBACK_3003"
)

// Report error codes (4xxx)
const (
	ErrCodeReportMalformed ErrorCode = "TRACEBACK_4001"
	ErrCodeReportMissing   ErrorCode = "TRACEBACK_4002"
)

// Investigation error codes (5xxx)
const (
	ErrCodeChatFailed ErrorCode = "TRACEBACK_5001"
)

// General error codes (9xxx)
const (
	ErrCodeUnknown ErrorCode = "TRACEBACK_9999"
)

// Sentinel errors for type checking with errors.Is()
var (
	// Configuration errors
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrConfigMissingKey = errors.New("api key not configured")
	ErrConfigValidation = errors.New("configuration validation failed")

	// Ingestion errors
	ErrIngestFileNotFound = errors.New("log file not found")
	ErrIngestReadFailed   = errors.New("log file read failed")
	ErrIngestEmptyFile    = errors.New("log file is empty")

	// Oracle errors
	ErrOracleUnavailable = errors.New("oracle unavailable")
	ErrOracleMalformed   = errors.New("oracle response malformed")
	ErrOracleNoCandidate = errors.New("no oracle model candidate succeeded")
	ErrModelNotFound     = errors.New("model not found")

	// Report errors
	ErrReportMalformed = errors.New("report output malformed")
	ErrReportMissing   = errors.New("no report available")

	// Investigation errors
	ErrChatFailed = errors.New("investigation call failed")
)

// TracebackError is the base error type with structured information.
type TracebackError struct {
	Code        ErrorCode
	Message     string
	Context     map[string]interface{}
	IsRetryable bool
	Cause       error
}

// Error implements the error interface.
func (e *TracebackError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TracebackError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error's cause.
func (e *TracebackError) Is(target error) bool {
	if e.Cause != nil {
		return errors.Is(e.Cause, target)
	}
	return false
}

// WithContext adds context information to the error.
func (e *TracebackError) WithContext(key string, value interface{}) *TracebackError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ToMap converts the error to a map for structured logging.
func (e *TracebackError) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"error_code":   string(e.Code),
		"message":      e.Message,
		"is_retryable": e.IsRetryable,
	}
	if e.Context != nil {
		m["context"] = e.Context
	}
	if e.Cause != nil {
		m["cause"] = e.Cause.Error()
	}
	return m
}

// NewTracebackError creates a new TracebackError.
func NewTracebackError(code ErrorCode, message string, cause error) *TracebackError {
	return &TracebackError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Configuration Error constructors

// NewConfigMissingKeyError reports an absent API credential.
// The secret name is included; the credential value never is.
func NewConfigMissingKeyError(envVar string) *TracebackError {
	return &TracebackError{
		Code:        ErrCodeConfigMissingKey,
		Message:     fmt.Sprintf("no API key found: set %s or add it to .env", envVar),
		Cause:       ErrConfigMissingKey,
		IsRetryable: false,
		Context: map[string]interface{}{
			"env_var": envVar,
		},
	}
}

// NewConfigValidationError creates a configuration validation error.
func NewConfigValidationError(field string, value interface{}, reason string) *TracebackError {
	return &TracebackError{
		Code:        ErrCodeConfigValidation,
		Message:     fmt.Sprintf("validation failed for '%s': %s", field, reason),
		Cause:       ErrConfigValidation,
		IsRetryable: false,
		Context: map[string]interface{}{
			"field":  field,
			"value":  fmt.Sprintf("%v", value),
			"reason": reason,
		},
	}
}

// Ingestion Error constructors

// NewIngestFileNotFoundError creates a file not found error.
func NewIngestFileNotFoundError(path string) *TracebackError {
	return &TracebackError{
		Code:        ErrCodeIngestFileNotFound,
		Message:     fmt.Sprintf("log file not found: %s", path),
		Cause:       ErrIngestFileNotFound,
		IsRetryable: false,
		Context: map[string]interface{}{
			"path": path,
		},
	}
}

// NewIngestReadError creates a read error.
func NewIngestReadError(path string, cause error) *TracebackError {
	return &TracebackError{
		Code:        ErrCodeIngestReadFailed,
		Message:     fmt.Sprintf("failed to read log file: %s", path),
		Cause:       cause,
		IsRetryable: true,
		Context: map[string]interface{}{
			"path": path,
		},
	}
}

// Oracle Error constructors

// NewOracleUnavailableError creates an oracle unavailable error.
// The user may re-trigger analysis, so these are retryable.
func NewOracleUnavailableError(model string, cause error) *TracebackError {
	return &TracebackError{
		Code:        ErrCodeOracleUnavailable,
		Message:     fmt.Sprintf("oracle call failed for model '%s'", model),
		Cause:       cause,
		IsRetryable: true,
		Context: map[string]interface{}{
			"model": model,
		},
	}
}

// NewOracleMalformedError creates an error for an unusable oracle payload.
func NewOracleMalformedError(model string, reason string) *TracebackError {
	return &TracebackError{
		Code:        ErrCodeOracleMalformed,
		Message:     fmt.Sprintf("oracle returned unusable payload from '%s': %s", model, reason),
		Cause:       ErrOracleMalformed,
		IsRetryable: false,
		Context: map[string]interface{}{
			"model":  model,
			"reason": reason,
		},
	}
}

// NewOracleNoCandidateError reports that every model in the fallback chain failed.
func NewOracleNoCandidateError(attempted []string, cause error) *TracebackError {
	return &TracebackError{
		Code:        ErrCodeOracleNoCandidate,
		Message:     fmt.Sprintf("all %d oracle model candidates failed", len(attempted)),
		Cause:       cause,
		IsRetryable: true,
		Context: map[string]interface{}{
			"attempted": attempted,
		},
	}
}

// Report Error constructors

// NewReportMalformedError is raised when oracle output cannot be coerced
// into the findings model even after tolerant defaulting.
func NewReportMalformedError(reason string, cause error) *TracebackError {
	return &TracebackError{
		Code:        ErrCodeReportMalformed,
		Message:     fmt.Sprintf("oracle output could not be normalized: %s", reason),
		Cause:       cause,
		IsRetryable: false,
		Context: map[string]interface{}{
			"reason": reason,
		},
	}
}

// Investigation Error constructors

// NewChatFailedError creates an investigation failure error.
// Callers recover this locally into an apologetic answer; it must never
// propagate as a fatal error.
func NewChatFailedError(cause error) *TracebackError {
	return &TracebackError{
		Code:        ErrCodeChatFailed,
		Message:     "investigation question could not be answered",
		Cause:       cause,
		IsRetryable: true,
		Context:     make(map[string]interface{}),
	}
}

// IsRetryableError checks if an error is retryable.
func IsRetryableError(err error) bool {
	var tbErr *TracebackError
	if errors.As(err, &tbErr) {
		return tbErr.IsRetryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var tbErr *TracebackError
	if errors.As(err, &tbErr) {
		return tbErr.Code
	}
	return ErrCodeUnknown
}
