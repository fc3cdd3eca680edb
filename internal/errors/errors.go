// Package errors provides the typed errors used across dstkit. Every
// operation failure carries an ErrorCode so callers and the HTTP layer
// can classify it without string matching.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique identifier for different error types
type ErrorCode string

const (
	// Validation errors
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrInvalidName      ErrorCode = "INVALID_NAME"
	ErrInvalidPath      ErrorCode = "INVALID_PATH"
	ErrInvalidPort      ErrorCode = "INVALID_PORT"
	ErrInvalidPreset    ErrorCode = "INVALID_PRESET"
	ErrMissingToken     ErrorCode = "MISSING_TOKEN"

	// Conflict errors
	ErrDuplicateName  ErrorCode = "DUPLICATE_NAME"
	ErrDuplicateMod   ErrorCode = "DUPLICATE_MOD"
	ErrUnknownMod     ErrorCode = "UNKNOWN_MOD"
	ErrInstanceBusy   ErrorCode = "INSTANCE_BUSY"
	ErrPortConflict   ErrorCode = "PORT_CONFLICT"
	ErrAlreadyRunning ErrorCode = "ALREADY_RUNNING"

	// Configuration errors
	ErrConfigParse    ErrorCode = "CONFIG_PARSE"
	ErrConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// Process errors
	ErrLaunchFailed   ErrorCode = "LAUNCH_FAILED"
	ErrProcessCrashed ErrorCode = "PROCESS_CRASHED"
	ErrBinaryMissing  ErrorCode = "BINARY_MISSING"
	ErrTimeout        ErrorCode = "TIMEOUT"
	ErrCancelled      ErrorCode = "CANCELLED"

	// Import errors
	ErrImportFailed ErrorCode = "IMPORT_FAILED"

	// Database errors
	ErrDatabaseConnection ErrorCode = "DATABASE_CONNECTION"
	ErrDatabaseQuery      ErrorCode = "DATABASE_QUERY"
	ErrDatabaseMigration  ErrorCode = "DATABASE_MIGRATION"

	// File/IO errors
	ErrFileWrite  ErrorCode = "FILE_WRITE"
	ErrFileRead   ErrorCode = "FILE_READ"
	ErrFileSystem ErrorCode = "FILE_SYSTEM"
	ErrNotFound   ErrorCode = "NOT_FOUND"

	// Internal errors
	ErrInternal ErrorCode = "INTERNAL_ERROR"
)

// KitError represents a structured error with additional context
type KitError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *KitError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *KitError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *KitError) WithContext(key string, value interface{}) *KitError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause adds the underlying cause error
func (e *KitError) WithCause(cause error) *KitError {
	e.Cause = cause
	return e
}

// GetHTTPStatus returns the appropriate HTTP status code for this error
func (e *KitError) GetHTTPStatus() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}

	// Default status codes based on error type
	switch e.Code {
	case ErrNotFound, ErrConfigNotFound, ErrUnknownMod:
		return http.StatusNotFound
	case ErrValidationFailed, ErrInvalidInput, ErrInvalidName, ErrInvalidPath,
		ErrInvalidPort, ErrInvalidPreset, ErrMissingToken:
		return http.StatusBadRequest
	case ErrDuplicateName, ErrDuplicateMod, ErrInstanceBusy, ErrPortConflict,
		ErrAlreadyRunning:
		return http.StatusConflict
	case ErrBinaryMissing:
		return http.StatusPreconditionFailed
	case ErrTimeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new KitError
func New(code ErrorCode, message string) *KitError {
	return &KitError{
		Code:    code,
		Message: message,
	}
}

// NewWithDetails creates a new KitError with details
func NewWithDetails(code ErrorCode, message, details string) *KitError {
	return &KitError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Wrap creates a new KitError that wraps an existing error
func Wrap(code ErrorCode, message string, cause error) *KitError {
	return &KitError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetails creates a new KitError with details that wraps an existing error
func WrapWithDetails(code ErrorCode, message, details string, cause error) *KitError {
	return &KitError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// IsKitError checks if an error is a KitError
func IsKitError(err error) bool {
	var ke *KitError
	return errors.As(err, &ke)
}

// GetCode extracts the error code from an error, if it's a KitError
func GetCode(err error) ErrorCode {
	var ke *KitError
	if errors.As(err, &ke) {
		return ke.Code
	}
	return ""
}

// HasCode checks if an error has a specific error code
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}
