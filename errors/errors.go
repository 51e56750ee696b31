// Package errors provides error handling for folio.
//
// This package re-exports github.com/cockroachdb/errors, providing stack
// traces, error wrapping, and PII-safe formatting, plus the sentinel errors
// that make up folio's error taxonomy. Check sentinels with errors.Is and
// add context with errors.Wrap so the taxonomy survives wrapping.
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check taxonomy
//	if errors.Is(err, errors.ErrNotFound) {
//	    // handle not found
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	UnwrapAll     = crdb.UnwrapAll
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
	FlattenHints  = crdb.FlattenHints
)

// Stack trace access for error reporting
var (
	GetReportableStackTrace = crdb.GetReportableStackTrace
)

// GetStack is an alias for GetReportableStackTrace for convenience.
var GetStack = crdb.GetReportableStackTrace

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors for use across folio.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates the requested resource does not exist
	// (a plugin id, a specification id, a prompt file).
	ErrNotFound = New("not found")

	// ErrValidation indicates a plugin or registry entry failed validation.
	// The itemized failure list travels on plugin.ValidationError.
	ErrValidation = New("validation failed")

	// ErrParse indicates a specification document was malformed or empty.
	ErrParse = New("parse error")

	// ErrCapabilityMismatch indicates a caller requested an ingestion method
	// the resolved plugin does not support.
	ErrCapabilityMismatch = New("capability mismatch")

	// ErrConflict indicates a resource conflict (e.g., duplicate plugin id).
	ErrConflict = New("resource conflict")

	// ErrInvalidRequest indicates the request was malformed or invalid.
	ErrInvalidRequest = New("invalid request")

	// ErrServiceUnavailable indicates a required service is not available
	// (e.g., no generation provider is configured or reachable).
	ErrServiceUnavailable = New("service unavailable")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = New("operation timed out")

	// ErrBudgetExceeded indicates recorded model spend has reached a
	// configured budget ceiling.
	ErrBudgetExceeded = New("spend budget exceeded")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsValidationError checks if an error is or wraps ErrValidation.
func IsValidationError(err error) bool {
	return err != nil && Is(err, ErrValidation)
}

// IsParseError checks if an error is or wraps ErrParse.
func IsParseError(err error) bool {
	return err != nil && Is(err, ErrParse)
}

// IsCapabilityMismatchError checks if an error is or wraps ErrCapabilityMismatch.
func IsCapabilityMismatchError(err error) bool {
	return err != nil && Is(err, ErrCapabilityMismatch)
}

// IsConflictError checks if an error is or wraps ErrConflict.
func IsConflictError(err error) bool {
	return err != nil && Is(err, ErrConflict)
}

// IsBudgetExceededError checks if an error is or wraps ErrBudgetExceeded.
func IsBudgetExceededError(err error) bool {
	return err != nil && Is(err, ErrBudgetExceeded)
}

// NewNotFoundError creates a not-found error with a formatted message.
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewParseError creates a parse error with a formatted message.
func NewParseError(format string, args ...interface{}) error {
	return Wrap(ErrParse, Newf(format, args...).Error())
}

// NewCapabilityMismatchError creates a capability-mismatch error with a
// formatted message. Include the plugin's actual capabilities in the message
// so callers can diagnose what the plugin does support.
func NewCapabilityMismatchError(format string, args ...interface{}) error {
	return Wrap(ErrCapabilityMismatch, Newf(format, args...).Error())
}

// NewConflictError creates a conflict error with a formatted message.
func NewConflictError(format string, args ...interface{}) error {
	return Wrap(ErrConflict, Newf(format, args...).Error())
}

// WrapParse wraps an error as a parse error with context.
func WrapParse(err error, context string) error {
	return Wrap(Wrap(ErrParse, err.Error()), context)
}

// WrapNotFound wraps an error as a not-found error with context.
func WrapNotFound(err error, context string) error {
	return Wrap(Wrap(ErrNotFound, err.Error()), context)
}
