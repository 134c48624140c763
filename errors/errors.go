// Package errors provides error handling for pam.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints and details for operator-facing messages
//
// Usage:
//
//	// Wrap with context
//	if err := container.Assign(ctx, a, target); err != nil {
//	    return errors.Wrapf(err, "assign %s", a.ID)
//	}
//
//	// Check kinds
//	if errors.Is(err, errors.ErrUnknownArtefactType) {
//	    // reject the request
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New   = crdb.New
	Newf  = crdb.Newf
	Wrap  = crdb.Wrap
	Wrapf = crdb.Wrapf
)

// User-facing messages and details
var (
	WithHint   = crdb.WithHint
	WithHintf  = crdb.WithHintf
	WithDetail = crdb.WithDetail
)

// Error inspection
var (
	Is            = crdb.Is
	As            = crdb.As
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
)

// Common sentinel errors for use across pam.
// Wrap these with errors.Wrap() to add context while preserving the kind.
var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or incomplete
	ErrInvalidRequest = New("invalid request")

	// ErrQueryFailure indicates a remote record-store query failed
	ErrQueryFailure = New("query failure")

	// ErrUnknownArtefactType indicates an artefact type with no registered container
	ErrUnknownArtefactType = New("unknown artefact type")

	// ErrUnitFailure indicates a container call failed while running a batch
	ErrUnitFailure = New("unit failure")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}
