package mount

import (
	"errors"
	"fmt"
)

// ErrorCode represents the category of a mount configuration error.
//
// Callers (CLI, API layers) translate codes into their own status values,
// e.g. ErrNotFound into HTTP 404 and the validation codes into HTTP 422.
type ErrorCode int

const (
	// ErrNotFound indicates the requested config id is not live in the scope.
	ErrNotFound ErrorCode = iota

	// ErrMalformedRecord indicates a stored table leaf could not be decoded.
	// Decoding skips such leaves and keeps going.
	ErrMalformedRecord

	// ErrInvalidMountPoint indicates an empty or root mount point.
	ErrInvalidMountPoint

	// ErrInvalidBackend indicates an unknown backend class, or a backend that
	// is not allowed in the requested scope.
	ErrInvalidBackend

	// ErrInvalidArgument indicates any other invalid input (missing id,
	// malformed applicable names, ...).
	ErrInvalidArgument
)

// String returns the code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not_found"
	case ErrMalformedRecord:
		return "malformed_record"
	case ErrInvalidMountPoint:
		return "invalid_mount_point"
	case ErrInvalidBackend:
		return "invalid_backend"
	case ErrInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Error is a domain error returned by the mount package.
//
// These are business logic errors as opposed to infrastructure errors
// (disk or network failures), which are returned wrapped with %w.
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// ID is the config id involved, 0 if not applicable
	ID int

	// Path is the mount point or root mount path involved, if any
	Path string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// Is makes errors.Is match two *Error values with the same code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewNotFoundError builds the error returned when id is not live.
func NewNotFoundError(id int) *Error {
	return &Error{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("storage with id %d not found", id),
		ID:      id,
	}
}

// CodeOf returns the ErrorCode carried by err and whether err is a domain error.
func CodeOf(err error) (ErrorCode, bool) {
	var mountErr *Error
	if errors.As(err, &mountErr) {
		return mountErr.Code, true
	}
	return 0, false
}

// IsNotFound reports whether err is an ErrNotFound domain error.
func IsNotFound(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrNotFound
}

// IsValidationError reports whether err was raised by input validation.
func IsValidationError(err error) bool {
	code, ok := CodeOf(err)
	if !ok {
		return false
	}
	switch code {
	case ErrInvalidMountPoint, ErrInvalidBackend, ErrInvalidArgument:
		return true
	default:
		return false
	}
}
