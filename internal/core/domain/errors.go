package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateEmail indicates an identity with the same email already exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for bad signatures, expired tokens and kind mismatches.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidID indicates a malformed identifier.
	ErrInvalidID = errors.New("invalid id")
	// ErrNotFound indicates a scoped lookup miss.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable wraps transient store I/O failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConflict indicates a concurrent operation on the same resource is in flight.
	ErrConflict = errors.New("operation already in progress")
	// ErrRateLimited indicates too many attempts in the current window.
	ErrRateLimited = errors.New("too many attempts")
)

// ValidationError names the offending field and why it was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// AsValidationError unwraps err into a ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
