package domain

import (
	"errors"
	"fmt"
)

// Error is a coded domain failure. The code feeds the err_code field of
// handler summary logs and keeps user-facing handling decisions out of
// string matching.
type Error struct {
	code string
	msg  string
	err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

// Code returns the stable machine-readable error code.
func (e *Error) Code() string { return e.code }

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error { return e.err }

// Is matches errors by code so wrapped instances compare equal to sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.code == t.code
	}
	return false
}

func newError(code, msg string) *Error { return &Error{code: code, msg: msg} }

var (
	// ErrNotFound signals that a referenced entity vanished between steps.
	ErrNotFound = newError("NOT_FOUND", "entity not found")
	// ErrConflict signals a uniqueness violation, e.g. a duplicate bot token.
	ErrConflict = newError("CONFLICT", "already exists")
	// ErrOutOfStock signals that a product has no free inventory units left.
	ErrOutOfStock = newError("OUT_OF_STOCK", "no free inventory units")
	// ErrAlreadyRunning signals a start for a credential whose bot is live.
	ErrAlreadyRunning = newError("ALREADY_RUNNING", "shop bot already running")
	// ErrNotRunning signals a stop for a credential with no live bot.
	ErrNotRunning = newError("NOT_RUNNING", "shop bot not running")
	// ErrForbidden signals a caller without the required capability.
	ErrForbidden = newError("FORBIDDEN", "caller lacks required capability")
	// ErrTransient signals an unexpected infrastructure failure worth retrying.
	ErrTransient = newError("TRANSIENT", "transient infrastructure failure")
)

// WrapTransient tags an unexpected persistence or platform failure.
func WrapTransient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{code: ErrTransient.code, msg: op, err: err}
}

// ValidationError reports malformed user input; the user is re-prompted.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Code returns the stable machine-readable error code.
func (e *ValidationError) Code() string { return "VALIDATION" }

// Invalid constructs a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
