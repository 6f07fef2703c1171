// Package domainerrors defines coded errors shared across services and
// transports. Services translate store sentinels into coded errors here;
// the HTTP layer maps codes onto status lines without leaking internals.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and retry policy.
type Code string

const (
	// CodeValidation marks caller-correctable input errors. Never retried.
	CodeValidation Code = "validation"
	// CodeBadRequest marks malformed requests (bad JSON, missing fields).
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks references to entities that do not exist or are
	// no longer active. Benign; callers should refresh their view.
	CodeNotFound Code = "not_found"
	// CodeConflict marks expected contention: cooldown still active, or a
	// concurrent update that exhausted its retry.
	CodeConflict Code = "conflict"
	// CodeUnauthorized marks missing identity or capability (for example
	// location permission at monitor start).
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks callers that are identified but not allowed.
	CodeForbidden Code = "forbidden"
	// CodeTimeout marks a bounded operation that ran out of time.
	// Retryable by the caller.
	CodeTimeout Code = "timeout"
	// CodeInvariantViolation marks a broken domain invariant. Indicates a
	// programming error rather than bad input.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal marks everything else. Details are redacted at the edge.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	code    Code
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *Error) Unwrap() error { return e.cause }

// Code returns the error's classification.
func (e *Error) Code() Code { return e.code }

// Message returns the caller-safe description without the wrapped cause.
func (e *Error) Message() string { return e.message }

// New creates a coded error with a caller-safe message.
func New(code Code, message string) error {
	return &Error{code: code, message: message}
}

// Newf creates a coded error with a formatted caller-safe message.
func Newf(code Code, format string, args ...any) error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and caller-safe message to an underlying error.
// If err is nil, Wrap returns nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{code: code, message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf extracts the outermost code, defaulting to CodeInternal so that
// unclassified errors are always treated as internal at the edge.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}
