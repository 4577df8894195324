// Package apperr defines the closed set of error kinds that domain
// operations return. The HTTP boundary maps each kind to a status code;
// anything that is not an *Error is treated as an internal failure.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags an error with its place in the taxonomy.
type Kind int

const (
	// KindInternal is an unclassified infrastructure or programming failure.
	KindInternal Kind = iota
	// KindNotFound means the target entity does not exist.
	KindNotFound
	// KindForbidden means the actor lacks the required relationship or role.
	KindForbidden
	// KindValidation means the input is malformed or semantically invalid.
	KindValidation
	// KindConflict means the entity's current state does not permit the
	// operation (invalid transition, lost race, already in that status).
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is the single error type domain services return for expected
// failures. Wrapping an underlying cause is optional.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure so callers can still unwrap the cause.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf returns the Kind carried by err, or KindInternal for any error
// outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// HTTPStatus maps an error kind to the status code the boundary layer
// responds with. Conflict is deliberately distinct from Forbidden and
// NotFound so clients can decide to re-fetch and retry.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
