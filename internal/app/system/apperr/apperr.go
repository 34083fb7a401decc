// Package apperr defines the error kinds every operation fails with.
//
// Messages carried by an *Error are safe to show to a caller. The wrapped
// cause (Err) is for logs only and is never serialized.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	Unauthenticated         Kind = "Unauthenticated"
	Forbidden               Kind = "Forbidden"
	NotFound                Kind = "NotFound"
	InvalidInput            Kind = "InvalidInput"
	Unavailable             Kind = "Unavailable"
	SelfProtectionViolation Kind = "SelfProtectionViolation"
)

// Sub refines InvalidInput.
type Sub string

const (
	DuplicateKey     Sub = "DuplicateKey"
	DuplicateEmail   Sub = "DuplicateEmail"
	UnknownReference Sub = "UnknownReference"
)

// Error is the failure value returned across package boundaries.
type Error struct {
	Kind    Kind
	Sub     Sub
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap builds an *Error that keeps err as its internal cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Invalid builds an InvalidInput error with a sub-kind (may be empty).
func Invalid(sub Sub, msg string) *Error {
	return &Error{Kind: InvalidInput, Sub: sub, Message: msg}
}

// Canned errors for the common cases.
var (
	ErrInvalidCredentials = New(Unauthenticated, "invalid email or password")
	ErrInvalidCredential  = New(Unauthenticated, "invalid or expired credential")
	ErrNoCredential       = New(Unauthenticated, "authentication required")
	ErrForbidden          = New(Forbidden, "you do not have permission to perform this action")
	ErrSelfProtection     = New(SelfProtectionViolation, "you cannot deactivate or delete your own account")
	ErrDuplicateKey       = Invalid(DuplicateKey, "project key already exists")
	ErrDuplicateEmail     = Invalid(DuplicateEmail, "a user with this email already exists")
)

// NotFoundf builds a NotFound error naming the missing resource.
func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

// Invalidf builds a plain InvalidInput error.
func Invalidf(format string, args ...any) *Error {
	return Invalid("", fmt.Sprintf(format, args...))
}

// UnknownRef builds an UnknownReference error.
func UnknownRef(format string, args ...any) *Error {
	return Invalid(UnknownReference, fmt.Sprintf(format, args...))
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" when err is nil or not an *Error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

// SubOf returns the sub-kind of err, or "".
func SubOf(err error) Sub {
	if e, ok := As(err); ok {
		return e.Sub
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsSub reports whether err carries the given InvalidInput sub-kind.
func IsSub(err error, sub Sub) bool {
	return SubOf(err) == sub
}

// Retryable reports whether a caller may retry err. Only Unavailable is.
func Retryable(err error) bool {
	return Is(err, Unavailable)
}

// Is lets errors.Is match two *Error values by kind and sub-kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Sub == t.Sub
}

// HTTPStatus maps an error to the status code the JSON API answers with.
func HTTPStatus(err error) int {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InvalidInput:
		if e.Sub == DuplicateKey || e.Sub == DuplicateEmail {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case Unavailable:
		return http.StatusServiceUnavailable
	case SelfProtectionViolation:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// FromStatus rebuilds an *Error from a wire kind/sub/message triple.
// Unknown kinds fall back on the HTTP status.
func FromStatus(status int, kind, sub, msg string) *Error {
	k := Kind(kind)
	switch k {
	case Unauthenticated, Forbidden, NotFound, InvalidInput, Unavailable, SelfProtectionViolation:
	default:
		switch status {
		case http.StatusUnauthorized:
			k = Unauthenticated
		case http.StatusForbidden:
			k = Forbidden
		case http.StatusNotFound:
			k = NotFound
		case http.StatusBadRequest, http.StatusConflict:
			k = InvalidInput
		default:
			k = Unavailable
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{Kind: k, Sub: Sub(sub), Message: msg}
}
