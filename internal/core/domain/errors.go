package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable category carried by every domain error.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation_error"
	KindAuth       ErrorKind = "auth_error"
	KindForbidden  ErrorKind = "forbidden"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
)

// Error is a domain failure with a kind and a human-readable detail.
//
// errors.Is matches on kind when the target carries no detail, so any
// validation failure satisfies errors.Is(err, ErrValidation).
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return e.Detail
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Detail == "" || t.Detail == e.Detail)
}

// Kind sentinels, for errors.Is checks.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrForbidden  = &Error{Kind: KindForbidden}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
)

var (
	ErrUserExists         = &Error{Kind: KindValidation, Detail: "email already registered"}
	ErrInvalidCredentials = &Error{Kind: KindAuth, Detail: "invalid credentials"}
	ErrInvalidToken       = &Error{Kind: KindAuth, Detail: "invalid token"}
	ErrExpiredToken       = &Error{Kind: KindAuth, Detail: "token expired"}
	ErrMissingToken       = &Error{Kind: KindAuth, Detail: "missing bearer token"}

	ErrUserNotFound    = &Error{Kind: KindNotFound, Detail: "user not found"}
	ErrProfileNotFound = &Error{Kind: KindNotFound, Detail: "profile not completed yet"}
	ErrRequestNotFound = &Error{Kind: KindNotFound, Detail: "request not found"}

	ErrTerminalStatus = &Error{Kind: KindConflict, Detail: "request is already closed"}
)

// Validationf builds a validation error with a formatted detail.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

// Conflictf builds a conflict error with a formatted detail.
func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Detail: fmt.Sprintf(format, args...)}
}

// Forbiddenf builds a forbidden error with a formatted detail.
func Forbiddenf(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Detail: fmt.Sprintf(format, args...)}
}

// AsError unwraps err into a domain error, if it is one.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
