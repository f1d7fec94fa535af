// Package apperr defines the error kinds shared by the session, payment and
// review workflows. Callers match kinds with errors.Is and surface Reason to
// end users.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidState   = errors.New("invalid state")
	ErrPermission     = errors.New("permission denied")
	ErrDuplicate      = errors.New("duplicate")
	ErrAuthentication = errors.New("authentication failed")
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
)

// Error pairs a kind with a human-readable reason.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func New(kind error, reason string) error {
	return &Error{Kind: kind, Reason: reason}
}

func Newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func InvalidState(reason string) error {
	return New(ErrInvalidState, reason)
}

func Permission(reason string) error {
	return New(ErrPermission, reason)
}

func Duplicate(reason string) error {
	return New(ErrDuplicate, reason)
}

func NotFound(reason string) error {
	return New(ErrNotFound, reason)
}

func InvalidInput(reason string) error {
	return New(ErrInvalidInput, reason)
}

// Reason returns the user-facing message for err, falling back to fallback
// when err carries no reason of its own.
func Reason(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Reason != "" {
		return appErr.Reason
	}
	return fallback
}
