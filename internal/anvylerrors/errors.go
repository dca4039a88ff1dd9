// Package anvylerrors defines the error-kind taxonomy shared by every
// Anvyl service. Adapters and stores classify failures into a Kind at
// their boundary; callers above that boundary never inspect engine- or
// driver-specific error types, only the Kind.
package anvylerrors

import (
	"errors"
	"fmt"
)

// Kind is one of the error classes from the Anvyl error taxonomy.
type Kind string

const (
	Validation        Kind = "Validation"
	NotFound          Kind = "NotFound"
	Conflict          Kind = "Conflict"
	Invariant         Kind = "Invariant"
	EngineUnavailable Kind = "EngineUnavailable"
	ProviderUnavailable Kind = "ProviderUnavailable"
	SpawnError        Kind = "SpawnError"
	Internal          Kind = "Internal"
)

// Error is the concrete error type returned by adapters and services.
// It always carries a Kind and a short, user-safe message; the wrapped
// cause (if any) is available via Unwrap for internal logging only and
// must never be serialized back to a caller.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind wrapping cause. cause's message
// is never shown to callers outside this process; use Message for the
// user-safe text.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, otherwise
// Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
