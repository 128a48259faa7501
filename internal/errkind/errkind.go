// Package errkind defines the unified error taxonomy shared by every
// subsystem of the agent runtime, so the turn loop can react to failures
// without caring which layer produced them.
package errkind

import (
	"errors"
	"fmt"
)

// Kind is a closed enumeration of error categories produced anywhere in
// the core.
type Kind string

const (
	ToolNotFound      Kind = "tool_not_found"
	InvalidArgs       Kind = "invalid_args"
	PermissionDenied  Kind = "permission_denied"
	Blocked           Kind = "blocked"
	Timeout           Kind = "timeout"
	Cancelled         Kind = "cancelled"
	Network           Kind = "network"
	Provider          Kind = "provider"
	RateLimit         Kind = "rate_limit"
	Authentication    Kind = "authentication"
	InvalidRequest    Kind = "invalid_request"
	Sandbox           Kind = "sandbox"
	IO                Kind = "io"
	Internal          Kind = "internal"
)

// Error wraps an underlying cause with a Kind and optional metadata, so
// callers can branch on Kind without string-matching messages.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Meta    map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error from an existing cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithMeta attaches metadata (invocation id, attempt, etc.) and returns the
// same error for chaining.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

// Is reports whether err carries the given Kind, walking the unwrap chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, or Internal if err isn't a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if err == nil {
		return ""
	}
	return Internal
}

// Retryable reports whether the error's Kind belongs to the transient
// classes the provider layer retries with backoff (spec.md §4.2, §7).
func Retryable(err error) bool {
	switch KindOf(err) {
	case Network, RateLimit:
		return true
	default:
		return false
	}
}
