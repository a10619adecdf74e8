// Package fault classifies pipeline errors into a closed set of kinds so the
// orchestrator can report failures without inspecting stage internals.
package fault

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a pipeline error.
type Kind string

const (
	NotFound              Kind = "not_found"
	Forbidden             Kind = "forbidden"
	RateLimited           Kind = "rate_limited"
	InvalidRequest        Kind = "invalid_request"
	TransientServer       Kind = "transient_server"
	Persistence           Kind = "persistence"
	ValidationExhausted   Kind = "validation_exhausted"
	GenerationUnavailable Kind = "generation_unavailable"
	Fatal                 Kind = "fatal"
)

// Error is a classified error. It wraps an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error. A nil cause returns nil.
func Wrap(kind Kind, err error, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or Fatal for unclassified errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Fatal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether err is worth retrying at the stage that saw it.
func Retryable(err error) bool {
	return IsKind(err, TransientServer)
}
