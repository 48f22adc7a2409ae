// Package apperr defines the typed failures the core reports to its callers.
//
// Every failed operation returns an *Error carrying a Kind. Callers match kinds with
// the standard library:
//
//	if errors.Is(err, apperr.ErrNotFound) { ... }
//
// or extract the details:
//
//	var e *apperr.Error
//	if errors.As(err, &e) { log.Println(e.Op) }
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidTransition
	KindInvalidState
	KindMalformedInput
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidTransition:
		return "invalid transition"
	case KindInvalidState:
		return "invalid state"
	case KindMalformedInput:
		return "malformed input"
	default:
		return "internal"
	}
}

// Sentinels for errors.Is. An *Error matches the sentinel of its kind.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrMalformedInput    = &Error{Kind: KindMalformedInput}
	ErrInternal          = &Error{Kind: KindInternal}
)

// Error is a typed failure returned by the core services. Op names the operation
// that failed, e.g. "task.update_status".
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, which makes the package sentinels usable
// with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

func newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NotFound reports an operation referencing a nonexistent id.
func NotFound(op, format string, args ...any) *Error {
	return newf(KindNotFound, op, format, args...)
}

// InvalidTransition reports a status change that violates the allowed edges.
func InvalidTransition(op, format string, args ...any) *Error {
	return newf(KindInvalidTransition, op, format, args...)
}

// InvalidState reports an operation invoked from a state that does not permit it.
func InvalidState(op, format string, args ...any) *Error {
	return newf(KindInvalidState, op, format, args...)
}

// MalformedInput reports empty or invalid input.
func MalformedInput(op, format string, args ...any) *Error {
	return newf(KindMalformedInput, op, format, args...)
}

// Internal wraps a storage or I/O failure.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Msg: "internal error", Err: err}
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsUserFacing reports whether err describes a problem with the caller's request
// rather than a failure of the program.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err) != KindInternal
}

// Message returns the text to show a user: the message of a user-facing *Error
// without its op prefix, or the full error otherwise.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal && e.Msg != "" {
		return e.Msg
	}
	return err.Error()
}
