// Package cwerr defines the engine-wide error taxonomy (spec.md §7).
// Every fallible core operation returns an error that unwraps to *cwerr.Error
// via errors.As, carrying one of the Kind constants below instead of the
// global error numbers the C original used.
//
// Grounded on the teacher's sentinel-error idiom (var Err... = errors.New(...)
// in internal/audio/capture.go and internal/dsp/detector.go), generalized
// into one typed Kind so callers can branch on category instead of on
// package-specific sentinels.
package cwerr

import (
	"errors"
	"fmt"
)

// Kind categorises a failure per spec.md §7.
type Kind int

const (
	// InvalidArgument: parameter out of range, illegal representation,
	// rectangular-slope-with-nonzero-duration, invalid timestamp.
	InvalidArgument Kind = iota
	// NotFound: character has no representation, or representation does
	// not map to a character.
	NotFound
	// QueueFull: enqueue exceeded high-water-mark or hard capacity.
	QueueFull
	// Again: receiver poll is too early for the requested verdict;
	// informational, caller retries.
	Again
	// OutOfRange: receiver called in a state that forbids the operation.
	OutOfRange
	// NoMemory: allocation failure, or receiver representation buffer
	// overflow (which also moves the receiver to ErrChar).
	NoMemory
	// Permission: adaptive/fixed mode conflict on the receiver.
	Permission
	// SoundSystemUnavailable: chosen backend cannot be opened/configured.
	SoundSystemUnavailable
	// Fatal: unrecoverable worker or sink failure.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case NotFound:
		return "not found"
	case QueueFull:
		return "queue full"
	case Again:
		return "again"
	case OutOfRange:
		return "out of range"
	case NoMemory:
		return "no memory"
	case Permission:
		return "permission"
	case SoundSystemUnavailable:
		return "sound system unavailable"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is the concrete error type every fallible core operation returns.
type Error struct {
	Kind    Kind
	Op      string // operation name, e.g. "tonequeue.Enqueue"
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error with no wrapped cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap constructs an *Error wrapping cause.
func Wrap(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// Is reports whether err is (or wraps) a *cwerr.Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
