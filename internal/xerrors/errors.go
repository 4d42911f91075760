// Package xerrors defines the typed error kinds of spec.md §7, wrapped
// with the teacher's own error-wrapping library (github.com/pkg/errors) so
// call sites can recover the kind with errors.Cause while still getting a
// readable, wrapped message.
package xerrors

import "github.com/pkg/errors"

// Kind classifies a failure per spec.md §7.
type Kind int

const (
	// InputError: missing file, corrupt buffer, schema fingerprint
	// mismatch. Fatal, aborts the run before any output is committed.
	InputError Kind = iota
	// ProfileError: invalid class name, unknown excludable class, too
	// many classes, no edges after parsing. Fatal.
	ProfileError
	// ReferenceError: way references unknown node, restriction
	// references missing way/edge. Logged as warning, offending entity
	// dropped.
	ReferenceError
	// GeometryError: zero-length segment, degenerate coordinate. Segment
	// dropped with warning.
	GeometryError
	// EmptyIndex: no startpoint segments survive. Fatal.
	EmptyIndex
	// IOError during write. Fatal; partial files are removed.
	IOError
)

func (k Kind) String() string {
	switch k {
	case InputError:
		return "InputError"
	case ProfileError:
		return "ProfileError"
	case ReferenceError:
		return "ReferenceError"
	case GeometryError:
		return "GeometryError"
	case EmptyIndex:
		return "EmptyIndex"
	case IOError:
		return "IOError"
	default:
		return "UnknownError"
	}
}

// Fatal reports whether an error of this kind should abort the run,
// versus being logged and having the offending entity dropped.
func (k Kind) Fatal() bool {
	switch k {
	case ReferenceError, GeometryError:
		return false
	default:
		return true
	}
}

// Error is a typed, kind-tagged error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// New wraps msg under kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// Wrap wraps err under kind with additional context.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: errors.Wrap(err, msg)}
}

// Wrapf wraps err under kind with a formatted message.
func Wrapf(kind Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: errors.Wrapf(err, format, args...)}
}

// As reports whether err (or something it wraps) is an *Error of kind k.
func As(err error, k Kind) bool {
	var xe *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			xe = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return xe != nil && xe.Kind == k
}
