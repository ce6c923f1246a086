// Package cherr implements the four-kind error taxonomy used throughout the
// build pipeline. Library code always returns an error (or panics with one,
// for core invariant violations); only cmd/chbuild turns a Fatal kind into a
// process exit.
package cherr

import "fmt"

// Kind is one of the four error kinds from the error-handling design.
type Kind int

const (
	// IngestMalformed: unreadable file, count mismatch, id-at-line mismatch.
	IngestMalformed Kind = iota
	// FormatUnsupported: writer cannot serialize the requested node/edge shape.
	FormatUnsupported
	// InvariantViolation: a precondition of the core was broken by its caller.
	InvariantViolation
	// CoreEmpty: find_node on a file whose core chain is empty.
	CoreEmpty
)

func (k Kind) String() string {
	switch k {
	case IngestMalformed:
		return "IngestMalformed"
	case FormatUnsupported:
		return "FormatUnsupported"
	case InvariantViolation:
		return "InvariantViolation"
	case CoreEmpty:
		return "CoreEmpty"
	default:
		return "Unknown"
	}
}

// Error is a typed, wrappable error carrying one of the four kinds.
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

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind wrapping an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Assert panics with an InvariantViolation if cond is false. Used inside the
// contraction core for preconditions that are a programming error in the
// caller (the witness-search or the ingest path), not user-correctable input.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(New(InvariantViolation, format, args...))
	}
}

// IsFatal reports whether a kind always terminates the process per the
// propagation policy (every kind except the reader's CoreEmpty sentinel).
func (k Kind) IsFatal() bool {
	return k != CoreEmpty
}
