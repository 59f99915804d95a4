// Package bgerr defines the error taxonomy shared by every build-graph
// component: graph construction, artifact materialization, and
// orchestration all convert lower-level failures into a *bgerr.Error.
package bgerr

import "fmt"

// Kind categorizes a build-graph error.
type Kind int

const (
	// Build means an operation executed but exited unsuccessfully.
	Build Kind = iota
	// WrongInputs means an operation's input slots did not match what it expects.
	WrongInputs
	// WrongOutputs means an operation's output slots did not match what it produced.
	WrongOutputs
	// InvalidRecipe means graph construction found a structural problem.
	InvalidRecipe
	// LockFailed means an Artifact's internal lock was observed in an
	// inconsistent state. Go mutexes cannot be poisoned by a panicking
	// holder the way some other languages' locks can; this Kind exists so
	// callers retain a taxonomy member to match on.
	LockFailed
	// Other wraps I/O failures, process launch failures, and anything else.
	Other
)

func (k Kind) String() string {
	switch k {
	case Build:
		return "Build"
	case WrongInputs:
		return "WrongInputs"
	case WrongOutputs:
		return "WrongOutputs"
	case InvalidRecipe:
		return "InvalidRecipe"
	case LockFailed:
		return "LockFailed"
	case Other:
		return "Other"
	default:
		return "Unknown"
	}
}

// Error is a structured error carrying a taxonomy Kind and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by Kind, so errors.Is(err, bgerr.New(bgerr.Build, "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an Error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a Kind and message. Returns nil if err is nil.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: err}
}

// Wrapf wraps an existing error with a Kind and a formatted message.
func Wrapf(err error, kind Kind, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// KindOf extracts the Kind of err, or Other if err is not a *Error.
func KindOf(err error) Kind {
	if err == nil {
		return Other
	}
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return Other
}
