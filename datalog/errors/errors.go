// Package errors implements a structured error taxonomy, following the
// convention of a small set of sentinel kinds wrapped with contextual
// operation names via fmt.Errorf("%w", ...), rather than ad hoc string
// errors or panics across package boundaries.
package errors

import "fmt"

// Kind tags which part of the pipeline produced an error.
type Kind string

const (
	Parse           Kind = "parse"
	Safety          Kind = "safety"
	Stratification  Kind = "stratification"
	Schema          Kind = "schema"
	Compile         Kind = "compile"
	Runtime         Kind = "runtime"
	Timeout         Kind = "timeout"
	Cancelled       Kind = "cancelled"
	Resource        Kind = "resource"
)

// Error makes a bare Kind usable as an error sentinel, e.g. as the
// target of errors.Is.
func (k Kind) Error() string { return string(k) }

// Error is a typed, wrapped error carrying a Kind and the operation that
// raised it. errors.Is/errors.As work against Kind via Is, and against
// the wrapped cause via Unwrap.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Op)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, errors.Parse) (etc.) compare against a bare Kind
// sentinel as well as against another *Error of the same Kind.
func (e *Error) Is(target error) bool {
	if k, ok := target.(Kind); ok {
		return e.Kind == k
	}
	if other, ok := target.(*Error); ok {
		return e.Kind == other.Kind
	}
	return false
}

// New constructs a new *Error.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

func Parsef(op string, format string, args ...interface{}) *Error {
	return New(Parse, op, fmt.Errorf(format, args...))
}

func Safetyf(op string, format string, args ...interface{}) *Error {
	return New(Safety, op, fmt.Errorf(format, args...))
}

func Stratificationf(op string, format string, args ...interface{}) *Error {
	return New(Stratification, op, fmt.Errorf(format, args...))
}

func Schemaf(op string, format string, args ...interface{}) *Error {
	return New(Schema, op, fmt.Errorf(format, args...))
}

func Compilef(op string, format string, args ...interface{}) *Error {
	return New(Compile, op, fmt.Errorf(format, args...))
}

func Runtimef(op string, format string, args ...interface{}) *Error {
	return New(Runtime, op, fmt.Errorf(format, args...))
}

func Resourcef(op string, format string, args ...interface{}) *Error {
	return New(Resource, op, fmt.Errorf(format, args...))
}

// TimeoutErr and CancelledErr are process-wide sentinels (no formatted
// message needed; every call site attaches the same Kind).
var (
	TimeoutErr   = New(Timeout, "execute", fmt.Errorf("deadline exceeded"))
	CancelledErr = New(Cancelled, "execute", fmt.Errorf("execution cancelled"))
)
