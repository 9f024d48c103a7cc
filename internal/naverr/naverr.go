// Package naverr defines the error-kind taxonomy shared across the build
// pipeline, tile cache, and query runtime.
//
// Modeled after detour.Status (github.com/arl/go-detour's
// detour/status.go), which encodes a result as a typed value implementing
// error, generalized beyond detour's success/failure/detail-bits scheme to
// the five error kinds spec.md §7 names.
package naverr

import "fmt"

// Kind classifies why an operation failed, determining how the caller
// should react (skip a unit, abort a load, fail a tile build, fail fast,
// or propagate an I/O failure).
type Kind int

const (
	// InputMissing: referenced data (model, collision, asset file) was not
	// found. Callers log a warning and skip the affected unit.
	InputMissing Kind = iota
	// InputInvalid: malformed input (bad version tag, corrupt header,
	// bogus offsets). Callers abort the current load and leave state clean.
	InputInvalid
	// ResourceExhaustion: an allocator or bounded structure is full.
	// Callers fail the current tile/request; other work continues.
	ResourceExhaustion
	// PreconditionViolation: an operation was attempted before its
	// prerequisite (e.g. partial rebuild before a full build, or a query
	// before load). Callers fail fast.
	PreconditionViolation
	// IO: a filesystem operation (scratch, load, save) failed.
	IO
)

func (k Kind) String() string {
	switch k {
	case InputMissing:
		return "input-missing"
	case InputInvalid:
		return "input-invalid"
	case ResourceExhaustion:
		return "resource-exhaustion"
	case PreconditionViolation:
		return "precondition-violation"
	case IO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is a kinded, wrapped error identifying the failing operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for op/kind, optionally wrapping err.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err is a naverr.Error of the given kind, so callers
// can branch with errors.Is-style checks, e.g.
// `if naverr.Is(err, naverr.InputMissing) { ... }`.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
