// Package gderrors defines the coordination kernel's error taxonomy. Each
// sentinel names a semantic kind, not a Go type, so callers can test with
// errors.Is regardless of which component raised it.
package gderrors

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is returned when an argument violates a documented
	// precondition: empty name, non-object update, malformed timestamp.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConfigurationError is returned when configuration is out of range or
	// names an unknown strategy.
	ErrConfigurationError = errors.New("configuration error")

	// ErrCollectionNotFound is returned when an operation targets a collection
	// absent from the registry.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrLockTimeout is returned when the CoarseLock cannot be acquired within
	// the requested window.
	ErrLockTimeout = errors.New("lock acquisition timed out")

	// ErrInvalidQuery is returned for a malformed update document: empty, no
	// $ operators, unknown operator, or type misuse by an operator.
	ErrInvalidQuery = errors.New("invalid update query")

	// ErrCorruptedIndex is returned when an object-store index backup is
	// structurally invalid or JSON-malformed.
	ErrCorruptedIndex = errors.New("corrupted index backup")
)

// MasterIndexOp names the operation a MasterIndexError occurred during.
type MasterIndexOp string

const (
	OpSave            MasterIndexOp = "save"
	OpLoad            MasterIndexOp = "load"
	OpLockAcquisition MasterIndexOp = "lock_acquisition"
)

// MasterIndexError wraps a property-store or codec failure with the
// operation that triggered it. Is matches any *MasterIndexError regardless
// of Op or Cause, and Unwrap exposes the wrapped cause for errors.As/Is
// chains that need to inspect it further.
type MasterIndexError struct {
	Op    MasterIndexOp
	Cause error
}

// NewMasterIndexError builds a MasterIndexError, wrapping cause with context
// about which operation failed.
func NewMasterIndexError(op MasterIndexOp, cause error) *MasterIndexError {
	return &MasterIndexError{
		Op:    op,
		Cause: pkgerrors.Wrap(cause, string(op)),
	}
}

// Error implements the error interface.
func (e *MasterIndexError) Error() string {
	return fmt.Sprintf("master index %s failed: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *MasterIndexError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a MasterIndexError, regardless of Op/Cause,
// so callers can test with errors.Is(err, &MasterIndexError{}).
func (e *MasterIndexError) Is(target error) bool {
	_, ok := target.(*MasterIndexError)
	return ok
}
