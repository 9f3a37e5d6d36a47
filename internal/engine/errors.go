package engine

import (
	"errors"
	"fmt"
)

// Errors returned by engine operations.
var (
	// ErrNothingToUndo indicates the undo side of the history is empty.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo indicates the redo side of the history is empty.
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrNothingToRewind indicates the journal cursor is before the first snapshot.
	ErrNothingToRewind = errors.New("nothing to rewind")

	// ErrNothingToReplay indicates the journal cursor is at the newest snapshot.
	ErrNothingToReplay = errors.New("nothing to replay")

	// ErrReadOnly indicates an operation was attempted on a read-only engine.
	ErrReadOnly = errors.New("engine is read-only")

	// ErrNotGroup indicates Ungroup was called on an object that is not a group.
	ErrNotGroup = errors.New("object is not a group")

	// ErrEmptyGroup indicates Group was called without members.
	ErrEmptyGroup = errors.New("group needs at least one member")

	// ErrNilMutation indicates Edit was called without a mutation function.
	ErrNilMutation = errors.New("mutation function is nil")
)

// ObjectError records a failed operation on a single object.
type ObjectError struct {
	Op  string
	ID  string
	Err error
}

// Error implements the error interface.
func (e *ObjectError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

// Unwrap returns the underlying error.
func (e *ObjectError) Unwrap() error {
	return e.Err
}

func objectError(op, id string, err error) error {
	return &ObjectError{Op: op, ID: id, Err: err}
}
