package matching

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFilter = errors.New("invalid filter parameters")
	ErrPersistence   = errors.New("persistence failure")
	ErrUserNotFound  = errors.New("user not found")
)

// PersistenceError wraps a failed collaborator read. Callers decide whether and
// when to retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// Retryable is always true; a read that failed may succeed later.
func (e *PersistenceError) Retryable() bool { return true }

func persistenceErr(op string, err error) error {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func invalidFilter(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidFilter, fmt.Sprintf(format, args...))
}
