package hosted

import (
	"errors"
	"fmt"
)

// Common errors returned by the Runner
var (
	// ErrNilOperation is returned by NewRunner when no operation is supplied.
	ErrNilOperation = errors.New("hosted runner requires a non-nil operation")

	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = errors.New("hosted runner already started")

	// ErrShutdownTimeout is returned by Stop when the shutdown deadline passes
	// before the operation returns. The operation is abandoned, not killed.
	ErrShutdownTimeout = errors.New("shutdown deadline exceeded waiting for operation")
)

// OperationError wraps a fault raised by a hosted operation.
type OperationError struct {
	Name string // Runner name, for log correlation
	Err  error  // Original error returned (or recovered panic)
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	return fmt.Sprintf("hosted operation %q failed: %v", e.Name, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// PanicError is the fault recorded when an operation panics.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("operation panicked: %v", e.Value)
}
