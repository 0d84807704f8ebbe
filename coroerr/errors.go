// Package coroerr provides the error taxonomy crossing the runtime's
// external resource-setup boundary: bind, listen, epoll_create1,
// timerfd_create, and similar calls that fail before any task is
// running. Protocol errors and recovered task panics are each owned by
// the package whose boundary they belong to (http1.ProtocolError,
// task.PanicError) rather than duplicated here.
package coroerr

import "fmt"

// WrapError wraps cause with a message, preserving the cause chain so that
// errors.Is(result, cause) holds.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}

// SetupError represents a resource-setup failure (bind, listen, timer-fd
// create, poller create) that occurs before any task is running.
type SetupError struct {
	Op    string
	Cause error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *SetupError) Unwrap() error {
	return e.Cause
}

// NewSetupError builds a SetupError labelled with op.
func NewSetupError(op string, cause error) *SetupError {
	return &SetupError{Op: op, Cause: cause}
}
