// Package task implements the Go-idiomatic substitute for a coroutine
// promise: a goroutine plus a single-slot result channel. A goroutine IS a
// stackful coroutine frame, and a blocking channel receive is the
// suspension point a CPS-transformed await would otherwise need.
package task

import (
	"context"
	"fmt"

	"github.com/kestrelio/coro/corolog"
)

// PanicError wraps a recovered panic value so it can travel through the
// normal error-return path and still support errors.Is/errors.As via
// Unwrap, grounded on the teacher's errors.go PanicError convention.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task: panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Task is a handle to a suspendable computation. The body runs on its own
// goroutine from construction, but is held behind a start gate until the
// first Await or Run — Go has no "lazy initial suspend" primitive, so the
// gate channel is the substitute that preserves the "body runs only when
// awaited/resumed" contract.
type Task[T any] struct {
	start  chan struct{}
	done   chan struct{}
	result T
	err    error
}

// NewTask returns a started-but-gated task. fn is not invoked until Await
// or Run releases the start gate.
func NewTask[T any](fn func(context.Context) (T, error)) *Task[T] {
	t := &Task[T]{
		start: make(chan struct{}),
		done:  make(chan struct{}),
	}
	go func() {
		<-t.start
		defer func() {
			if r := recover(); r != nil {
				t.err = &PanicError{Value: r}
			}
			close(t.done)
		}()
		t.result, t.err = fn(context.Background())
	}()
	return t
}

// release opens the start gate exactly once; subsequent calls are no-ops.
func (t *Task[T]) release() {
	select {
	case <-t.start:
	default:
		close(t.start)
	}
}

// Await releases the start gate if not already released, then blocks the
// calling goroutine until the task's body returns or ctx is cancelled.
// Re-awaiting a task that has already been awaited is undefined — the
// contract documents this rather than defending against it at runtime,
// matching the original's "re-awaiting is undefined" stance.
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	t.release()
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Run adopts the task as fire-and-forget: it releases the start gate and
// returns immediately without waiting for completion. A panic recovered
// inside the task's goroutine is captured into PanicError but — because
// nothing ever calls Await on a Run task — is only observable by a logger
// wired in by the caller; Run itself never surfaces it. This is the sole
// fire-and-forget entry point; callers who need to observe failure must
// Await instead.
func (t *Task[T]) Run() {
	t.release()
}

// RunLogged is Run, except a panic captured in the task's body is logged
// through log at error level instead of being silently unobservable —
// the contract requires failures not to be swallowed even in
// fire-and-forget mode.
func (t *Task[T]) RunLogged(log corolog.Logger) {
	t.Run()
	go func() {
		<-t.done
		if t.err != nil {
			corolog.Error(log, "task", "fire-and-forget task failed", t.err, nil)
		}
	}()
}

// Done returns a channel that is closed when the task's body has
// returned, for callers that want to select on completion without
// blocking via Await.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}
