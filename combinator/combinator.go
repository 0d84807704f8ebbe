// Package combinator implements WaitAny/WaitAll over a group of
// suspendable computations, completing on first- or all-success.
//
// Go goroutines are pre-emptively scheduled, not symmetric-transferred
// like the original's coroutines, so the "first N-1 resumed inline, Nth
// as transfer target" optimization the original describes does not apply
// verbatim here: every wrapper goroutine starts concurrently and the
// combinator blocks on a single channel. This is a documented, intentional
// simplification (§4.5), not a missed optimization.
package combinator

import (
	"context"
	"sync"
)

// Awaitable is anything that can be waited on from within a combinator:
// a function taking the combinator's (possibly derived) context and
// returning a value or error, the common shape of a task body.
type Awaitable func(ctx context.Context) (any, error)

// WaitAll runs every awaitable concurrently and returns once all have
// returned. As soon as one returns an error the shared context is
// cancelled, which causes any in-flight waitForEvent/timer sleep the
// other wrappers are blocked on to disarm and return early; the first
// error to occur is the one returned.
func WaitAll(ctx context.Context, awaitables ...Awaitable) ([]any, error) {
	n := len(awaitables)
	results := make([]any, n)

	childCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var firstErr error
	var errOnce sync.Once

	var wg sync.WaitGroup
	wg.Add(n)
	for i, aw := range awaitables {
		i, aw := i, aw
		go func() {
			defer wg.Done()
			v, err := aw(childCtx)
			results[i] = v
			if err != nil {
				errOnce.Do(func() {
					firstErr = err
					cancel()
				})
			}
		}()
	}
	wg.Wait()

	return results, firstErr
}

// WaitAll2 is the typed common-case pair form.
func WaitAll2[A, B any](ctx context.Context, a func(context.Context) (A, error), b func(context.Context) (B, error)) (A, B, error) {
	results, err := WaitAll(ctx,
		func(ctx context.Context) (any, error) { return a(ctx) },
		func(ctx context.Context) (any, error) { return b(ctx) },
	)
	var av A
	var bv B
	if results[0] != nil {
		av = results[0].(A)
	}
	if results[1] != nil {
		bv = results[1].(B)
	}
	return av, bv, err
}

// WaitAll3 is the typed common-case triple form.
func WaitAll3[A, B, C any](ctx context.Context, a func(context.Context) (A, error), b func(context.Context) (B, error), c func(context.Context) (C, error)) (A, B, C, error) {
	results, err := WaitAll(ctx,
		func(ctx context.Context) (any, error) { return a(ctx) },
		func(ctx context.Context) (any, error) { return b(ctx) },
		func(ctx context.Context) (any, error) { return c(ctx) },
	)
	var av A
	var bv B
	var cv C
	if results[0] != nil {
		av = results[0].(A)
	}
	if results[1] != nil {
		bv = results[1].(B)
	}
	if results[2] != nil {
		cv = results[2].(C)
	}
	return av, bv, cv, err
}

// winner is the internal message a wrapper goroutine sends when it is
// (or might be) the first to complete.
type winner struct {
	index int
	value any
	err   error
}

// WaitAny runs every awaitable concurrently; the first to complete
// cancels the shared context (disarming the others' in-flight
// registrations) and its result is returned with its index.
func WaitAny(ctx context.Context, awaitables ...Awaitable) (int, any, error) {
	childCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan winner, len(awaitables))
	for i, aw := range awaitables {
		i, aw := i, aw
		go func() {
			v, err := aw(childCtx)
			select {
			case ch <- winner{i, v, err}:
			case <-childCtx.Done():
			}
		}()
	}

	w := <-ch
	cancel()
	return w.index, w.value, w.err
}

// WaitAnySlice is the homogeneous-slice form: every task shares type T.
func WaitAnySlice[T any](ctx context.Context, awaitables ...func(context.Context) (T, error)) (int, T, error) {
	wrapped := make([]Awaitable, len(awaitables))
	for i, aw := range awaitables {
		aw := aw
		wrapped[i] = func(ctx context.Context) (any, error) { return aw(ctx) }
	}
	idx, v, err := WaitAny(ctx, wrapped...)
	var zero T
	if v != nil {
		zero = v.(T)
	}
	return idx, zero, err
}
