// Package future provides a single-assignment asynchronous result container
// with chainable continuations. A future settles at most once; settling again
// is a no-op. Continuations registered on an already-settled future run
// immediately on the caller's goroutine, which the session state machine
// relies on for its completion checks.
package future

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type outcome int

const (
	pending outcome = iota
	fulfilled
	rejected
)

// Future holds a value that will exist later.
type Future[T any] struct {
	mu       sync.Mutex
	outcome  outcome
	value    T
	err      error
	handlers []func(T, error)
}

// New runs executor synchronously with the future's two setters. A panic in
// the executor rejects the future.
func New[T any](executor func(resolve func(T), reject func(error))) *Future[T] {
	f := &Future[T]{}
	func() {
		defer func() {
			if r := recover(); r != nil {
				f.Reject(fmt.Errorf("future executor: %v", r))
			}
		}()
		executor(f.Resolve, f.Reject)
	}()
	return f
}

// Pending returns an unsettled future to be resolved or rejected later.
func Pending[T any]() *Future[T] {
	return &Future[T]{}
}

// Resolved returns an already-fulfilled future.
func Resolved[T any](value T) *Future[T] {
	f := &Future[T]{}
	f.Resolve(value)
	return f
}

// Rejected returns an already-rejected future.
func Rejected[T any](err error) *Future[T] {
	f := &Future[T]{}
	f.Reject(err)
	return f
}

// Resolve fulfills the future. Only the first Resolve or Reject wins.
func (f *Future[T]) Resolve(value T) {
	f.settle(fulfilled, value, nil)
}

// Reject fails the future. Only the first Resolve or Reject wins.
func (f *Future[T]) Reject(err error) {
	if err == nil {
		err = errors.New("future rejected")
	}
	var zero T
	f.settle(rejected, zero, err)
}

func (f *Future[T]) settle(o outcome, value T, err error) {
	f.mu.Lock()
	if f.outcome != pending {
		f.mu.Unlock()
		return
	}
	f.outcome = o
	f.value = value
	f.err = err
	handlers := f.handlers
	f.handlers = nil
	f.mu.Unlock()

	for _, h := range handlers {
		h(value, err)
	}
}

// onSettled runs fn with the outcome, immediately if already settled.
func (f *Future[T]) onSettled(fn func(T, error)) {
	f.mu.Lock()
	if f.outcome == pending {
		f.handlers = append(f.handlers, fn)
		f.mu.Unlock()
		return
	}
	value, err := f.value, f.err
	f.mu.Unlock()
	fn(value, err)
}

// Done registers a terminal observer for the settled outcome.
func (f *Future[T]) Done(fn func(T, error)) {
	f.onSettled(fn)
}

// Settled reports whether the future has been fulfilled or rejected.
func (f *Future[T]) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outcome != pending
}

// Wait blocks until the future settles or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	done := make(chan struct{})
	var value T
	var err error
	f.onSettled(func(v T, e error) {
		value, err = v, e
		close(done)
	})

	select {
	case <-done:
		return value, err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then derives a new future from the fulfilled value. Rejection passes
// through unchanged; a panic in onFulfilled rejects the derived future.
func Then[T, U any](f *Future[T], onFulfilled func(T) (U, error)) *Future[U] {
	out := &Future[U]{}
	f.onSettled(func(value T, err error) {
		if err != nil {
			out.Reject(err)
			return
		}
		settleFrom(out, func() (U, error) { return onFulfilled(value) })
	})
	return out
}

// ThenFuture is Then for continuations that themselves return a future. The
// derived future follows the inner future's eventual outcome.
func ThenFuture[T, U any](f *Future[T], onFulfilled func(T) *Future[U]) *Future[U] {
	out := &Future[U]{}
	f.onSettled(func(value T, err error) {
		if err != nil {
			out.Reject(err)
			return
		}
		var inner *Future[U]
		ok := func() (ok bool) {
			defer func() {
				if r := recover(); r != nil {
					out.Reject(fmt.Errorf("future handler: %v", r))
				}
			}()
			inner = onFulfilled(value)
			return true
		}()
		if !ok {
			return
		}
		if inner == nil {
			out.Reject(errors.New("future continuation returned nil future"))
			return
		}
		inner.onSettled(func(v U, e error) {
			if e != nil {
				out.Reject(e)
				return
			}
			out.Resolve(v)
		})
	})
	return out
}

// Catch derives a new future that recovers from rejection. Fulfillment
// passes through unchanged.
func (f *Future[T]) Catch(onRejected func(error) (T, error)) *Future[T] {
	out := &Future[T]{}
	f.onSettled(func(value T, err error) {
		if err == nil {
			out.Resolve(value)
			return
		}
		settleFrom(out, func() (T, error) { return onRejected(err) })
	})
	return out
}

// All settles with the ordered values once every input fulfills, or rejects
// with the first rejection encountered.
func All[T any](futures []*Future[T]) *Future[[]T] {
	out := &Future[[]T]{}
	if len(futures) == 0 {
		out.Resolve([]T{})
		return out
	}

	var mu sync.Mutex
	values := make([]T, len(futures))
	remaining := len(futures)

	for i, f := range futures {
		i := i
		f.onSettled(func(value T, err error) {
			if err != nil {
				out.Reject(err)
				return
			}
			mu.Lock()
			values[i] = value
			remaining--
			last := remaining == 0
			mu.Unlock()
			if last {
				out.Resolve(values)
			}
		})
	}
	return out
}

func settleFrom[U any](out *Future[U], fn func() (U, error)) {
	defer func() {
		if r := recover(); r != nil {
			out.Reject(fmt.Errorf("future handler: %v", r))
		}
	}()
	value, err := fn()
	if err != nil {
		out.Reject(err)
		return
	}
	out.Resolve(value)
}
