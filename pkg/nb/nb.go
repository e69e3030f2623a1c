// Package nb holds the non-blocking poll contract shared by CAN drivers.
//
// A non-blocking operation makes a single attempt and returns ErrWouldBlock
// when it cannot complete right now. ErrWouldBlock is not a failure, the
// caller is expected to poll again later.
package nb

import (
	"context"
	"errors"
	"runtime"
)

var ErrWouldBlock = errors.New("operation would block")

// Block polls f until it returns something other than ErrWouldBlock.
// There is no timeout, the goroutine yields between polls.
func Block[T any](f func() (T, error)) (T, error) {
	for {
		v, err := f()
		if !errors.Is(err, ErrWouldBlock) {
			return v, err
		}
		runtime.Gosched()
	}
}

// BlockContext is like Block but gives up with the context error once ctx is done.
func BlockContext[T any](ctx context.Context, f func() (T, error)) (T, error) {
	for {
		v, err := f()
		if !errors.Is(err, ErrWouldBlock) {
			return v, err
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		default:
			runtime.Gosched()
		}
	}
}
