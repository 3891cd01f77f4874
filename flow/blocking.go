package flow

import (
	"context"
	"sync"

	"github.com/c360/streamkit/errors"
)

// Collect subscribes to p with unlimited demand and blocks until the
// sequence terminates or ctx is done. It returns the collected items and,
// for an error termination, the terminal error alongside the items gathered
// before it. Context cancellation disposes the subscription and returns the
// context error.
func Collect[T any](ctx context.Context, p Producer[T]) ([]T, error) {
	var (
		mu      sync.Mutex
		items   []T
		termErr error
	)
	done := make(chan struct{})

	handle := Subscribe(p, Callbacks[T]{
		OnItem: func(item T) {
			mu.Lock()
			items = append(items, item)
			mu.Unlock()
		},
		OnError: func(err error) {
			mu.Lock()
			termErr = err
			mu.Unlock()
		},
		Finally: func() { close(done) },
	})

	select {
	case <-done:
		mu.Lock()
		defer mu.Unlock()
		return items, termErr
	case <-ctx.Done():
		handle.Dispose()
		mu.Lock()
		defer mu.Unlock()
		return items, ctx.Err()
	}
}

// First blocks until p delivers its first item, requesting exactly one and
// cancelling the rest of the sequence. An empty sequence yields ErrNoItems.
func First[T any](ctx context.Context, p Producer[T]) (T, error) {
	items, err := Collect(ctx, Take(p, 1))
	var zero T
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, errors.Wrap(errors.ErrNoItems, "First", "Collect", "await first item")
	}
	return items[0], nil
}
