// Package lazy holds process-wide handles that are opened on first use.
package lazy

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var ErrClosed = errors.New("resource closed")

// Resource opens a value at most once at a time. Concurrent first callers
// share one in-flight open and its result. A failed open is not cached, so
// the next caller tries again.
type Resource[T any] struct {
	open    func(ctx context.Context) (T, error)
	close   func(T) error
	timeout time.Duration

	group  singleflight.Group
	mu     sync.Mutex
	value  T
	ready  bool
	closed bool
}

// New returns a Resource. Each open attempt is bounded by timeout and is
// detached from the cancellation of the caller that happened to trigger it.
func New[T any](open func(ctx context.Context) (T, error), closeFn func(T) error, timeout time.Duration) *Resource[T] {
	return &Resource[T]{open: open, close: closeFn, timeout: timeout}
}

func (r *Resource[T]) Get(ctx context.Context) (T, error) {
	var zero T

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return zero, ErrClosed
	}
	if r.ready {
		v := r.value
		r.mu.Unlock()
		return v, nil
	}
	r.mu.Unlock()

	ch := r.group.DoChan("open", func() (any, error) {
		r.mu.Lock()
		if r.ready {
			v := r.value
			r.mu.Unlock()
			return v, nil
		}
		r.mu.Unlock()

		openCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		v, err := r.open(openCtx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			_ = r.close(v)
			return nil, ErrClosed
		}
		r.value, r.ready = v, true
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Close releases the value if it was ever opened. Later Get calls fail with ErrClosed.
func (r *Resource[T]) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if !r.ready {
		return nil
	}
	var zero T
	v := r.value
	r.value, r.ready = zero, false
	return r.close(v)
}
