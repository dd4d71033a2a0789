package ledger

import (
	"context"
	"sync"

	"github.com/doodlemint/doodlemint/internal/ctxutil"
)

// Latch holds the single terminal outcome of an asynchronous operation. The
// first Resolve or Reject wins and later calls are ignored.
type Latch[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func NewLatch[T any]() *Latch[T] {
	return &Latch[T]{done: make(chan struct{})}
}

// Resolve settles the latch with v. It reports whether this call settled it.
func (l *Latch[T]) Resolve(v T) bool {
	settled := false
	l.once.Do(func() {
		l.val = v
		close(l.done)
		settled = true
	})
	return settled
}

// Reject settles the latch with err. It reports whether this call settled it.
func (l *Latch[T]) Reject(err error) bool {
	settled := false
	l.once.Do(func() {
		l.err = err
		close(l.done)
		settled = true
	})
	return settled
}

// Done is closed once the latch is settled.
func (l *Latch[T]) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the latch settles or ctx ends.
func (l *Latch[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-l.done:
		return l.val, l.err
	case <-ctx.Done():
		var zero T
		return zero, ctxutil.Cause(ctx)
	}
}
