// Package fanout runs independent tasks concurrently. Unlike an
// [errgroup.Group], one task failing never cancels or hides the others.
package fanout

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Group runs tasks on their own goroutines, captures panics with the stack of
// the panicking goroutine and reports every failure from Wait.
type Group struct {
	eg errgroup.Group

	mu   sync.Mutex
	errs []error
}

// SetLimit bounds the number of tasks running at once. It must be called
// before the first Go. A negative limit means no bound.
func (g *Group) SetLimit(n int) {
	g.eg.SetLimit(n)
}

type PanicError struct {
	recovered any
	stack     string
}

func (e PanicError) Error() string {
	return fmt.Sprintf("panic: %v\n%s", e.recovered, e.stack)
}

func (e PanicError) Unwrap() error {
	wrappedError, ok := e.recovered.(error)
	if !ok {
		return nil
	}
	return wrappedError
}

func (e PanicError) Recovered() any {
	return e.recovered
}

func (e PanicError) Stack() string {
	return e.stack
}

// Go runs f. A returned error or panic is recorded and does not affect other
// tasks.
func (g *Group) Go(f func() error) {
	g.eg.Go(func() error {
		if err := run(f); err != nil {
			g.mu.Lock()
			g.errs = append(g.errs, err)
			g.mu.Unlock()
		}
		return nil
	})
}

func run(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = PanicError{recovered: r, stack: string(debug.Stack())}
		}
	}()
	return f()
}

// Wait blocks until every task has returned and joins their errors.
func (g *Group) Wait() error {
	_ = g.eg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
