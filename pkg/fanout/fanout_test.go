package fanout_test

import (
	"errors"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/doodlemint/doodlemint/pkg/fanout"
)

func doSomePanicking() error {
	panic("test panic")
}

func TestGroup(t *testing.T) {
	t.Run("captures panics with their stack", func(t *testing.T) {
		var g fanout.Group
		g.Go(doSomePanicking)
		err := g.Wait()
		var pErr fanout.PanicError
		require.ErrorAs(t, err, &pErr)
		require.Equal(t, "test panic", pErr.Recovered())
		require.Regexp(t, regexp.MustCompile(`fanout_test\.doSomePanicking\(\)`), pErr.Stack())
		require.Contains(t, pErr.Error(), "panic: test panic")
	})

	t.Run("failures do not stop siblings", func(t *testing.T) {
		var g fanout.Group
		var done atomic.Int32
		errA, errB := errors.New("a"), errors.New("b")
		g.Go(func() error { return errA })
		g.Go(doSomePanicking)
		for range 5 {
			g.Go(func() error {
				done.Add(1)
				return nil
			})
		}
		g.Go(func() error { return errB })

		err := g.Wait()
		require.ErrorIs(t, err, errA)
		require.ErrorIs(t, err, errB)
		require.Equal(t, int32(5), done.Load())
	})

	t.Run("limit bounds concurrency", func(t *testing.T) {
		var g fanout.Group
		g.SetLimit(2)
		var running, peak atomic.Int32
		for range 6 {
			g.Go(func() error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}
		require.NoError(t, g.Wait())
		require.LessOrEqual(t, peak.Load(), int32(2))
	})

	t.Run("empty group", func(t *testing.T) {
		var g fanout.Group
		require.NoError(t, g.Wait())
	})
}
