package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doodlemint/doodlemint/pkg/ledger"
)

func TestLatch(t *testing.T) {
	t.Run("first resolve wins", func(t *testing.T) {
		l := ledger.NewLatch[int]()
		require.True(t, l.Resolve(1))
		require.False(t, l.Resolve(2))
		require.False(t, l.Reject(errors.New("late")))

		v, err := l.Wait(t.Context())
		require.NoError(t, err)
		require.Equal(t, 1, v)
	})

	t.Run("first reject wins", func(t *testing.T) {
		boom := errors.New("boom")
		l := ledger.NewLatch[int]()
		require.True(t, l.Reject(boom))
		require.False(t, l.Resolve(3))

		_, err := l.Wait(t.Context())
		require.ErrorIs(t, err, boom)
	})

	t.Run("concurrent settlers settle once", func(t *testing.T) {
		l := ledger.NewLatch[int]()
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				var ok bool
				if i%2 == 0 {
					ok = l.Resolve(i)
				} else {
					ok = l.Reject(errors.New("x"))
				}
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 1, wins)
		<-l.Done()
	})

	t.Run("wait honors the context", func(t *testing.T) {
		l := ledger.NewLatch[int]()
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		_, err := l.Wait(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestTokenID(t *testing.T) {
	id := ledger.TokenID("12345678901234567890")
	v, err := id.Big()
	require.NoError(t, err)
	require.Equal(t, id, ledger.TokenIDFromBig(v))

	_, err = ledger.TokenID("0x1").Big()
	require.Error(t, err)
}

func TestStaticAccount(t *testing.T) {
	_, err := ledger.StaticAccount{}.Account(t.Context())
	require.ErrorIs(t, err, ledger.ErrNoAccount)
}
