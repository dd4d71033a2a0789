package memledger_test

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/doodlemint/doodlemint/pkg/ledger"
	"github.com/doodlemint/doodlemint/pkg/ledger/memledger"
)

var owner = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func TestLedger(t *testing.T) {
	t.Run("mints sequential tokens", func(t *testing.T) {
		l := memledger.New(owner)
		r1, err := l.Submit(t.Context(), ledger.MintRequest{Owner: owner, MetadataLocator: "https://gw/ipfs/a"})
		require.NoError(t, err)
		r2, err := l.Submit(t.Context(), ledger.MintRequest{Owner: owner, MetadataLocator: "https://gw/ipfs/b"})
		require.NoError(t, err)
		require.Equal(t, ledger.TokenID("1"), r1.TokenID)
		require.Equal(t, ledger.TokenID("2"), r2.TokenID)

		tokens, err := l.TokensOf(t.Context(), owner)
		require.NoError(t, err)
		require.Equal(t, []ledger.OwnedToken{
			{ID: "1", URI: "https://gw/ipfs/a"},
			{ID: "2", URI: "https://gw/ipfs/b"},
		}, tokens)
	})

	t.Run("first terminal event wins", func(t *testing.T) {
		l := memledger.New(owner)
		l.EmitDuplicates(true)
		for range 20 {
			r, err := l.Submit(t.Context(), ledger.MintRequest{Owner: owner, MetadataLocator: "https://gw/ipfs/a"})
			require.NoError(t, err)
			require.NotEqual(t, ledger.TokenID("duplicate"), r.TokenID)
		}

		l.FailWith(errors.New("reverted"))
		for range 20 {
			_, err := l.Submit(t.Context(), ledger.MintRequest{Owner: owner, MetadataLocator: "https://gw/ipfs/a"})
			require.ErrorIs(t, err, ledger.ErrRejected)
		}
	})

	t.Run("failed mints own nothing", func(t *testing.T) {
		l := memledger.New(owner)
		l.FailWith(errors.New("reverted"))
		_, err := l.Submit(t.Context(), ledger.MintRequest{Owner: owner, MetadataLocator: "x"})
		require.Error(t, err)
		tokens, err := l.TokensOf(t.Context(), owner)
		require.NoError(t, err)
		require.Empty(t, tokens)
		require.Len(t, l.Requests(), 1)
	})
}
