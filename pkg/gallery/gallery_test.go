package gallery_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/doodlemint/doodlemint/pkg/bus"
	"github.com/doodlemint/doodlemint/pkg/bus/events"
	"github.com/doodlemint/doodlemint/pkg/content"
	"github.com/doodlemint/doodlemint/pkg/gallery"
	"github.com/doodlemint/doodlemint/pkg/ledger"
	"github.com/doodlemint/doodlemint/pkg/ledger/memledger"
	"github.com/doodlemint/doodlemint/pkg/metadata"
)

func doc(name string) []byte {
	return fmt.Appendf(nil, `{"name":%q,"description":"d","image":"https://gw/ipfs/%s"}`, name, name)
}

// docs serves "https://gw/ipfs/<name>" with a document named <name>, and
// fails for names starting with "bad". "garbled", "null" and "blank" names
// serve unusable documents.
var docs = content.FetchFunc(func(ctx context.Context, loc content.Locator) ([]byte, error) {
	name := loc.String()[strings.LastIndex(loc.String(), "/")+1:]
	if strings.HasPrefix(name, "bad") {
		return nil, content.ErrNotFound
	}
	if strings.HasPrefix(name, "garbled") {
		return []byte("{"), nil
	}
	if strings.HasPrefix(name, "null") {
		return []byte("null"), nil
	}
	if strings.HasPrefix(name, "blank") {
		return []byte("{}"), nil
	}
	return doc(name), nil
})

func tok(id, name string) ledger.OwnedToken {
	return ledger.OwnedToken{ID: ledger.TokenID(id), URI: content.Locator("https://gw/ipfs/" + name)}
}

func ids(items []gallery.DisplayToken) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID.String())
	}
	sort.Strings(out)
	return out
}

func TestRefresh(t *testing.T) {
	t.Run("a failed fetch omits only that token", func(t *testing.T) {
		g := gallery.New(docs)
		r := g.Refresh(t.Context(), []ledger.OwnedToken{tok("1", "one"), tok("2", "bad"), tok("3", "three")})
		err := r.Wait()

		var fe *gallery.FetchError
		require.ErrorAs(t, err, &fe)
		require.Equal(t, ledger.TokenID("2"), fe.TokenID)
		require.ErrorIs(t, err, content.ErrNotFound)

		require.Equal(t, []string{"1", "3"}, ids(g.Snapshot()))
		require.Len(t, g.Failures(), 1)
	})

	t.Run("malformed metadata is a fetch error", func(t *testing.T) {
		g := gallery.New(docs)
		err := g.Refresh(t.Context(), []ledger.OwnedToken{tok("1", "garbled")}).Wait()
		var fe *gallery.FetchError
		require.ErrorAs(t, err, &fe)
		require.Empty(t, g.Snapshot())
	})

	t.Run("documents without a name or image are fetch errors", func(t *testing.T) {
		g := gallery.New(docs)
		err := g.Refresh(t.Context(), []ledger.OwnedToken{
			tok("1", "null"), tok("2", "blank"), tok("3", "three"),
		}).Wait()
		var fe *gallery.FetchError
		require.ErrorAs(t, err, &fe)
		var invalid *metadata.InvalidRecordError
		require.ErrorAs(t, err, &invalid)

		require.Equal(t, []string{"3"}, ids(g.Snapshot()))
		require.Len(t, g.Failures(), 2)
	})

	t.Run("entries carry their metadata", func(t *testing.T) {
		g := gallery.New(docs)
		require.NoError(t, g.Refresh(t.Context(), []ledger.OwnedToken{tok("7", "seven")}).Wait())
		snap := g.Snapshot()
		require.Len(t, snap, 1)
		require.Equal(t, "seven", snap[0].Metadata.Name)
		require.Equal(t, content.Locator("https://gw/ipfs/seven"), snap[0].Metadata.Image)
	})

	t.Run("no tokens", func(t *testing.T) {
		g := gallery.New(docs)
		require.NoError(t, g.Refresh(t.Context(), nil).Wait())
		require.Empty(t, g.Snapshot())
	})

	t.Run("late results of an older refresh are discarded", func(t *testing.T) {
		release := make(chan struct{})
		started := make(chan struct{}, 2)
		fetcher := content.FetchFunc(func(ctx context.Context, loc content.Locator) ([]byte, error) {
			if strings.HasSuffix(loc.String(), "/slow") || strings.HasSuffix(loc.String(), "/slowbad") {
				started <- struct{}{}
				<-release
				if strings.HasSuffix(loc.String(), "bad") {
					return nil, errors.New("timeout")
				}
			}
			return docs(ctx, loc)
		})
		g := gallery.New(fetcher)

		first := g.Refresh(t.Context(), []ledger.OwnedToken{tok("1", "slow"), tok("2", "slowbad")})
		<-started
		<-started

		second := g.Refresh(t.Context(), []ledger.OwnedToken{tok("10", "ten"), tok("11", "eleven")})
		require.NoError(t, second.Wait())
		require.Equal(t, []string{"10", "11"}, ids(g.Snapshot()))

		close(release)
		require.NoError(t, first.Wait())
		require.Equal(t, []string{"10", "11"}, ids(g.Snapshot()))
		require.Empty(t, g.Failures())
		require.Equal(t, second.Epoch, g.Epoch())
	})

	t.Run("refresh resets previous entries", func(t *testing.T) {
		g := gallery.New(docs)
		require.NoError(t, g.Refresh(t.Context(), []ledger.OwnedToken{tok("1", "one")}).Wait())
		require.NoError(t, g.Refresh(t.Context(), []ledger.OwnedToken{tok("2", "two")}).Wait())
		require.Equal(t, []string{"2"}, ids(g.Snapshot()))
	})

	t.Run("bounded concurrency still loads everything", func(t *testing.T) {
		g := gallery.New(docs, gallery.WithConcurrency(1))
		var tokens []ledger.OwnedToken
		for i := range 10 {
			tokens = append(tokens, tok(fmt.Sprint(i), fmt.Sprintf("n%d", i)))
		}
		require.NoError(t, g.Refresh(t.Context(), tokens).Wait())
		require.Len(t, g.Snapshot(), 10)
	})
}

func TestEvents(t *testing.T) {
	b := bus.New()
	var mu sync.Mutex
	var resets []events.GalleryReset
	var items []events.TokenView
	var failures []events.FetchFailure
	_, err := bus.Subscribe(b, events.TopicGalleryReset(), func(e events.GalleryReset) {
		mu.Lock()
		defer mu.Unlock()
		resets = append(resets, e)
	})
	require.NoError(t, err)
	_, err = bus.Subscribe(b, events.TopicGalleryItem(), func(e events.TokenView) {
		mu.Lock()
		defer mu.Unlock()
		items = append(items, e)
	})
	require.NoError(t, err)
	_, err = bus.Subscribe(b, events.TopicGalleryFailure(), func(e events.FetchFailure) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, e)
	})
	require.NoError(t, err)

	g := gallery.New(docs, gallery.WithBus(b))
	r := g.Refresh(t.Context(), []ledger.OwnedToken{tok("1", "one"), tok("2", "bad")})
	require.Error(t, r.Wait())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []events.GalleryReset{{Epoch: r.Epoch, Expected: 2}}, resets)
	require.Len(t, items, 1)
	require.Equal(t, "one", items[0].Name)
	require.Len(t, failures, 1)
	require.Equal(t, ledger.TokenID("2"), failures[0].ID)
}

func TestSyncer(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	l := memledger.New(owner)
	l.Seed(owner, tok("1", "one"), tok("2", "two"))

	g := gallery.New(docs)
	s := gallery.NewSyncer(l, g)

	r, err := s.Sync(t.Context(), owner)
	require.NoError(t, err)
	require.NoError(t, r.Wait())
	require.Equal(t, []string{"1", "2"}, ids(g.Snapshot()))

	require.NoError(t, s.Refresh(t.Context(), common.Address{}))
	require.Equal(t, uint64(2), g.Epoch())
}
