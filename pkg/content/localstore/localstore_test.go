package localstore_test

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/doodlemint/doodlemint/pkg/content"
	"github.com/doodlemint/doodlemint/pkg/content/contenttest"
	"github.com/doodlemint/doodlemint/pkg/content/localstore"
)

func newStore(t *testing.T, fs afero.Fs) *localstore.Store {
	t.Helper()
	s, err := localstore.New(fs, "/store", "http://localhost:3000/ipfs/")
	require.NoError(t, err)
	return s
}

func TestConformance(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		contenttest.RunConformance(t, func(t *testing.T) contenttest.Store {
			return newStore(t, afero.NewMemMapFs())
		})
	})
	t.Run("os", func(t *testing.T) {
		contenttest.RunConformance(t, func(t *testing.T) contenttest.Store {
			s, err := localstore.NewOS(t.TempDir(), "http://localhost:3000/ipfs/")
			require.NoError(t, err)
			return s
		})
	})
}

func TestStore(t *testing.T) {
	t.Run("requires a root", func(t *testing.T) {
		_, err := localstore.New(afero.NewMemMapFs(), "", "http://gw/ipfs/")
		require.Error(t, err)
	})

	t.Run("locator uses the configured gateway", func(t *testing.T) {
		s := newStore(t, afero.NewMemMapFs())
		loc, err := s.Publish(t.Context(), []byte("png bytes"))
		require.NoError(t, err)
		id, err := content.RawCID([]byte("png bytes"))
		require.NoError(t, err)
		require.Equal(t, content.Locator("http://localhost:3000/ipfs/"+id.String()), loc)
		require.True(t, s.Has(id))
	})

	t.Run("detects tampered objects", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		s := newStore(t, fs)
		id, err := s.Put([]byte("original"))
		require.NoError(t, err)

		var path string
		require.NoError(t, afero.Walk(fs, "/store", func(p string, info os.FileInfo, err error) error {
			if err == nil && !info.IsDir() {
				path = p
			}
			return nil
		}))
		require.NotEmpty(t, path)
		require.NoError(t, afero.WriteFile(fs, path, []byte("tampered"), 0o644))

		_, err = s.Get(id)
		require.ErrorIs(t, err, content.ErrCIDMismatch)

		_, err = s.Put([]byte("original"))
		require.ErrorIs(t, err, localstore.ErrImmutable)
	})

	t.Run("rejects bad locators", func(t *testing.T) {
		s := newStore(t, afero.NewMemMapFs())
		_, err := s.Fetch(t.Context(), "http://localhost:3000/ipfs/nope")
		require.ErrorIs(t, err, content.ErrInvalidLocator)
	})
}
