package names_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doodlemint/doodlemint/pkg/metadata/names"
)

func TestGenerator(t *testing.T) {
	t.Run("default shape", func(t *testing.T) {
		name := names.New().Name()
		require.Len(t, strings.Split(name, names.DefaultSeparator), names.DefaultWords)
	})

	t.Run("seeded generators agree", func(t *testing.T) {
		a := names.New(names.WithSeed(42))
		b := names.New(names.WithSeed(42))
		for range 5 {
			require.Equal(t, a.Name(), b.Name())
		}
	})

	t.Run("custom words and separator", func(t *testing.T) {
		g := names.New(names.WithSeed(7), names.WithWords(2), names.WithSeparator("-"))
		require.Len(t, strings.Split(g.Name(), "-"), 2)
	})

	t.Run("pair is not empty", func(t *testing.T) {
		name, desc := names.Generate()
		require.NotEmpty(t, name)
		require.NotEmpty(t, desc)
	})
}
