// Package names generates readable token names from the EFF large word list.
package names

import (
	"math/rand/v2"
	"strings"

	"github.com/wordgen/wordlists/eff"
)

const (
	DefaultWords     = 3
	DefaultSeparator = "_"
)

// Generator picks words with its own random source. It is not safe for
// concurrent use.
type Generator struct {
	rng       *rand.Rand
	words     []string
	count     int
	separator string
}

type Option func(g *Generator)

// WithSeed makes the generator deterministic.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewPCG(seed, 0))
	}
}

// WithWords sets how many words make up a name.
func WithWords(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.count = n
		}
	}
}

func WithSeparator(sep string) Option {
	return func(g *Generator) {
		g.separator = sep
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		words:     eff.Large,
		count:     DefaultWords,
		separator: DefaultSeparator,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns a new name such as "glade_snowy_ferret".
func (g *Generator) Name() string {
	parts := make([]string, g.count)
	for i := range parts {
		parts[i] = g.words[g.rng.IntN(len(g.words))]
	}
	return strings.Join(parts, g.separator)
}

// Pair returns a name and a description, generated independently.
func (g *Generator) Pair() (name, description string) {
	return g.Name(), g.Name()
}

// Generate returns a name and description from a fresh generator.
func Generate() (name, description string) {
	return New().Pair()
}
