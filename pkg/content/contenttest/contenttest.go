// Package contenttest holds a conformance suite for content stores and
// in-memory doubles for tests.
package contenttest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doodlemint/doodlemint/pkg/content"
)

// Store is a publisher whose locators the same value can dereference.
type Store interface {
	content.Publisher
	content.Fetcher
}

// NewStore constructs a fresh, isolated store for one test.
type NewStore func(t *testing.T) Store

// RunConformance checks the publish and fetch contract of a store.
func RunConformance(t *testing.T, newStore NewStore) {
	t.Helper()

	t.Run("published bytes dereference exactly", func(t *testing.T) {
		s := newStore(t)
		want := []byte("a drawing, more or less")

		loc, err := s.Publish(t.Context(), want)
		require.NoError(t, err)
		require.NotEmpty(t, loc)

		got, err := s.Fetch(t.Context(), loc)
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("locator names the payload cid", func(t *testing.T) {
		s := newStore(t)
		payload := []byte(`{"name":"x"}`)

		loc, err := s.Publish(t.Context(), payload)
		require.NoError(t, err)

		want, err := content.RawCID(payload)
		require.NoError(t, err)
		got, err := loc.CID()
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("distinct payloads get distinct locators", func(t *testing.T) {
		s := newStore(t)
		a, err := s.Publish(t.Context(), []byte("a"))
		require.NoError(t, err)
		b, err := s.Publish(t.Context(), []byte("b"))
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})

	t.Run("republishing is harmless", func(t *testing.T) {
		s := newStore(t)
		payload := []byte("same")
		_, err := s.Publish(t.Context(), payload)
		require.NoError(t, err)
		loc, err := s.Publish(t.Context(), payload)
		require.NoError(t, err)
		got, err := s.Fetch(t.Context(), loc)
		require.NoError(t, err)
		require.Equal(t, payload, got)
	})

	t.Run("unknown content is not found", func(t *testing.T) {
		s := newStore(t)
		loc, err := s.Publish(t.Context(), []byte("known"))
		require.NoError(t, err)

		known, err := loc.CID()
		require.NoError(t, err)
		missing, err := content.RawCID([]byte("never published"))
		require.NoError(t, err)
		other := content.Locator(strings.TrimSuffix(string(loc), known.String()) + missing.String())

		_, err = s.Fetch(t.Context(), other)
		require.True(t, content.IsNotFound(err), "got %v", err)
	})
}

// MemStore is an in-memory [Store] that records every publish.
type MemStore struct {
	Gateway content.Gateway

	mu        sync.Mutex
	objects   map[string][]byte
	published [][]byte
}

var _ Store = (*MemStore)(nil)

func NewMemStore(gateway content.Gateway) *MemStore {
	return &MemStore{Gateway: gateway, objects: map[string][]byte{}}
}

func (m *MemStore) Publish(ctx context.Context, payload []byte) (content.Locator, error) {
	id, err := content.RawCID(payload)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := append([]byte(nil), payload...)
	m.objects[id.String()] = cp
	m.published = append(m.published, cp)
	return m.Gateway.Locator(id), nil
}

func (m *MemStore) Fetch(ctx context.Context, loc content.Locator) ([]byte, error) {
	id, err := loc.CID()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[id.String()]
	if !ok {
		return nil, content.ErrNotFound
	}
	return b, nil
}

// Published returns every payload passed to Publish, in call order.
func (m *MemStore) Published() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.published...)
}

// FailingPublisher fails every publish with Err and counts calls.
type FailingPublisher struct {
	Err error

	mu    sync.Mutex
	calls int
}

func (f *FailingPublisher) Publish(ctx context.Context, payload []byte) (content.Locator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.Err == nil {
		return "", errors.New("publish failed")
	}
	return "", f.Err
}

func (f *FailingPublisher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
