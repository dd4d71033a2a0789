// Package content defines how payloads are published to, and read back from,
// a content-addressed store.
package content

import (
	"context"
	"errors"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

var (
	ErrNotFound       = errors.New("content: not found")
	ErrInvalidLocator = errors.New("content: invalid locator")
	ErrCIDMismatch    = errors.New("content: cid mismatch")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Locator identifies a published payload. It dereferences to the exact bytes
// that were published and never changes once produced.
type Locator string

func (l Locator) String() string { return string(l) }

// CID extracts the content identifier from the last path segment of the
// locator.
func (l Locator) CID() (cid.Cid, error) {
	s := strings.TrimRight(string(l), "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, errors.Join(ErrInvalidLocator, err)
	}
	return c, nil
}

// Gateway builds locators by appending a content path to a public base URL.
type Gateway string

// Locator returns the gateway locator for c.
func (g Gateway) Locator(c cid.Cid) Locator {
	return Locator(g.base() + c.String())
}

func (g Gateway) base() string {
	if g == "" || strings.HasSuffix(string(g), "/") {
		return string(g)
	}
	return string(g) + "/"
}

// Publisher publishes a payload and returns its locator. Implementations make
// a single attempt per call and never retry.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) (Locator, error)
}

// Fetcher reads the payload a locator points to.
type Fetcher interface {
	Fetch(ctx context.Context, loc Locator) ([]byte, error)
}

// PublishFunc adapts a function to [Publisher].
type PublishFunc func(ctx context.Context, payload []byte) (Locator, error)

func (f PublishFunc) Publish(ctx context.Context, payload []byte) (Locator, error) {
	return f(ctx, payload)
}

// FetchFunc adapts a function to [Fetcher].
type FetchFunc func(ctx context.Context, loc Locator) ([]byte, error)

func (f FetchFunc) Fetch(ctx context.Context, loc Locator) ([]byte, error) {
	return f(ctx, loc)
}

// RawCID returns the CIDv1 (raw codec, sha2-256) of payload.
func RawCID(payload []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(payload, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
