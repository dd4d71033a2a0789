// Package gallery loads the metadata of owned tokens for display. Each token is
// fetched independently and shows up as soon as its metadata arrives.
package gallery

import (
	"context"
	"fmt"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/doodlemint/doodlemint/internal/metrics"
	"github.com/doodlemint/doodlemint/pkg/bus"
	"github.com/doodlemint/doodlemint/pkg/bus/events"
	"github.com/doodlemint/doodlemint/pkg/content"
	"github.com/doodlemint/doodlemint/pkg/fanout"
	"github.com/doodlemint/doodlemint/pkg/ledger"
	"github.com/doodlemint/doodlemint/pkg/metadata"
)

var (
	log    = logging.Logger("gallery")
	tracer = otel.Tracer("github.com/doodlemint/doodlemint/pkg/gallery")
)

// DisplayToken is a token together with its fetched metadata.
type DisplayToken struct {
	ID       ledger.TokenID
	Metadata metadata.Record
}

// FetchError is the failure to load one token's metadata. It only affects
// that token.
type FetchError struct {
	TokenID ledger.TokenID
	Locator content.Locator
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching metadata for token %s: %v", e.TokenID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Gallery is the collection of display tokens for the latest refresh.
type Gallery struct {
	fetcher content.Fetcher
	pub     bus.Publisher
	limit   int

	mu       sync.Mutex
	epoch    uint64
	items    []DisplayToken
	failures []*FetchError
}

type Option func(g *Gallery)

// WithBus publishes gallery events on b.
func WithBus(b bus.Publisher) Option {
	return func(g *Gallery) {
		g.pub = b
	}
}

// WithConcurrency bounds how many fetches run at once. Zero or less means one
// goroutine per token.
func WithConcurrency(n int) Option {
	return func(g *Gallery) {
		g.limit = n
	}
}

func New(fetcher content.Fetcher, opts ...Option) *Gallery {
	g := &Gallery{
		fetcher: fetcher,
		pub:     &bus.NoopBus{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Refresh is one in-progress reload of the gallery.
type Refresh struct {
	Epoch uint64
	done  chan struct{}
	err   error
}

// Done is closed once every fetch of the refresh has finished.
func (r *Refresh) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until every fetch has finished and returns the joined
// [FetchError]s. A non-nil error does not mean the refresh failed as a whole.
func (r *Refresh) Wait() error {
	<-r.done
	return r.err
}

// Refresh clears the gallery and starts fetching metadata for tokens. Results
// of earlier refreshes that arrive later are discarded.
func (g *Gallery) Refresh(ctx context.Context, tokens []ledger.OwnedToken) *Refresh {
	g.mu.Lock()
	g.epoch++
	epoch := g.epoch
	g.items = nil
	g.failures = nil
	g.mu.Unlock()

	log.Debugw("refreshing gallery", "epoch", epoch, "tokens", len(tokens))
	g.pub.Publish(events.TopicGalleryReset(), events.GalleryReset{Epoch: epoch, Expected: len(tokens)})

	r := &Refresh{Epoch: epoch, done: make(chan struct{})}
	var group fanout.Group
	if g.limit > 0 {
		group.SetLimit(g.limit)
	}
	go func() {
		defer close(r.done)
		for _, tok := range tokens {
			group.Go(func() error {
				return g.load(ctx, epoch, tok)
			})
		}
		r.err = group.Wait()
	}()
	return r
}

func (g *Gallery) load(ctx context.Context, epoch uint64, tok ledger.OwnedToken) (retErr error) {
	ctx, span := tracer.Start(ctx, "load-token", trace.WithAttributes(
		attribute.String("token", tok.ID.String()),
		attribute.Int64("epoch", int64(epoch)),
	))
	defer func() {
		if retErr != nil {
			span.SetStatus(codes.Error, retErr.Error())
			span.RecordError(retErr)
		}
		span.End()
	}()

	b, err := g.fetcher.Fetch(ctx, tok.URI)
	if err != nil {
		return g.fail(epoch, &FetchError{TokenID: tok.ID, Locator: tok.URI, Err: err})
	}
	rec, err := metadata.Parse(b)
	if err != nil {
		return g.fail(epoch, &FetchError{TokenID: tok.ID, Locator: tok.URI, Err: err})
	}
	g.collect(epoch, DisplayToken{ID: tok.ID, Metadata: rec})
	return nil
}

func (g *Gallery) collect(epoch uint64, item DisplayToken) {
	g.mu.Lock()
	if epoch != g.epoch {
		g.mu.Unlock()
		metrics.GalleryFetches.WithLabelValues("stale").Inc()
		log.Debugw("discarding stale gallery entry", "epoch", epoch, "token", item.ID)
		return
	}
	g.items = append(g.items, item)
	g.mu.Unlock()

	metrics.GalleryFetches.WithLabelValues("ok").Inc()
	g.pub.Publish(events.TopicGalleryItem(), events.TokenView{
		Epoch:       epoch,
		ID:          item.ID,
		Name:        item.Metadata.Name,
		Description: item.Metadata.Description,
		Image:       item.Metadata.Image,
	})
}

func (g *Gallery) fail(epoch uint64, fe *FetchError) error {
	g.mu.Lock()
	if epoch != g.epoch {
		g.mu.Unlock()
		metrics.GalleryFetches.WithLabelValues("stale").Inc()
		return nil
	}
	g.failures = append(g.failures, fe)
	g.mu.Unlock()

	metrics.GalleryFetches.WithLabelValues("failed").Inc()
	log.Warnw("gallery entry failed", "epoch", epoch, "token", fe.TokenID, "locator", fe.Locator, "err", fe.Err)
	g.pub.Publish(events.TopicGalleryFailure(), events.FetchFailure{Epoch: epoch, ID: fe.TokenID, Err: fe})
	return fe
}

// Snapshot returns the entries collected so far for the latest refresh, in
// arrival order.
func (g *Gallery) Snapshot() []DisplayToken {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]DisplayToken(nil), g.items...)
}

// Failures returns the entries of the latest refresh that could not be
// loaded.
func (g *Gallery) Failures() []*FetchError {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*FetchError(nil), g.failures...)
}

// Epoch returns the number of the latest refresh.
func (g *Gallery) Epoch() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.epoch
}
