// Package mint turns a drawing into a token: it publishes the image and its
// metadata to a content store and submits the mint to the ledger, one step
// after the other.
package mint

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/doodlemint/doodlemint/internal/metrics"
	"github.com/doodlemint/doodlemint/pkg/bus"
	"github.com/doodlemint/doodlemint/pkg/content"
	"github.com/doodlemint/doodlemint/pkg/ledger"
	"github.com/doodlemint/doodlemint/pkg/metadata"
	"github.com/doodlemint/doodlemint/pkg/status"
	"github.com/doodlemint/doodlemint/pkg/surface"
)

var (
	log    = logging.Logger("mint")
	tracer = otel.Tracer("github.com/doodlemint/doodlemint/pkg/mint")
)

// Refresher reloads the owner's token list after a successful mint.
type Refresher interface {
	Refresh(ctx context.Context, owner common.Address) error
}

// RefreshFunc adapts a function to [Refresher].
type RefreshFunc func(ctx context.Context, owner common.Address) error

func (f RefreshFunc) Refresh(ctx context.Context, owner common.Address) error {
	return f(ctx, owner)
}

// Result describes a successful mint.
type Result struct {
	Attempt         string
	Owner           common.Address
	ImageLocator    content.Locator
	MetadataLocator content.Locator
	Record          metadata.Record
	Receipt         ledger.Receipt
}

// Pipeline runs mint attempts one at a time and owns the status they
// produce.
type Pipeline struct {
	encoder   surface.Encoder
	publisher content.Publisher
	submitter ledger.Submitter
	accounts  ledger.AccountSource
	refresher Refresher
	cell      *status.Cell

	busy atomic.Bool
}

type Option func(p *Pipeline)

// WithEncoder sets the surface encoder. The default encodes PNG.
func WithEncoder(e surface.Encoder) Option {
	return func(p *Pipeline) {
		p.encoder = e
	}
}

// WithRefresher sets what is refreshed after a successful mint.
func WithRefresher(r Refresher) Option {
	return func(p *Pipeline) {
		p.refresher = r
	}
}

// WithBus publishes status changes on b.
func WithBus(b bus.Bus) Option {
	return func(p *Pipeline) {
		p.cell = status.NewCell(b)
	}
}

func New(publisher content.Publisher, submitter ledger.Submitter, accounts ledger.AccountSource, opts ...Option) *Pipeline {
	p := &Pipeline{
		encoder:   surface.PNGEncoder{},
		publisher: publisher,
		submitter: submitter,
		accounts:  accounts,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cell == nil {
		p.cell = status.NewCell(nil)
	}
	return p
}

// Status returns the read-only view of the pipeline status.
func (p *Pipeline) Status() status.Reader {
	return p.cell
}

// Mint runs one attempt: encode s, publish the image, assemble and publish the
// metadata, then submit the mint. Each step runs only if the previous one
// succeeded and nothing is retried. On success s is cleared and the owner's
// tokens are refreshed.
func (p *Pipeline) Mint(ctx context.Context, s surface.Surface, name, description string) (Result, error) {
	if !p.busy.CompareAndSwap(false, true) {
		metrics.MintAttempts.WithLabelValues("busy").Inc()
		return Result{}, ErrInProgress
	}
	release := sync.OnceFunc(func() { p.busy.Store(false) })
	defer release()

	a := &attempt{Pipeline: p, id: uuid.NewString()}
	ctx, span := tracer.Start(ctx, "mint", trace.WithAttributes(attribute.String("attempt", a.id)))
	defer span.End()

	log.Infow("mint attempt started", "attempt", a.id, "name", name)
	res, err := a.run(ctx, s, name, description)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		metrics.MintAttempts.WithLabelValues(outcome(err)).Inc()
		log.Warnw("mint attempt failed", "attempt", a.id, "err", err)
		return Result{}, err
	}
	metrics.MintAttempts.WithLabelValues("success").Inc()
	log.Infow("mint attempt succeeded", "attempt", a.id, "token", res.Receipt.TokenID, "metadata", res.MetadataLocator)

	release()
	if p.refresher != nil {
		if err := p.refresher.Refresh(ctx, res.Owner); err != nil {
			log.Warnw("refreshing tokens after mint", "attempt", a.id, "owner", res.Owner.Hex(), "err", err)
		}
	}
	return res, nil
}

// attempt is the state of one Mint call.
type attempt struct {
	*Pipeline
	id string
}

func (a *attempt) set(phase status.Phase, msg string, err error) {
	a.cell.Set(status.Status{Phase: phase, Message: msg, Err: err, Attempt: a.id})
}

func (a *attempt) run(ctx context.Context, s surface.Surface, name, description string) (Result, error) {
	res := Result{Attempt: a.id}
	a.set(status.Uploading, status.MsgUploading, nil)

	payload, err := step(ctx, "encode", func(context.Context) ([]byte, error) {
		if err := (metadata.Record{Name: name, Description: description}).ValidateText(); err != nil {
			return nil, err
		}
		return a.encoder.Encode(s)
	})
	if err != nil {
		return a.fail(status.MsgNothing, ValidationError{err: err})
	}

	res.ImageLocator, err = step(ctx, "publish-image", func(ctx context.Context) (content.Locator, error) {
		return a.publish(ctx, StageImage, payload)
	})
	if err != nil {
		return a.fail(status.MsgUpload, PublishError{Stage: StageImage, err: err})
	}

	res.Record, err = metadata.Assemble(name, description, res.ImageLocator)
	if err != nil {
		return a.fail(status.MsgNothing, ValidationError{err: err})
	}
	doc, err := res.Record.Marshal()
	if err != nil {
		return a.fail(status.MsgNothing, ValidationError{err: err})
	}

	res.MetadataLocator, err = step(ctx, "publish-metadata", func(ctx context.Context) (content.Locator, error) {
		return a.publish(ctx, StageMetadata, doc)
	})
	if err != nil {
		return a.fail(status.MsgUpload, PublishError{Stage: StageMetadata, err: err})
	}

	a.set(status.Minting, status.MsgMinting, nil)
	res.Receipt, err = step(ctx, "submit", func(ctx context.Context) (ledger.Receipt, error) {
		owner, err := a.accounts.Account(ctx)
		if err != nil {
			return ledger.Receipt{}, fmt.Errorf("resolving account: %w", err)
		}
		res.Owner = owner
		return a.submitter.Submit(ctx, ledger.MintRequest{Owner: owner, MetadataLocator: res.MetadataLocator})
	})
	if err != nil {
		return a.fail(status.MsgMintError, SubmissionError{err: err})
	}

	s.Clear()
	a.set(status.Success, status.MsgSuccess, nil)
	return res, nil
}

func (a *attempt) publish(ctx context.Context, stage Stage, payload []byte) (content.Locator, error) {
	loc, err := a.publisher.Publish(ctx, payload)
	if err != nil {
		return "", err
	}
	if loc == "" {
		return "", fmt.Errorf("publisher returned an empty locator")
	}
	metrics.PublishedBytes.WithLabelValues(string(stage)).Add(float64(len(payload)))
	log.Debugw("published", "attempt", a.id, "stage", stage, "locator", loc, "size", len(payload))
	return loc, nil
}

func (a *attempt) fail(msg string, err error) (Result, error) {
	a.set(status.Error, msg, err)
	return Result{}, err
}

// step runs fn inside a span named name.
func step[T any](ctx context.Context, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()
	v, err := fn(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	return v, err
}

func outcome(err error) string {
	switch err.(type) {
	case ValidationError:
		return "validation"
	case PublishError:
		return "publish"
	case SubmissionError:
		return "submission"
	default:
		return "error"
	}
}
