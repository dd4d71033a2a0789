package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	lru "github.com/hashicorp/golang-lru/v2"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

var (
	log    = logging.Logger("content")
	tracer = otel.Tracer("github.com/doodlemint/doodlemint/pkg/content")
)

// DefaultMaxFetchSize bounds how much of a response body is read.
const DefaultMaxFetchSize = 10 << 20

// HTTPError is returned when a content endpoint answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Message)
}

// GatewayFetcher dereferences locators over HTTP(S). Locators are immutable,
// so fetched payloads may be cached.
type GatewayFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	cache   *lru.Cache[Locator, []byte]
	maxSize int64
}

var _ Fetcher = (*GatewayFetcher)(nil)

// FetcherOption configures a GatewayFetcher.
type FetcherOption func(f *GatewayFetcher) error

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *GatewayFetcher) error {
		f.client = c
		return nil
	}
}

// WithRateLimit throttles requests to rps with the given burst. A non-positive
// rps disables throttling.
func WithRateLimit(rps float64, burst int) FetcherOption {
	return func(f *GatewayFetcher) error {
		if rps <= 0 {
			f.limiter = nil
			return nil
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithCache keeps up to size fetched payloads in memory. Zero disables the
// cache.
func WithCache(size int) FetcherOption {
	return func(f *GatewayFetcher) error {
		if size <= 0 {
			f.cache = nil
			return nil
		}
		cache, err := lru.New[Locator, []byte](size)
		if err != nil {
			return fmt.Errorf("creating fetch cache: %w", err)
		}
		f.cache = cache
		return nil
	}
}

// WithMaxFetchSize bounds the response body size.
func WithMaxFetchSize(n int64) FetcherOption {
	return func(f *GatewayFetcher) error {
		if n <= 0 {
			return fmt.Errorf("max fetch size must be positive, got %d", n)
		}
		f.maxSize = n
		return nil
	}
}

func NewGatewayFetcher(opts ...FetcherOption) (*GatewayFetcher, error) {
	f := &GatewayFetcher{
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		maxSize: DefaultMaxFetchSize,
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *GatewayFetcher) Fetch(ctx context.Context, loc Locator) (_ []byte, retErr error) {
	ctx, span := tracer.Start(ctx, "fetch", trace.WithAttributes(
		attribute.String("locator", loc.String()),
	))
	defer func() {
		if retErr != nil {
			span.SetStatus(codes.Error, retErr.Error())
			span.RecordError(retErr)
		}
		span.End()
	}()

	if f.cache != nil {
		if b, ok := f.cache.Get(loc); ok {
			span.SetAttributes(attribute.Bool("cached", true))
			return bytes.Clone(b), nil
		}
	}

	u, err := url.Parse(string(loc))
	if err != nil {
		return nil, errors.Join(ErrInvalidLocator, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("%w: %q is not an absolute URL", ErrInvalidLocator, loc)
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for fetch slot: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", loc, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("fetching %s: %w", loc, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetching %s: %w", loc, &HTTPError{StatusCode: resp.StatusCode, Message: string(msg)})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", loc, err)
	}
	if int64(len(body)) > f.maxSize {
		return nil, fmt.Errorf("fetching %s: payload exceeds %d bytes", loc, f.maxSize)
	}

	if f.cache != nil {
		f.cache.Add(loc, bytes.Clone(body))
	}
	log.Debugw("fetched content", "locator", loc, "size", len(body))
	return body, nil
}
