// Package kubo publishes content through a Kubo compatible IPFS HTTP API.
package kubo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/doodlemint/doodlemint/pkg/content"
)

var (
	log    = logging.Logger("content/kubo")
	tracer = otel.Tracer("github.com/doodlemint/doodlemint/pkg/content/kubo")
)

const (
	DefaultAPIURL     = "https://ipfs.infura.io:5001/api/v0"
	DefaultGatewayURL = "https://ipfs.infura.io/ipfs/"
)

// AddResponse is the body returned by the add endpoint.
type AddResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// APIError is the error body returned by the API.
type APIError struct {
	Message string `json:"Message"`
	Code    int    `json:"Code"`
	Type    string `json:"Type"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kubo api error (%s): %s", e.Type, e.Message)
}

// Client publishes payloads with the API's add command. Each call makes a
// single request.
type Client struct {
	apiURL  *url.URL
	gateway content.Gateway
	client  *http.Client
	headers http.Header
}

var _ content.Publisher = (*Client)(nil)

type Option func(c *Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithHeader adds a header sent with every request, e.g. project credentials.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// New creates a client for the API at apiURL. Locators are built from
// gatewayURL.
func New(apiURL, gatewayURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(apiURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing api url: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("api url %q is not absolute", apiURL)
	}
	if gatewayURL == "" {
		return nil, fmt.Errorf("gateway url is required")
	}
	c := &Client{
		apiURL:  u,
		gateway: content.Gateway(gatewayURL),
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		headers: http.Header{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Publish(ctx context.Context, payload []byte) (_ content.Locator, retErr error) {
	ctx, span := tracer.Start(ctx, "publish", trace.WithAttributes(
		attribute.Int("size", len(payload)),
	))
	defer func() {
		if retErr != nil {
			span.SetStatus(codes.Error, retErr.Error())
			span.RecordError(retErr)
		}
		span.End()
	}()

	res, err := c.add(ctx, payload)
	if err != nil {
		return "", err
	}
	id, err := cid.Decode(res.Hash)
	if err != nil {
		return "", fmt.Errorf("decoding returned hash %q: %w", res.Hash, err)
	}
	loc := c.gateway.Locator(id)
	span.SetAttributes(attribute.String("cid", id.String()))
	log.Infow("published content", "cid", id, "size", humanize.Bytes(uint64(len(payload))), "locator", loc)
	return loc, nil
}

func (c *Client) add(ctx context.Context, payload []byte) (*AddResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "file")
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	endpoint := c.apiURL.JoinPath("add")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending add request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading add response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr APIError
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
			return nil, &apiErr
		}
		return nil, &content.HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var out AddResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding add response: %w", err)
	}
	if out.Hash == "" {
		return nil, fmt.Errorf("add response is missing a hash")
	}
	return &out, nil
}
