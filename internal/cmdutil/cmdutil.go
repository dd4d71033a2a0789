// Package cmdutil builds the content and ledger backends the CLI commands
// share from the loaded configuration.
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/doodlemint/doodlemint/pkg/config"
	"github.com/doodlemint/doodlemint/pkg/content"
	"github.com/doodlemint/doodlemint/pkg/content/kubo"
	"github.com/doodlemint/doodlemint/pkg/content/localstore"
	"github.com/doodlemint/doodlemint/pkg/ledger"
	"github.com/doodlemint/doodlemint/pkg/ledger/evm"
	"github.com/doodlemint/doodlemint/pkg/mint"
	"github.com/doodlemint/doodlemint/pkg/surface"
)

var tracedHttpClient = &http.Client{
	Transport: otelhttp.NewTransport(http.DefaultTransport),
}

// Content is the configured content backend.
type Content struct {
	Publisher content.Publisher
	Fetcher   content.Fetcher
	// Local is set when the backend is the local store.
	Local *localstore.Store
}

// NewContent creates the publisher and fetcher for cfg. In local mode both
// are the same store; otherwise metadata is fetched through the gateway with
// the configured rate limit and cache.
func NewContent(cfg config.ContentConfig) (*Content, error) {
	switch cfg.Backend {
	case config.BackendLocal:
		store, err := localstore.NewOS(cfg.StoreDir(), cfg.GatewayURL)
		if err != nil {
			return nil, fmt.Errorf("opening local store: %w", err)
		}
		return &Content{Publisher: store, Fetcher: store, Local: store}, nil

	case config.BackendKubo, "":
		opts := []kubo.Option{kubo.WithHTTPClient(tracedHttpClient)}
		if cfg.AuthHeader != "" {
			opts = append(opts, kubo.WithHeader("Authorization", cfg.AuthHeader))
		}
		pub, err := kubo.New(cfg.APIURL, cfg.GatewayURL, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating kubo client: %w", err)
		}
		fetcher, err := NewFetcher(cfg)
		if err != nil {
			return nil, err
		}
		return &Content{Publisher: pub, Fetcher: fetcher}, nil

	default:
		return nil, fmt.Errorf("unknown content backend %q", cfg.Backend)
	}
}

// NewFetcher creates a gateway fetcher for cfg.
func NewFetcher(cfg config.ContentConfig) (*content.GatewayFetcher, error) {
	opts := []content.FetcherOption{content.WithHTTPClient(tracedHttpClient)}
	if cfg.FetchRate > 0 {
		opts = append(opts, content.WithRateLimit(cfg.FetchRate, cfg.FetchBurst))
	}
	if cfg.CacheSize > 0 {
		opts = append(opts, content.WithCache(cfg.CacheSize))
	}
	f, err := content.NewGatewayFetcher(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gateway fetcher: %w", err)
	}
	return f, nil
}

// DialLedger connects to the configured contract. Without a private key the
// ledger can list tokens but not mint.
func DialLedger(ctx context.Context, cfg config.LedgerConfig) (*evm.Ledger, error) {
	if err := cfg.Require(); err != nil {
		return nil, NewHandledCliError(fmt.Errorf("%w (set them in doodlemint-config.yaml or with --rpc-url and --contract)", err))
	}
	var opts []evm.Option
	if cfg.PollInterval > 0 {
		opts = append(opts, evm.WithPollInterval(cfg.PollInterval))
	}
	if cfg.ConfirmTimeout > 0 {
		opts = append(opts, evm.WithConfirmTimeout(cfg.ConfirmTimeout))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, evm.WithMaxTokens(cfg.MaxTokens))
	}
	return evm.Dial(ctx, cfg.RPCURL, cfg.ContractAddress(), cfg.PrivateKey, opts...)
}

func NewHandledCliError(err error) HandledCliError {
	return HandledCliError{err}
}

// HandledCliError is an error whose message is already phrased for the user.
// It is printed as is and never translated again.
type HandledCliError struct {
	error
}

func (e HandledCliError) Unwrap() error {
	return e.error
}

// TranslateError turns the errors a mint can end with into messages a user
// can act on. Other errors are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var handled HandledCliError
	if errors.As(err, &handled) {
		return err
	}

	switch {
	case errors.Is(err, surface.ErrEmpty):
		return NewHandledCliError(fmt.Errorf("nothing to mint: the drawing is blank"))
	case errors.Is(err, ledger.ErrNoAccount):
		return NewHandledCliError(fmt.Errorf("no account to mint with: set ledger.private_key or DOODLEMINT_LEDGER_PRIVATE_KEY"))
	case errors.Is(err, mint.ErrInProgress):
		return NewHandledCliError(fmt.Errorf("a mint is already in progress"))
	}

	var pubErr mint.PublishError
	if errors.As(err, &pubErr) {
		return NewHandledCliError(fmt.Errorf("upload failed while publishing the %s: %w", pubErr.Stage, pubErr.Unwrap()))
	}
	var subErr mint.SubmissionError
	if errors.As(err, &subErr) {
		return NewHandledCliError(fmt.Errorf("minting error: %w", subErr.Unwrap()))
	}
	return err
}
