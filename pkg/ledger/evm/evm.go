// Package evm mints and enumerates tokens on an EVM chain through an
// ERC-721 Enumerable contract exposing mint(address,string).
package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/doodlemint/doodlemint/internal/ctxutil"
	"github.com/doodlemint/doodlemint/pkg/content"
	"github.com/doodlemint/doodlemint/pkg/ledger"
)

var (
	log    = logging.Logger("ledger/evm")
	tracer = otel.Tracer("github.com/doodlemint/doodlemint/pkg/ledger/evm")
)

const (
	DefaultPollInterval   = 2 * time.Second
	DefaultConfirmTimeout = 5 * time.Minute
	// DefaultMaxTokens bounds how many tokens TokensOf enumerates for one
	// owner.
	DefaultMaxTokens = 10_000
)

const contractABI = `[
	{"type":"function","name":"mint","stateMutability":"nonpayable",
	 "inputs":[{"name":"owner","type":"address"},{"name":"uri","type":"string"}],"outputs":[]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"tokenOfOwnerByIndex","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"tokenURI","stateMutability":"view",
	 "inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"event","name":"Transfer","anonymous":false,
	 "inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}]}
]`

var parsedABI = mustParseABI(contractABI)

// ErrTooManyTokens is returned by TokensOf when the contract reports a
// balance above the configured limit.
var ErrTooManyTokens = errors.New("too many tokens")

func mustParseABI(s string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Errorf("parsing contract abi: %w", err))
	}
	return a
}

// Backend is the subset of an Ethereum RPC client the ledger needs.
// *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

var _ Backend = (*ethclient.Client)(nil)

// Ledger signs mints with a single key and reads token ownership from the
// same contract.
type Ledger struct {
	backend        Backend
	contract       common.Address
	key            *ecdsa.PrivateKey
	from           common.Address
	pollInterval   time.Duration
	confirmTimeout time.Duration
	maxTokens      int64
}

var (
	_ ledger.Submitter     = (*Ledger)(nil)
	_ ledger.TokenLister   = (*Ledger)(nil)
	_ ledger.AccountSource = (*Ledger)(nil)
)

type Option func(l *Ledger)

// WithPollInterval sets how often the receipt is polled while waiting for
// confirmation.
func WithPollInterval(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.pollInterval = d
		}
	}
}

// WithConfirmTimeout bounds the wait for a receipt.
func WithConfirmTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.confirmTimeout = d
		}
	}
}

// WithMaxTokens sets the largest balance TokensOf will enumerate.
func WithMaxTokens(n int64) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxTokens = n
		}
	}
}

// New creates a ledger for contract on backend. key may be nil for a
// read-only ledger that can only enumerate tokens.
func New(backend Backend, contract common.Address, key *ecdsa.PrivateKey, opts ...Option) *Ledger {
	l := &Ledger{
		backend:        backend,
		contract:       contract,
		key:            key,
		pollInterval:   DefaultPollInterval,
		confirmTimeout: DefaultConfirmTimeout,
		maxTokens:      DefaultMaxTokens,
	}
	if key != nil {
		l.from = crypto.PubkeyToAddress(key.PublicKey)
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dial connects to the RPC endpoint at rpcURL. keyHex is a hex encoded
// secp256k1 private key, optionally 0x prefixed; empty means read-only.
func Dial(ctx context.Context, rpcURL string, contract common.Address, keyHex string, opts ...Option) (*Ledger, error) {
	var key *ecdsa.PrivateKey
	if keyHex != "" {
		k, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		key = k
	}
	rc, err := rpc.DialOptions(ctx, rpcURL, rpc.WithHTTPClient(&http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}))
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", rpcURL, err)
	}
	return New(ethclient.NewClient(rc), contract, key, opts...), nil
}

// Account returns the address mints are signed by and made for.
func (l *Ledger) Account(ctx context.Context) (common.Address, error) {
	if l.key == nil {
		return common.Address{}, ledger.ErrNoAccount
	}
	return l.from, nil
}

// Submit sends one mint transaction and waits for it to be mined.
func (l *Ledger) Submit(ctx context.Context, req ledger.MintRequest) (_ ledger.Receipt, retErr error) {
	ctx, span := tracer.Start(ctx, "submit", trace.WithAttributes(
		attribute.String("owner", req.Owner.Hex()),
		attribute.String("metadata", req.MetadataLocator.String()),
	))
	defer func() {
		if retErr != nil {
			span.SetStatus(codes.Error, retErr.Error())
			span.RecordError(retErr)
		}
		span.End()
	}()

	if l.key == nil {
		return ledger.Receipt{}, ledger.ErrNoAccount
	}

	tx, err := l.buildMint(ctx, req)
	if err != nil {
		return ledger.Receipt{}, err
	}
	if err := l.backend.SendTransaction(ctx, tx); err != nil {
		return ledger.Receipt{}, fmt.Errorf("%w: sending transaction: %w", ledger.ErrRejected, err)
	}
	span.SetAttributes(attribute.String("tx", tx.Hash().Hex()))
	log.Infow("mint transaction sent", "tx", tx.Hash().Hex(), "owner", req.Owner.Hex())

	latch := ledger.NewLatch[ledger.Receipt]()
	go l.watch(ctx, tx.Hash(), latch)
	return latch.Wait(ctx)
}

func (l *Ledger) buildMint(ctx context.Context, req ledger.MintRequest) (*types.Transaction, error) {
	data, err := parsedABI.Pack("mint", req.Owner, req.MetadataLocator.String())
	if err != nil {
		return nil, fmt.Errorf("packing mint call: %w", err)
	}
	chainID, err := l.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting chain id: %w", err)
	}
	nonce, err := l.backend.PendingNonceAt(ctx, l.from)
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}
	gasPrice, err := l.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggesting gas price: %w", err)
	}
	gas, err := l.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: l.from,
		To:   &l.contract,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: estimating gas: %w", ledger.ErrRejected, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &l.contract,
		Value:    big.NewInt(0),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), l.key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	return signed, nil
}

// watch polls for the receipt of hash and settles latch with the outcome.
func (l *Ledger) watch(ctx context.Context, hash common.Hash, latch *ledger.Latch[ledger.Receipt]) {
	receipt, err := backoff.Retry(ctx, func() (*types.Receipt, error) {
		r, err := l.backend.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return r, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(l.pollInterval)),
		backoff.WithMaxElapsedTime(l.confirmTimeout),
	)
	if err != nil {
		latch.Reject(fmt.Errorf("waiting for receipt of %s: %w", hash.Hex(), ctxutil.ErrorWithCause(err, ctx)))
		return
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		latch.Reject(fmt.Errorf("%w: transaction %s reverted", ledger.ErrRejected, hash.Hex()))
		return
	}

	out := ledger.Receipt{
		TxHash:  hash,
		TokenID: l.mintedToken(receipt),
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	log.Infow("mint confirmed", "tx", hash.Hex(), "block", out.BlockNumber, "token", out.TokenID)
	latch.Resolve(out)
}

// mintedToken finds the token id in the contract's Transfer log.
func (l *Ledger) mintedToken(receipt *types.Receipt) ledger.TokenID {
	transfer := parsedABI.Events["Transfer"].ID
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != l.contract || len(lg.Topics) != 4 || lg.Topics[0] != transfer {
			continue
		}
		return ledger.TokenIDFromBig(lg.Topics[3].Big())
	}
	return ""
}

// TokensOf enumerates owner's tokens with balanceOf, tokenOfOwnerByIndex and
// tokenURI.
func (l *Ledger) TokensOf(ctx context.Context, owner common.Address) (_ []ledger.OwnedToken, retErr error) {
	ctx, span := tracer.Start(ctx, "tokens-of", trace.WithAttributes(
		attribute.String("owner", owner.Hex()),
	))
	defer func() {
		if retErr != nil {
			span.SetStatus(codes.Error, retErr.Error())
			span.RecordError(retErr)
		}
		span.End()
	}()

	balance, err := l.callBig(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	if !balance.IsInt64() || balance.Int64() > l.maxTokens {
		return nil, fmt.Errorf("%w: balance %s exceeds limit of %d", ErrTooManyTokens, balance, l.maxTokens)
	}
	n := balance.Int64()
	span.SetAttributes(attribute.Int64("balance", n))

	var tokens []ledger.OwnedToken
	for i := range n {
		id, err := l.callBig(ctx, "tokenOfOwnerByIndex", owner, big.NewInt(i))
		if err != nil {
			return nil, err
		}
		uri, err := l.callString(ctx, "tokenURI", id)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, ledger.OwnedToken{
			ID:  ledger.TokenIDFromBig(id),
			URI: content.Locator(uri),
		})
	}
	return tokens, nil
}

func (l *Ledger) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := parsedABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}
	out, err := l.backend.CallContract(ctx, ethereum.CallMsg{To: &l.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	vals, err := parsedABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s: %w", method, err)
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("%s returned %d values", method, len(vals))
	}
	return vals, nil
}

func (l *Ledger) callBig(ctx context.Context, method string, args ...any) (*big.Int, error) {
	vals, err := l.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s returned %T", method, vals[0])
	}
	return v, nil
}

func (l *Ledger) callString(ctx context.Context, method string, args ...any) (string, error) {
	vals, err := l.call(ctx, method, args...)
	if err != nil {
		return "", err
	}
	s, ok := vals[0].(string)
	if !ok {
		return "", fmt.Errorf("%s returned %T", method, vals[0])
	}
	return s, nil
}
