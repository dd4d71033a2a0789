// Package memledger is an in-memory ledger for tests and dry runs.
package memledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/doodlemint/doodlemint/pkg/ledger"
)

// Ledger mints tokens into memory. Confirmation events are delivered from a
// separate goroutine and settle a [ledger.Latch], like a chain watcher would.
type Ledger struct {
	account common.Address

	mu       sync.Mutex
	next     int64
	owned    map[common.Address][]ledger.OwnedToken
	requests []ledger.MintRequest
	fail     error
	echo     bool
}

var (
	_ ledger.Submitter     = (*Ledger)(nil)
	_ ledger.TokenLister   = (*Ledger)(nil)
	_ ledger.AccountSource = (*Ledger)(nil)
)

func New(account common.Address) *Ledger {
	return &Ledger{
		account: account,
		next:    1,
		owned:   map[common.Address][]ledger.OwnedToken{},
	}
}

// FailWith makes every later submission reject with err. nil restores
// success.
func (l *Ledger) FailWith(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail = err
}

// EmitDuplicates makes every submission deliver a second, contradicting
// terminal event after the first.
func (l *Ledger) EmitDuplicates(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.echo = on
}

func (l *Ledger) Account(context.Context) (common.Address, error) {
	if l.account == (common.Address{}) {
		return common.Address{}, ledger.ErrNoAccount
	}
	return l.account, nil
}

func (l *Ledger) Submit(ctx context.Context, req ledger.MintRequest) (ledger.Receipt, error) {
	l.mu.Lock()
	l.requests = append(l.requests, req)
	fail, echo := l.fail, l.echo
	var receipt ledger.Receipt
	if fail == nil {
		id := ledger.TokenIDFromBig(big.NewInt(l.next))
		l.next++
		l.owned[req.Owner] = append(l.owned[req.Owner], ledger.OwnedToken{ID: id, URI: req.MetadataLocator})
		receipt = ledger.Receipt{
			TxHash:      crypto.Keccak256Hash([]byte(fmt.Sprintf("%s/%s", req.Owner.Hex(), id))),
			BlockNumber: uint64(l.next),
			TokenID:     id,
		}
	}
	l.mu.Unlock()

	latch := ledger.NewLatch[ledger.Receipt]()
	go func() {
		if fail != nil {
			latch.Reject(fmt.Errorf("%w: %w", ledger.ErrRejected, fail))
			if echo {
				latch.Resolve(ledger.Receipt{TokenID: "duplicate"})
			}
			return
		}
		latch.Resolve(receipt)
		if echo {
			latch.Reject(fmt.Errorf("%w: duplicate event", ledger.ErrRejected))
		}
	}()
	return latch.Wait(ctx)
}

func (l *Ledger) TokensOf(ctx context.Context, owner common.Address) ([]ledger.OwnedToken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ledger.OwnedToken(nil), l.owned[owner]...), nil
}

// Requests returns every submitted request in order.
func (l *Ledger) Requests() []ledger.MintRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ledger.MintRequest(nil), l.requests...)
}

// Seed records a token as already owned, bypassing submission.
func (l *Ledger) Seed(owner common.Address, tokens ...ledger.OwnedToken) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.owned[owner] = append(l.owned[owner], tokens...)
}
