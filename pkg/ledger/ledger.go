// Package ledger describes the chain a token is minted on: submitting mints,
// enumerating an owner's tokens and resolving the account that signs.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/doodlemint/doodlemint/pkg/content"
)

var (
	// ErrRejected means the chain refused or reverted the transaction.
	ErrRejected = errors.New("ledger: transaction rejected")
	// ErrNoAccount means no signing account is available.
	ErrNoAccount = errors.New("ledger: no account available")
)

// TokenID is a token identifier in decimal form.
type TokenID string

func TokenIDFromBig(v *big.Int) TokenID {
	if v == nil {
		return ""
	}
	return TokenID(v.String())
}

// Big parses the identifier.
func (t TokenID) Big() (*big.Int, error) {
	v, ok := new(big.Int).SetString(string(t), 10)
	if !ok {
		return nil, fmt.Errorf("invalid token id %q", string(t))
	}
	return v, nil
}

func (t TokenID) String() string { return string(t) }

// MintRequest asks for one token owned by Owner whose metadata lives at
// MetadataLocator.
type MintRequest struct {
	Owner           common.Address
	MetadataLocator content.Locator
}

// Receipt is the confirmed outcome of a mint.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	// TokenID is empty when the chain did not report the minted token.
	TokenID TokenID
}

// OwnedToken is a token as reported by the ledger's enumeration.
type OwnedToken struct {
	ID  TokenID
	URI content.Locator
}

// Submitter submits mint transactions. Each call has exactly one terminal
// outcome: a confirmed receipt or an error.
type Submitter interface {
	Submit(ctx context.Context, req MintRequest) (Receipt, error)
}

// TokenLister enumerates the tokens an address owns.
type TokenLister interface {
	TokensOf(ctx context.Context, owner common.Address) ([]OwnedToken, error)
}

// AccountSource resolves the account mints are made for.
type AccountSource interface {
	Account(ctx context.Context) (common.Address, error)
}

// StaticAccount is an [AccountSource] that always returns the same address.
type StaticAccount common.Address

func (a StaticAccount) Account(context.Context) (common.Address, error) {
	if common.Address(a) == (common.Address{}) {
		return common.Address{}, ErrNoAccount
	}
	return common.Address(a), nil
}

// AccountFunc adapts a function to [AccountSource].
type AccountFunc func(ctx context.Context) (common.Address, error)

func (f AccountFunc) Account(ctx context.Context) (common.Address, error) { return f(ctx) }
