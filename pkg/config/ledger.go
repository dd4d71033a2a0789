package config

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	DefaultPollInterval   = 2 * time.Second
	DefaultConfirmTimeout = 5 * time.Minute
)

var ErrLedgerNotConfigured = errors.New("ledger.rpc_url and ledger.contract must be set")

// LedgerConfig points at the chain and the token contract. All fields are
// optional until a command needs the ledger.
type LedgerConfig struct {
	RPCURL         string        `mapstructure:"rpc_url" validate:"omitempty,url"`
	Contract       string        `mapstructure:"contract" validate:"omitempty,eth_addr"`
	// PrivateKey is the hex encoded key mints are signed with.
	PrivateKey     string        `mapstructure:"private_key" validate:"omitempty,hexadecimal"`
	PollInterval   time.Duration `mapstructure:"poll_interval" validate:"gte=0"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout" validate:"gte=0"`
	// MaxTokens caps how many tokens are listed for one owner.
	MaxTokens      int64         `mapstructure:"max_tokens" validate:"gte=0"`
}

func (c LedgerConfig) Validate() error {
	return validateConfig(c)
}

// Require checks that enough is configured to talk to the contract.
func (c LedgerConfig) Require() error {
	if c.RPCURL == "" || c.Contract == "" {
		return ErrLedgerNotConfigured
	}
	return nil
}

func (c LedgerConfig) ContractAddress() common.Address {
	return common.HexToAddress(c.Contract)
}
