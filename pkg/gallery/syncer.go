package gallery

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/doodlemint/doodlemint/pkg/ledger"
)

// Syncer reloads the gallery from the ledger's view of an owner's tokens.
type Syncer struct {
	lister  ledger.TokenLister
	gallery *Gallery
}

func NewSyncer(lister ledger.TokenLister, g *Gallery) *Syncer {
	return &Syncer{lister: lister, gallery: g}
}

// Sync lists owner's tokens and starts a gallery refresh for them.
func (s *Syncer) Sync(ctx context.Context, owner common.Address) (*Refresh, error) {
	tokens, err := s.lister.TokensOf(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing tokens of %s: %w", owner.Hex(), err)
	}
	return s.gallery.Refresh(ctx, tokens), nil
}

// Refresh starts a sync without waiting for the fetches to finish.
func (s *Syncer) Refresh(ctx context.Context, owner common.Address) error {
	_, err := s.Sync(ctx, owner)
	return err
}
