// Package delegates produces the ordered slate of public keys authorized
// to forge each slot of a round, under one of two selection algorithms
// chosen by height: the deterministic top-N-by-vote algorithm (v1) or the
// weighted-stochastic algorithm (v2) that activates at a configured
// height.
package delegates

import (
	"context"
	"fmt"

	"github.com/rawblock/round-engine/internal/roundmath"
	"github.com/rawblock/round-engine/internal/store"
	"github.com/rawblock/round-engine/pkg/models"
)

// Slate produces the forging order for a round.
type Slate interface {
	// GenerateList returns the N public keys authorized to forge the round
	// containing height, in slot order. It is a pure function of the
	// persisted state visible before the round's first height plus the
	// active-delegate/dposv2 constants — callers should cache the result
	// per round rather than call it once per block.
	GenerateList(ctx context.Context, tx store.Txn, height uint64) ([][]byte, error)
}

// Provider is the concrete Slate implementation dispatching to v1 or v2
// by height.
type Provider struct {
	Accounts        store.AccountStore
	ActiveDelegates int
	DposV2First     uint64

	// SeedSource supplies the v2 PRNG seed material for a round. In
	// production this is PayloadHashSeedSource, which hashes the prior
	// round's last block id (the genesis block id for round 1) read from
	// the block store; tests can substitute a fixed source.
	SeedSource SeedSource
}

// NewProvider builds a Provider wired to the given account store.
func NewProvider(accounts store.AccountStore, activeDelegates int, dposV2First uint64, seedSource SeedSource) *Provider {
	return &Provider{
		Accounts:        accounts,
		ActiveDelegates: activeDelegates,
		DposV2First:     dposV2First,
		SeedSource:      seedSource,
	}
}

// GenerateList dispatches to v1 or v2 based on height.
func (p *Provider) GenerateList(ctx context.Context, tx store.Txn, height uint64) ([][]byte, error) {
	if p.ActiveDelegates <= 0 {
		return nil, fmt.Errorf("delegates: ActiveDelegates must be positive, got %d", p.ActiveDelegates)
	}
	round := roundmath.RoundOf(height, p.ActiveDelegates)

	if height >= p.DposV2First && p.DposV2First != 0 {
		return p.generateV2(ctx, tx, round)
	}
	return p.generateV1(ctx, round)
}

func (p *Provider) generateV1(ctx context.Context, round uint64) ([][]byte, error) {
	accounts, err := p.Accounts.GetAll(ctx, nil, models.AccountFilter{VoteGTZero: true})
	if err != nil {
		return nil, fmt.Errorf("delegates: v1 candidate fetch: %w", err)
	}
	return selectV1(accounts, p.ActiveDelegates, round)
}

func (p *Provider) generateV2(ctx context.Context, tx store.Txn, round uint64) ([][]byte, error) {
	accounts, err := p.Accounts.GetAll(ctx, nil, models.AccountFilter{WeightGTZero: true})
	if err != nil {
		return nil, fmt.Errorf("delegates: v2 candidate fetch: %w", err)
	}
	if p.SeedSource == nil {
		return nil, fmt.Errorf("delegates: v2 selection requires a SeedSource")
	}
	seed, err := p.SeedSource.Seed(ctx, tx, round)
	if err != nil {
		return nil, fmt.Errorf("delegates: v2 seed: %w", err)
	}
	return selectV2(accounts, p.ActiveDelegates, seed)
}

// SeedSource supplies the deterministic seed bytes for v2 selection of a
// given round. See v2.go for the exact derivation this engine commits to.
type SeedSource interface {
	Seed(ctx context.Context, tx store.Txn, round uint64) ([]byte, error)
}
