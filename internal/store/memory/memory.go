// Package memory implements a deterministic, dependency-free AccountStore
// and BlockStore backed by plain Go maps. It exists for unit tests and the
// roundcheck replay tool, where spinning up Postgres would only slow down
// verification of the engine's pure logic — the same reasoning behind the
// teacher's in-memory union-find maps in ClusterEngine.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rawblock/round-engine/internal/store"
	"github.com/rawblock/round-engine/pkg/models"
)

// Store is a combined AccountStore + BlockStore over in-process maps. The
// zero value is not ready to use; call New.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*models.Account // keyed by address
	blocks   map[uint64]*models.Block   // keyed by height
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		accounts: make(map[string]*models.Account),
		blocks:   make(map[uint64]*models.Block),
	}
}

// Seed installs an account directly, bypassing Merge. Used by tests to set
// up initial delegate state.
func (s *Store) Seed(a *models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.accounts[a.Address] = &cp
}

// SeedBlock installs a block directly. Used by tests to populate the
// blocks a round will sum.
func (s *Store) SeedBlock(b *models.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.blocks[b.Height] = &cp
}

// Clone returns a deep copy of the store, independent of the original for
// every subsequent write. Used by concurrent verification tools (e.g.
// roundcheck) that need several goroutines mutating their own copy of the
// same seeded chain without sharing state.
func (s *Store) Clone() *Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := New()
	for addr, acc := range s.accounts {
		a := *acc
		cp.accounts[addr] = &a
	}
	for h, b := range s.blocks {
		blk := *b
		cp.blocks[h] = &blk
	}
	return cp
}

// GenerateAddress derives a short deterministic address from a public key.
// Real node lineages hash the key through a chain-specific scheme; for the
// in-memory reference store a hex encoding is sufficient since it only
// needs to be stable and collision-free within a test run.
func (s *Store) GenerateAddress(publicKey []byte) string {
	return fmt.Sprintf("%x", publicKey)
}

func (s *Store) Merge(ctx context.Context, tx store.Txn, address string, diff models.AccountDiff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[address]
	if !ok {
		return fmt.Errorf("memory store: merge on unknown address %q", address)
	}

	acc.Balance += diff.Balance
	acc.UBalance += diff.UBalance
	acc.Vote += diff.Vote
	acc.VotesWeight += diff.VotesWeight
	acc.ProducedBlocks = addUint64(acc.ProducedBlocks, diff.ProducedBlocks)
	acc.MissedBlocks = addUint64(acc.MissedBlocks, diff.MissedBlocks)
	acc.Fees += diff.Fees
	acc.Rewards += diff.Rewards
	if diff.Round != 0 {
		acc.Rounds = append(acc.Rounds, diff.Round)
	}
	return nil
}

// addUint64 applies a signed delta to an unsigned counter, clamping at
// zero. Counters never go negative under correct apply/undo pairing, but
// clamping avoids wraparound if a caller ever does.
func addUint64(base uint64, delta int64) uint64 {
	if delta >= 0 {
		return base + uint64(delta)
	}
	d := uint64(-delta)
	if d > base {
		return 0
	}
	return base - d
}

func (s *Store) Get(ctx context.Context, tx store.Txn, filter models.AccountFilter) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if filter.Address != "" {
		acc, ok := s.accounts[filter.Address]
		if !ok {
			return nil, nil
		}
		cp := *acc
		return &cp, nil
	}
	if filter.PublicKey != nil {
		for _, acc := range s.accounts {
			if bytes.Equal(acc.PublicKey, filter.PublicKey) {
				cp := *acc
				return &cp, nil
			}
		}
		return nil, nil
	}
	return nil, fmt.Errorf("memory store: Get requires an Address or PublicKey filter")
}

func (s *Store) GetAll(ctx context.Context, tx store.Txn, filter models.AccountFilter) ([]*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		if filter.VoteGTZero && acc.Vote <= 0 {
			continue
		}
		if filter.WeightGTZero && (acc.VotesWeight <= 0 || acc.IsBanned) {
			continue
		}
		cp := *acc
		out = append(out, &cp)
	}
	// Stable order (by address) so callers relying on determinism before
	// their own sort don't get map-iteration flakiness in tests.
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (s *Store) SumRound(ctx context.Context, tx store.Txn, n int, round uint64) (models.RoundSum, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	first := (round-1)*uint64(n) + 1
	last := round * uint64(n)
	if round == 1 {
		first = 1
	}

	var sum models.RoundSum
	for h := first; h <= last; h++ {
		b, ok := s.blocks[h]
		if !ok {
			continue
		}
		sum.Fees += b.TotalFee
		sum.Rewards = append(sum.Rewards, b.Reward)
		sum.Delegates = append(sum.Delegates, b.GeneratorPublicKey)
		if round == 1 && h == 1 {
			break // genesis is its own one-block round
		}
	}
	return sum, nil
}

func (s *Store) Find(ctx context.Context, tx store.Txn, height uint64) (*models.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[height]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (s *Store) TruncateBlocks(ctx context.Context, tx store.Txn, fromHeight uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h := range s.blocks {
		if h > fromHeight {
			delete(s.blocks, h)
		}
	}
	return nil
}

func (s *Store) MarkBlockID(ctx context.Context, tx store.Txn, height uint64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[height]
	if !ok {
		return fmt.Errorf("memory store: mark_block_id on unknown height %d", height)
	}
	b.ID = id
	return nil
}
