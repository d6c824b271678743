// Package engine implements the round lifecycle engine: it watches each
// block go by, detects round boundaries, sums the round's fees and
// rewards, computes outsiders, and issues the resulting ops atomically
// inside the caller's transaction. It is the orchestration layer sitting
// on top of roundmath (pure arithmetic), delegates (slate selection), and
// roundops (the typed op sequence).
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rawblock/round-engine/internal/delegates"
	"github.com/rawblock/round-engine/internal/eventbus"
	"github.com/rawblock/round-engine/internal/roundmath"
	"github.com/rawblock/round-engine/internal/roundops"
	"github.com/rawblock/round-engine/internal/store"
	"github.com/rawblock/round-engine/pkg/models"
)

// ErrInvariantViolation marks a fatal, corrupt-state condition. Tick and
// BackwardTick return it when the round's op batch cannot be built: a
// finishing round with no delegates, a reward list whose length differs
// from the delegate list, or an invalid fee split. The engine does not
// check the slate size or resulting balances, and a genesis round sum
// with other than one delegate is replaced (see fillRoundSum) rather than
// reported. These errors are never retried; they propagate to the caller,
// which is expected to halt the node rather than quarantine the block.
var ErrInvariantViolation = errors.New("engine: invariant violation")

// ErrOverlappingTick is returned if Tick or BackwardTick is called while
// another tick is already in flight on the same engine instance. Spec.md
// §4.6 forbids this; it indicates a bug in the caller's serialization, not
// a condition the engine can recover from.
var ErrOverlappingTick = errors.New("engine: tick already in progress")

// Engine orchestrates tick/backward_tick for one chain of blocks.
type Engine struct {
	Accounts store.AccountStore
	Blocks   store.BlockStore
	Slate    delegates.Slate

	ActiveDelegates int
	DposV2First     uint64

	State *AppState
	Bus   *eventbus.Bus
}

// New builds an Engine. state and bus must not be nil; callers that don't
// need event delivery can pass eventbus.New() and never call Run on its
// Hub.
func New(accounts store.AccountStore, blocks store.BlockStore, slate delegates.Slate, activeDelegates int, dposV2First uint64, state *AppState, bus *eventbus.Bus) *Engine {
	return &Engine{
		Accounts:        accounts,
		Blocks:          blocks,
		Slate:           slate,
		ActiveDelegates: activeDelegates,
		DposV2First:     dposV2First,
		State:           state,
		Bus:             bus,
	}
}

// Executor applies a roundops.Batch inside the caller's transaction. The
// production wiring is roundops.StoreExecutor over the postgres store;
// tests use the same executor over the in-memory store or mocks.
type Executor interface {
	Execute(ctx context.Context, tx store.Txn, batch roundops.Batch) error
}

// Tick processes one committed block: detects whether it finishes its
// round, and if so sums the round, computes outsiders, and issues the
// forward op batch through exec inside tx. See spec.md §4.6.
func (e *Engine) Tick(ctx context.Context, block models.Block, tx store.Txn, exec Executor) error {
	if !e.State.beginTick() {
		return ErrOverlappingTick
	}
	defer e.State.endTick()

	round := roundmath.RoundOf(block.Height, e.ActiveDelegates)
	finishRound := roundmath.IsRoundEnd(block.Height, e.ActiveDelegates)

	rctx := models.RoundContext{
		Round:           round,
		Backwards:       false,
		Block:           block,
		FinishRound:     finishRound,
		DposV2:          block.Height >= e.DposV2First && e.DposV2First != 0,
		ActiveDelegates: e.ActiveDelegates,
		SnapshotRound:   e.State.Snapshot(),
	}

	if finishRound {
		if err := e.fillRoundSum(ctx, tx, &rctx, block); err != nil {
			return err
		}
		if err := e.fillOutsiders(ctx, tx, &rctx); err != nil {
			return err
		}
	}

	batch, err := roundops.Build(rctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}

	if err := exec.Execute(ctx, tx, batch); err != nil {
		return fmt.Errorf("engine: execute tick ops: %w", err)
	}

	if finishRound {
		e.Bus.PublishFinishRound(round)
	}
	return nil
}

// BackwardTick reverses the round-level effects of block, which must be
// the block most recently ticked. previous is the block immediately
// before it in height order; after BackwardTick returns, persisted state
// must equal the state at previous.Height. See spec.md §4.6.
func (e *Engine) BackwardTick(ctx context.Context, block models.Block, previous models.Block, tx store.Txn, exec Executor) error {
	if !e.State.beginTick() {
		return ErrOverlappingTick
	}
	defer e.State.endTick()

	e.Bus.PublishBackwardTick(block.Height, block.ID)

	round := roundmath.RoundOf(block.Height, e.ActiveDelegates)
	finishRound := roundmath.IsRoundEnd(block.Height, e.ActiveDelegates)

	rctx := models.RoundContext{
		Round:           round,
		Backwards:       true,
		Block:           block,
		FinishRound:     finishRound,
		DposV2:          block.Height >= e.DposV2First && e.DposV2First != 0,
		ActiveDelegates: e.ActiveDelegates,
		SnapshotRound:   e.State.Snapshot(),
	}

	if finishRound {
		if err := e.fillRoundSum(ctx, tx, &rctx, block); err != nil {
			return err
		}
		if err := e.fillOutsiders(ctx, tx, &rctx); err != nil {
			return err
		}
	}

	batch, err := roundops.Build(rctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}

	if err := exec.Execute(ctx, tx, batch); err != nil {
		return fmt.Errorf("engine: execute backward_tick ops: %w", err)
	}

	return nil
}

// fillRoundSum populates rctx.RoundFees/RoundRewards/RoundDelegates from
// BlockStore.SumRound, applying the genesis-specific correction spec.md
// §4.6 step 3 requires: a height-1 block whose summed round doesn't come
// back as exactly one delegate is treated as its own one-block round
// regardless of what the store returned.
func (e *Engine) fillRoundSum(ctx context.Context, tx store.Txn, rctx *models.RoundContext, block models.Block) error {
	sum, err := e.Blocks.SumRound(ctx, tx, e.ActiveDelegates, rctx.Round)
	if err != nil {
		return fmt.Errorf("engine: sum_round: %w", err)
	}

	if block.Height == 1 && len(sum.Delegates) != 1 {
		sum = models.RoundSum{
			Fees:      0,
			Rewards:   []int64{0},
			Delegates: [][]byte{block.GeneratorPublicKey},
		}
	}

	rctx.RoundFees = sum.Fees
	rctx.RoundRewards = sum.Rewards
	rctx.RoundDelegates = sum.Delegates
	return nil
}

// fillOutsiders computes expected_slate(round) \ actual_generators(round)
// and maps each outsider's public key to its address.
func (e *Engine) fillOutsiders(ctx context.Context, tx store.Txn, rctx *models.RoundContext) error {
	first := roundmath.FirstInRound(rctx.Round, e.ActiveDelegates)
	expected, err := e.Slate.GenerateList(ctx, tx, first)
	if err != nil {
		return fmt.Errorf("engine: generate_delegate_list: %w", err)
	}

	actual := make(map[string]bool, len(rctx.RoundDelegates))
	for _, pk := range rctx.RoundDelegates {
		actual[fmt.Sprintf("%x", pk)] = true
	}

	var outsiders []string
	for _, pk := range expected {
		hexKey := fmt.Sprintf("%x", pk)
		if !actual[hexKey] {
			outsiders = append(outsiders, e.Accounts.GenerateAddress(pk))
		}
	}
	rctx.RoundOutsiders = outsiders
	return nil
}

// Cleanup releases any engine-owned resources. The round engine holds
// none of its own (the store and bus own theirs); it exists to satisfy
// the lifecycle contract external callers expect (spec.md §6).
func (e *Engine) Cleanup(ctx context.Context) error {
	return nil
}

// OnBlockchainReady marks round state as loaded, for subsystems that gate
// on rounds.isLoaded before accepting work.
func (e *Engine) OnBlockchainReady() {
	e.State.SetLoaded(true)
}

// OnFinishRound is a lifecycle hook callers may invoke in addition to
// subscribing to the event bus, matching the external interface spec.md
// §6 enumerates.
func (e *Engine) OnFinishRound(round uint64) {
	// Intentionally empty: all finishRound side effects are driven through
	// Bus.PublishFinishRound during Tick. This hook exists so external
	// wiring code has a named entry point to attach to, per the exposed
	// interface in spec.md §6.
}
