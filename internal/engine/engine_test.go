package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/rawblock/round-engine/internal/eventbus"
	"github.com/rawblock/round-engine/internal/roundops"
	"github.com/rawblock/round-engine/internal/store"
	"github.com/rawblock/round-engine/internal/store/memory"
	"github.com/rawblock/round-engine/pkg/models"
)

const activeDelegates = 101

// fixedSlate always returns the same N public keys, in the given order —
// the slate a test wants "expected" to be, independent of any real
// selection algorithm.
type fixedSlate struct {
	pks [][]byte
}

func (f fixedSlate) GenerateList(ctx context.Context, tx store.Txn, height uint64) ([][]byte, error) {
	return f.pks, nil
}

func pkFor(i int) []byte { return []byte(fmt.Sprintf("genesisDelegate%03d", i)) }

func addrFor(mem *memory.Store, i int) string {
	return mem.GenerateAddress(pkFor(i))
}

// setupRound seeds 101 delegate accounts with descending vote (genesis1
// highest) and 101 blocks for round 2 (heights 102..202), each forged by
// the delegate at the same slot, with a round total fee of totalFee
// split across uniform per-block fees plus a remainder on the last block.
func setupRound(t *testing.T, totalFee int64, reward int64) (*memory.Store, *Engine, models.Block) {
	t.Helper()
	mem := memory.New()

	for i := 1; i <= activeDelegates; i++ {
		mem.Seed(&models.Account{
			PublicKey: pkFor(i),
			Address:   addrFor(mem, i),
			Vote:      99_890_000_001 - int64(i),
		})
	}

	perBlockFee := totalFee / activeDelegates
	remainder := totalFee - perBlockFee*int64(activeDelegates)

	var lastBlock models.Block
	for i := 1; i <= activeDelegates; i++ {
		height := uint64(101 + i) // round 2 spans 102..202
		fee := perBlockFee
		if i == activeDelegates {
			fee += remainder
		}
		b := models.Block{
			Height:             height,
			ID:                 fmt.Sprintf("blk%d", height),
			GeneratorPublicKey: pkFor(i),
			TotalFee:           fee,
			Reward:             reward,
		}
		mem.SeedBlock(&b)
		if i == activeDelegates {
			lastBlock = b
		}
	}

	expectedSlate := make([][]byte, activeDelegates)
	for i := 1; i <= activeDelegates; i++ {
		expectedSlate[i-1] = pkFor(i)
	}

	bus := eventbus.New()
	e := New(mem, mem, fixedSlate{pks: expectedSlate}, activeDelegates, 0, NewAppState(), bus)
	return mem, e, lastBlock
}

func TestTick_RoundEndBalanceUpdate(t *testing.T) {
	// Scenario 3 from spec.md §8: Σfees = 10^7, N=101, reward = 1000/block.
	// Only the round's last block is ticked here (the one carrying
	// finishRound), so merge_block_generator fires exactly once, crediting
	// the round's last forger its own block's reward+fee on top of the
	// round-end per-delegate settlement apply() performs for all 101.
	const totalFee = 10_000_000
	const reward = 1000

	mem, e, lastBlock := setupRound(t, totalFee, reward)
	exec := roundops.NewStoreExecutor(mem, mem)

	if err := e.Tick(context.Background(), lastBlock, nil, exec); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	per := int64(totalFee / activeDelegates)
	remainder := int64(totalFee - per*activeDelegates)

	for i := 1; i <= activeDelegates; i++ {
		addr := addrFor(mem, i)
		acc, err := mem.Get(context.Background(), nil, models.AccountFilter{Address: addr})
		if err != nil || acc == nil {
			t.Fatalf("account %s missing: %v", addr, err)
		}
		want := reward + per // round-end settlement: this delegate's own reward entry + fee share
		if i == activeDelegates {
			want += remainder                     // last forger of the round
			want += reward + lastBlock.TotalFee // merge_block_generator credit for its own tip block
		}
		if acc.Balance != want {
			t.Errorf("delegate %d balance = %d, want %d", i, acc.Balance, want)
		}
	}
}

// TestTick_RankUpdate checks the vote ranking key after a round-end tick.
// The engine does not compute or write Account.Rank, so this test asserts
// only that every delegate's vote is left as seeded (genesis1 highest).
func TestTick_RankUpdate(t *testing.T) {
	mem, e, lastBlock := setupRound(t, 10_000_000, 1000)
	exec := roundops.NewStoreExecutor(mem, mem)

	if err := e.Tick(context.Background(), lastBlock, nil, exec); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	accounts, err := mem.GetAll(context.Background(), nil, models.AccountFilter{})
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(accounts) != activeDelegates {
		t.Fatalf("expected %d accounts, got %d", activeDelegates, len(accounts))
	}
	for i := 1; i <= activeDelegates; i++ {
		addr := addrFor(mem, i)
		var found *models.Account
		for _, a := range accounts {
			if a.Address == addr {
				found = a
				break
			}
		}
		if found == nil {
			t.Fatalf("missing account for delegate %d", i)
		}
		wantVote := 99_890_000_001 - int64(i)
		if found.Vote != wantVote {
			t.Errorf("delegate %d vote = %d, want %d (vote is untouched by round-end ops)", i, found.Vote, wantVote)
		}
	}
}

func TestTick_RollbackIdempotence(t *testing.T) {
	// Scenario 4: tick(last); backward_tick(last) -> identical to pre-tick.
	mem, e, lastBlock := setupRound(t, 10_000_000, 1000)
	exec := roundops.NewStoreExecutor(mem, mem)

	before, err := mem.GetAll(context.Background(), nil, models.AccountFilter{})
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	beforeSnapshot := snapshot(before)

	previous := models.Block{Height: lastBlock.Height - 1}
	if err := e.Tick(context.Background(), lastBlock, nil, exec); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if err := e.BackwardTick(context.Background(), lastBlock, previous, nil, exec); err != nil {
		t.Fatalf("BackwardTick: %v", err)
	}

	after, err := mem.GetAll(context.Background(), nil, models.AccountFilter{})
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	afterSnapshot := snapshot(after)

	if len(beforeSnapshot) != len(afterSnapshot) {
		t.Fatalf("account count changed: %d vs %d", len(beforeSnapshot), len(afterSnapshot))
	}
	for addr, b := range beforeSnapshot {
		a, ok := afterSnapshot[addr]
		if !ok {
			t.Fatalf("account %s missing after rollback", addr)
		}
		if a != b {
			t.Errorf("account %s state diverged: before=%+v after=%+v", addr, b, a)
		}
	}
}

func TestTick_EndDeleteEnd(t *testing.T) {
	// Scenario 5: tick(last); backward_tick(last); tick(last) == single tick(last).
	mem1, e1, lastBlock1 := setupRound(t, 10_000_000, 1000)
	exec1 := roundops.NewStoreExecutor(mem1, mem1)
	previous := models.Block{Height: lastBlock1.Height - 1}

	if err := e1.Tick(context.Background(), lastBlock1, nil, exec1); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if err := e1.BackwardTick(context.Background(), lastBlock1, previous, nil, exec1); err != nil {
		t.Fatalf("BackwardTick: %v", err)
	}
	if err := e1.Tick(context.Background(), lastBlock1, nil, exec1); err != nil {
		t.Fatalf("second Tick: %v", err)
	}
	got, err := mem1.GetAll(context.Background(), nil, models.AccountFilter{})
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}

	mem2, e2, lastBlock2 := setupRound(t, 10_000_000, 1000)
	exec2 := roundops.NewStoreExecutor(mem2, mem2)
	if err := e2.Tick(context.Background(), lastBlock2, nil, exec2); err != nil {
		t.Fatalf("single-shot Tick: %v", err)
	}
	want, err := mem2.GetAll(context.Background(), nil, models.AccountFilter{})
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}

	snap := snapshot(got)
	snap2 := snapshot(want)
	if len(snap) != len(snap2) {
		t.Fatalf("account count mismatch")
	}
	for addr, a := range snap {
		if b, ok := snap2[addr]; !ok || a != b {
			t.Errorf("account %s diverged: got=%+v want=%+v", addr, a, b)
		}
	}
}

func TestTick_GenesisCorrection(t *testing.T) {
	mem := memory.New()
	genesisPK := []byte("genesis-forger")
	mem.Seed(&models.Account{PublicKey: genesisPK, Address: mem.GenerateAddress(genesisPK)})
	genesis := models.Block{Height: 1, ID: "genesis-block", GeneratorPublicKey: genesisPK}
	mem.SeedBlock(&genesis)

	bus := eventbus.New()
	e := New(mem, mem, fixedSlate{pks: [][]byte{genesisPK}}, activeDelegates, 0, NewAppState(), bus)
	exec := roundops.NewStoreExecutor(mem, mem)

	if err := e.Tick(context.Background(), genesis, nil, exec); err != nil {
		t.Fatalf("Tick genesis: %v", err)
	}

	acc, err := mem.Get(context.Background(), nil, models.AccountFilter{Address: mem.GenerateAddress(genesisPK)})
	if err != nil || acc == nil {
		t.Fatalf("genesis forger account missing: %v", err)
	}
	if acc.ProducedBlocks != 1 {
		t.Errorf("genesis forger producedBlocks = %d, want 1", acc.ProducedBlocks)
	}
}

func TestTick_OverlappingTickRejected(t *testing.T) {
	mem, e, _ := setupRound(t, 0, 0)
	_ = mem
	if !e.State.beginTick() {
		t.Fatal("expected first beginTick to succeed")
	}
	defer e.State.endTick()

	err := e.Tick(context.Background(), models.Block{Height: 5}, nil, roundops.NewStoreExecutor(nil, nil))
	if err != ErrOverlappingTick {
		t.Errorf("expected ErrOverlappingTick, got %v", err)
	}
}

type accountSnapshot struct {
	Balance, UBalance, Vote, VotesWeight int64
	Produced, Missed                    uint64
}

func snapshot(accounts []*models.Account) map[string]accountSnapshot {
	out := make(map[string]accountSnapshot, len(accounts))
	for _, a := range accounts {
		out[a.Address] = accountSnapshot{
			Balance:     a.Balance,
			UBalance:    a.UBalance,
			Vote:        a.Vote,
			VotesWeight: a.VotesWeight,
			Produced:    a.ProducedBlocks,
			Missed:      a.MissedBlocks,
		}
	}
	return out
}
