// Command roundcheck replays a height range against an in-memory store and
// verifies the testable properties spec.md §8 enumerates: conservation of
// value at round end and exact tick/backward_tick symmetry. It exists
// because the engine itself defines no harness for these properties — only
// the invariants themselves.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/rawblock/round-engine/internal/engine"
	"github.com/rawblock/round-engine/internal/eventbus"
	"github.com/rawblock/round-engine/internal/roundops"
	"github.com/rawblock/round-engine/internal/store"
	"github.com/rawblock/round-engine/internal/store/memory"
	"github.com/rawblock/round-engine/pkg/models"
)

func main() {
	activeDelegates := flag.Int("n", 101, "active delegate count")
	rounds := flag.Int("rounds", 4, "number of regular rounds (round 2 onward) to generate and verify")
	seed := flag.Int64("seed", 1, "seed for the synthetic delegate public keys")
	flag.Parse()

	if err := run(*activeDelegates, *rounds, *seed); err != nil {
		log.Fatalf("roundcheck: %v", err)
	}
	fmt.Println("roundcheck: all invariants held")
}

// windowResult is one round window's verification outcome.
type windowResult struct {
	round           uint64
	conservationOK  bool
	rollbackOK      bool
	deltaBalanceSum int64
	expectedSum     int64
}

// run seeds one synthetic chain, then verifies rounds 2..1+numRounds
// concurrently, each against its own cloned copy of that chain. Round 1
// (the genesis round) is exercised by internal/engine's own tests; it is
// skipped here since it is a one-block round by construction, not a window
// this tool's N-delegate verification loop is shaped for.
func run(activeDelegates, numRounds int, seed int64) error {
	base := seedChain(activeDelegates, numRounds, seed)

	g, ctx := errgroup.WithContext(context.Background())
	results := make([]windowResult, numRounds)

	// Each round window gets its own independent in-memory store cloned
	// from the seeded chain, so concurrent goroutines never share engine
	// state — the engine's single-ticking-at-a-time rule only binds one
	// Engine instance, not the whole process.
	for i := 0; i < numRounds; i++ {
		round := uint64(i + 2)
		idx := i
		g.Go(func() error {
			storeCopy := base.Clone()
			res, err := verifyRound(ctx, storeCopy, activeDelegates, round)
			if err != nil {
				return fmt.Errorf("round %d: %w", round, err)
			}
			results[idx] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range results {
		if !r.conservationOK {
			return fmt.Errorf("round %d: conservation violated: delta_sum=%d want=%d", r.round, r.deltaBalanceSum, r.expectedSum)
		}
		if !r.rollbackOK {
			return fmt.Errorf("round %d: backward_tick did not restore pre-tick state", r.round)
		}
		fmt.Printf("round %d: conservation OK (Δ=%d), rollback OK\n", r.round, r.deltaBalanceSum)
	}
	return nil
}

// verifyRound ticks the round's last block, checks §8's conservation
// property, then backward_ticks it and checks every account's balance is
// restored (other account fields are not compared).
func verifyRound(ctx context.Context, mem *memory.Store, activeDelegates int, round uint64) (windowResult, error) {
	lastHeight := round * uint64(activeDelegates)
	block, err := mem.Find(ctx, nil, lastHeight)
	if err != nil || block == nil {
		return windowResult{}, fmt.Errorf("missing seeded block at height %d", lastHeight)
	}

	bus := eventbus.New()
	slate := fixedListSlate{mem: mem, activeDelegates: activeDelegates}
	eng := engine.New(mem, mem, slate, activeDelegates, 0, engine.NewAppState(), bus)
	exec := roundops.NewStoreExecutor(mem, mem)

	before, err := mem.GetAll(ctx, nil, models.AccountFilter{})
	if err != nil {
		return windowResult{}, err
	}
	beforeBalances := balanceMap(before)

	sum, err := mem.SumRound(ctx, nil, activeDelegates, round)
	if err != nil {
		return windowResult{}, err
	}

	if err := eng.Tick(ctx, *block, nil, exec); err != nil {
		return windowResult{}, fmt.Errorf("tick: %w", err)
	}

	after, err := mem.GetAll(ctx, nil, models.AccountFilter{})
	if err != nil {
		return windowResult{}, err
	}
	afterBalances := balanceMap(after)

	var deltaSum int64
	for addr, bal := range afterBalances {
		deltaSum += bal - beforeBalances[addr]
	}

	var rewardSum int64
	for _, r := range sum.Rewards {
		rewardSum += r
	}
	// The round-end settlement alone conserves roundFees + Σ roundRewards;
	// the tip block's own merge_block_generator credit (reward + its own
	// fee) rides on top of that and is added here rather than treated as
	// a violation.
	expected := sum.Fees + rewardSum + block.Reward + block.TotalFee

	previous := models.Block{Height: lastHeight - 1}
	if err := eng.BackwardTick(ctx, *block, previous, nil, exec); err != nil {
		return windowResult{}, fmt.Errorf("backward_tick: %w", err)
	}
	restored, err := mem.GetAll(ctx, nil, models.AccountFilter{})
	if err != nil {
		return windowResult{}, err
	}
	restoredBalances := balanceMap(restored)

	rollbackOK := len(restoredBalances) == len(beforeBalances)
	if rollbackOK {
		for addr, bal := range beforeBalances {
			if restoredBalances[addr] != bal {
				rollbackOK = false
				break
			}
		}
	}

	return windowResult{
		round:           round,
		conservationOK:  deltaSum == expected,
		rollbackOK:      rollbackOK,
		deltaBalanceSum: deltaSum,
		expectedSum:     expected,
	}, nil
}

func balanceMap(accounts []*models.Account) map[string]int64 {
	out := make(map[string]int64, len(accounts))
	for _, a := range accounts {
		out[a.Address] = a.Balance
	}
	return out
}

// fixedListSlate returns the synthetic chain's N regular delegates (never
// the genesis account) in address order — a stand-in for real
// vote-weighted selection, sufficient for exercising the engine's
// round-settlement and rollback logic without requiring live vote state.
type fixedListSlate struct {
	mem             *memory.Store
	activeDelegates int
}

func (s fixedListSlate) GenerateList(ctx context.Context, tx store.Txn, height uint64) ([][]byte, error) {
	accounts, err := s.mem.GetAll(ctx, nil, models.AccountFilter{VoteGTZero: true})
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, s.activeDelegates)
	for _, a := range accounts {
		out = append(out, a.PublicKey)
		if len(out) == s.activeDelegates {
			break
		}
	}
	return out, nil
}

// seedChain builds a one-block genesis round plus numRounds regular
// N-delegate rounds (heights activeDelegates+1 .. activeDelegates*(1+numRounds)),
// each of the N delegates forging exactly one slot per round in a fixed
// address order, with deterministic per-slot fees.
func seedChain(activeDelegates, numRounds int, seed int64) *memory.Store {
	mem := memory.New()

	genesisPK := []byte(fmt.Sprintf("seed-%d-genesis", seed))
	mem.Seed(&models.Account{PublicKey: genesisPK, Address: mem.GenerateAddress(genesisPK)})
	mem.SeedBlock(&models.Block{Height: 1, ID: "genesis", GeneratorPublicKey: genesisPK})

	delegatePKs := make([][]byte, activeDelegates)
	for i := 0; i < activeDelegates; i++ {
		pk := []byte(fmt.Sprintf("seed-%d-delegate-%04d", seed, i))
		delegatePKs[i] = pk
		mem.Seed(&models.Account{PublicKey: pk, Address: mem.GenerateAddress(pk), Vote: int64(1_000_000 - i)})
	}

	for r := 2; r <= 1+numRounds; r++ {
		firstHeight := uint64(r-1) * uint64(activeDelegates)
		for slot, pk := range delegatePKs {
			height := firstHeight + uint64(slot) + 1
			fee := int64(1000 + slot)
			mem.SeedBlock(&models.Block{
				Height:             height,
				ID:                 fmt.Sprintf("blk-%d", height),
				GeneratorPublicKey: pk,
				TotalFee:           fee,
				Reward:             1000,
			})
		}
	}
	return mem
}
