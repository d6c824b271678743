package engine

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/rawblock/round-engine/internal/delegates"
	"github.com/rawblock/round-engine/internal/eventbus"
	"github.com/rawblock/round-engine/internal/roundops"
	"github.com/rawblock/round-engine/internal/store"
	"github.com/rawblock/round-engine/internal/store/storemocks"
	"github.com/rawblock/round-engine/pkg/models"
)

// fixedMockSlate satisfies delegates.Slate against the gomock-backed
// stores below without touching AccountStore.GetAll.
type fixedMockSlate struct{ pks [][]byte }

func (f fixedMockSlate) GenerateList(ctx context.Context, tx store.Txn, height uint64) ([][]byte, error) {
	return f.pks, nil
}

var _ delegates.Slate = fixedMockSlate{}

// TestTick_StoreReadErrorClearsTicking exercises spec.md §7's StoreRead
// error class through gomock stores: SumRound failing must still clear
// rounds.isTicking on the way out (invariant 6), not just the happy path
// the in-memory store tests cover.
func TestTick_StoreReadErrorClearsTicking(t *testing.T) {
	ctrl := gomock.NewController(t)
	accounts := storemocks.NewMockAccountStore(ctrl)
	blocks := storemocks.NewMockBlockStore(ctrl)

	wantErr := errors.New("connection reset")
	blocks.EXPECT().SumRound(gomock.Any(), gomock.Any(), activeDelegates, uint64(1)).Return(models.RoundSum{}, wantErr)

	e := New(accounts, blocks, fixedMockSlate{}, activeDelegates, 0, NewAppState(), eventbus.New())
	exec := roundops.NewStoreExecutor(accounts, blocks)

	block := models.Block{Height: 1, ID: "genesis", GeneratorPublicKey: []byte{0x01}}
	err := e.Tick(context.Background(), block, nil, exec)
	if err == nil {
		t.Fatal("expected Tick to propagate the SumRound error")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error chain does not wrap the original store error: %v", err)
	}
	if e.State.IsTicking() {
		t.Error("rounds.isTicking left true after an error unwind; spec.md invariant 6 requires it cleared on every exit path")
	}
}

// TestTick_MergeFailurePropagatesAndClearsTicking drives a finishing round
// through a mocked one-delegate sum and a fixed slate, but fails the generator's Merge via
// the mock AccountStore, and checks the batch still aborts cleanly and
// isTicking is cleared — the engine never exposes partial state per
// spec.md §7.
func TestTick_MergeFailurePropagatesAndClearsTicking(t *testing.T) {
	ctrl := gomock.NewController(t)
	accounts := storemocks.NewMockAccountStore(ctrl)
	blocks := storemocks.NewMockBlockStore(ctrl)

	gen := []byte{0xAA}
	addr := "aa"
	accounts.EXPECT().GenerateAddress(gomock.Any()).Return(addr).AnyTimes()

	blocks.EXPECT().SumRound(gomock.Any(), gomock.Any(), activeDelegates, uint64(1)).
		Return(models.RoundSum{Fees: 0, Rewards: []int64{0}, Delegates: [][]byte{gen}}, nil)

	wantErr := errors.New("deadlock detected")
	accounts.EXPECT().Merge(gomock.Any(), gomock.Any(), addr, gomock.Any()).Return(wantErr)

	slate := fixedMockSlate{pks: [][]byte{gen}}
	e := New(accounts, blocks, slate, activeDelegates, 0, NewAppState(), eventbus.New())
	exec := roundops.NewStoreExecutor(accounts, blocks)

	block := models.Block{Height: 1, ID: "genesis", GeneratorPublicKey: gen}
	err := e.Tick(context.Background(), block, nil, exec)
	if err == nil {
		t.Fatal("expected Tick to propagate the Merge error")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error chain does not wrap the original store error: %v", err)
	}
	if e.State.IsTicking() {
		t.Error("rounds.isTicking left true after a Merge failure")
	}
}
