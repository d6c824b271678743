package roundops

import (
	"context"
	"fmt"

	"github.com/rawblock/round-engine/internal/store"
)

// StoreExecutor applies a Batch against an AccountStore/BlockStore pair,
// in the order the ops appear. It is the canonical implementation of the
// engine.Executor contract; tests may substitute their own to introspect
// batches without touching a store at all.
type StoreExecutor struct {
	Accounts store.AccountStore
	Blocks   store.BlockStore
}

// NewStoreExecutor builds a StoreExecutor over the given stores.
func NewStoreExecutor(accounts store.AccountStore, blocks store.BlockStore) *StoreExecutor {
	return &StoreExecutor{Accounts: accounts, Blocks: blocks}
}

// Execute runs every op in batch, in order, inside tx. The first error
// aborts the remaining ops — the caller's transaction is expected to roll
// back everything queued so far.
func (e *StoreExecutor) Execute(ctx context.Context, tx store.Txn, batch Batch) error {
	for i, op := range batch.Ops {
		var err error
		switch op.Kind {
		case OpMergeAccount:
			err = e.Accounts.Merge(ctx, tx, op.Address, op.Diff)
		case OpMarkBlockID:
			err = e.Blocks.MarkBlockID(ctx, tx, op.Height, op.BlockID)
		case OpTruncateBlocks:
			err = e.Blocks.TruncateBlocks(ctx, tx, op.FromHeight)
		default:
			err = fmt.Errorf("roundops: unknown op kind %v", op.Kind)
		}
		if err != nil {
			return fmt.Errorf("roundops: batch %s op %d (%s): %w", batch.ID, i, op.Kind, err)
		}
	}
	return nil
}
