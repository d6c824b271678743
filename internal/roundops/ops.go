// Package roundops builds the ordered sequence of typed database
// operations that implement one round-end's apply or undo. The sequence
// is a closed tagged union (OpKind) rather than a dynamic interface list,
// so the engine's executor can switch exhaustively over it and tests can
// introspect exactly what would be written without touching a store.
package roundops

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rawblock/round-engine/internal/roundmath"
	"github.com/rawblock/round-engine/pkg/models"
)

// OpKind tags the closed set of operations RoundOps can emit.
type OpKind int

const (
	OpMergeAccount OpKind = iota
	OpMarkBlockID
	OpTruncateBlocks
)

func (k OpKind) String() string {
	switch k {
	case OpMergeAccount:
		return "merge_account"
	case OpMarkBlockID:
		return "mark_block_id"
	case OpTruncateBlocks:
		return "truncate_blocks"
	default:
		return "unknown"
	}
}

// Op is a single typed operation in a batch. Only the fields relevant to
// Kind are populated.
type Op struct {
	Kind OpKind

	// OpMergeAccount
	Address string
	Diff    models.AccountDiff

	// OpMarkBlockID
	Height  uint64
	BlockID string

	// OpTruncateBlocks
	FromHeight uint64
}

// Batch is the ordered sequence of ops for one tick, tagged with a
// generated id (carried in StoreExecutor's error messages; it is not
// persisted) and the round it belongs to.
type Batch struct {
	ID    uuid.UUID
	Round uint64
	Ops   []Op
}

// Build constructs the ordered op batch for ctx per spec.md §4.5. Ordering
// is fixed: merge_block_generator, then apply (forwards) or undo
// (backwards) when ctx.FinishRound, then mark_block_id, then an optional
// truncate_blocks when snapshot mode targets this round.
func Build(ctx models.RoundContext) (Batch, error) {
	batch := Batch{ID: uuid.New(), Round: ctx.Round}

	generatorOp, err := mergeBlockGenerator(ctx)
	if err != nil {
		return Batch{}, err
	}
	batch.Ops = append(batch.Ops, generatorOp)

	if ctx.FinishRound {
		var roundOps []Op
		var err error
		if ctx.Backwards {
			roundOps, err = undo(ctx)
		} else {
			roundOps, err = apply(ctx)
		}
		if err != nil {
			return Batch{}, err
		}
		batch.Ops = append(batch.Ops, roundOps...)
	}

	batch.Ops = append(batch.Ops, Op{
		Kind:    OpMarkBlockID,
		Height:  ctx.Block.Height,
		BlockID: ctx.Block.ID,
	})

	if ctx.FinishRound && ctx.SnapshotRound != 0 && ctx.SnapshotRound == ctx.Round {
		batch.Ops = append(batch.Ops, Op{
			Kind:       OpTruncateBlocks,
			FromHeight: roundmath.LastInRound(ctx.Round, ctx.ActiveDelegates),
		})
	}

	return batch, nil
}

// mergeBlockGenerator credits the current block's generator: one produced
// block, the block's reward and fee to both balance and u_balance, tagged
// with the round for reversibility.
func mergeBlockGenerator(ctx models.RoundContext) (Op, error) {
	address := fmt.Sprintf("%x", ctx.Block.GeneratorPublicKey)
	diff := models.AccountDiff{
		ProducedBlocks: 1,
		Balance:        ctx.Block.Reward + ctx.Block.TotalFee,
		UBalance:       ctx.Block.Reward + ctx.Block.TotalFee,
		Round:          ctx.Round,
	}
	if ctx.Backwards {
		diff = diff.Negate()
	}
	return Op{Kind: OpMergeAccount, Address: address, Diff: diff}, nil
}

// apply emits the forward round-end ops: per-delegate fee share plus
// reward, remainder to the last forger, then a missed-block increment per
// outsider.
func apply(ctx models.RoundContext) ([]Op, error) {
	// len(RoundDelegates) is normally ctx.ActiveDelegates (one block per
	// height in the round), except for the genesis round-end event, which
	// has exactly one participant. N itself — the fee-split divisor — is
	// always the configured active-delegate constant, never the observed
	// participant count.
	if len(ctx.RoundDelegates) == 0 {
		return nil, fmt.Errorf("roundops: round has no delegates")
	}
	if len(ctx.RoundRewards) != len(ctx.RoundDelegates) {
		return nil, fmt.Errorf("roundops: reward schedule length %d does not match delegate count %d", len(ctx.RoundRewards), len(ctx.RoundDelegates))
	}

	perFee, remainder, err := roundmath.SplitFees(ctx.RoundFees, ctx.ActiveDelegates)
	if err != nil {
		return nil, fmt.Errorf("roundops: split fees: %w", err)
	}

	var ops []Op
	lastIdx := len(ctx.RoundDelegates) - 1
	for i, pk := range ctx.RoundDelegates {
		diff := models.AccountDiff{
			Balance:  perFee + ctx.RoundRewards[i],
			UBalance: perFee + ctx.RoundRewards[i],
			Round:    ctx.Round,
		}
		if i == lastIdx {
			diff.Balance += remainder
			diff.UBalance += remainder
		}
		ops = append(ops, Op{Kind: OpMergeAccount, Address: fmt.Sprintf("%x", pk), Diff: diff})
	}

	for _, address := range ctx.RoundOutsiders {
		ops = append(ops, Op{
			Kind:    OpMergeAccount,
			Address: address,
			Diff:    models.AccountDiff{MissedBlocks: 1, Round: ctx.Round},
		})
	}

	return ops, nil
}

// undo emits the exact negation of apply, in reverse order: outsider
// missed-block decrements first, then per-delegate balance decrements in
// reversed index order. This mirrors the reverse-chronological unwind the
// spec requires so any intermediate read of persisted state during the
// undo stays valid.
func undo(ctx models.RoundContext) ([]Op, error) {
	forward, err := apply(ctx)
	if err != nil {
		return nil, err
	}
	reversed := make([]Op, len(forward))
	for i, op := range forward {
		negated := op
		negated.Diff = op.Diff.Negate()
		reversed[len(forward)-1-i] = negated
	}
	return reversed, nil
}
