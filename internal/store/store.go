// Package store defines the interfaces the round engine requires from the
// account and block persistence layers. Concrete implementations live in
// store/postgres (the production pgx-backed store) and store/memory (the
// deterministic in-memory reference store used by tests and roundcheck).
package store

import (
	"context"

	"github.com/rawblock/round-engine/pkg/models"
)

// Txn is the caller-supplied transaction envelope threaded through every
// store call in one tick. It is deliberately opaque here: AccountStore and
// BlockStore implementations type-assert it to their concrete transaction
// type (e.g. pgx.Tx). The round engine never inspects it, only forwards
// it — the transaction is the caller's unit of atomicity, not the
// engine's.
type Txn interface{}

// AccountStore is the delegate-account persistence collaborator.
type AccountStore interface {
	// Merge queues an additive diff against address's row. Implementations
	// must not apply the diff eagerly outside the transaction; the merge is
	// expressed as a typed op so RoundOps can sequence, log, and reverse it.
	Merge(ctx context.Context, tx Txn, address string, diff models.AccountDiff) error

	// Get reads a single account matching filter. Returns nil, nil if no
	// account matches.
	Get(ctx context.Context, tx Txn, filter models.AccountFilter) (*models.Account, error)

	// GetAll reads every account matching filter, in no particular order —
	// callers that need a specific order (e.g. DelegateSlate) sort after
	// the fact.
	GetAll(ctx context.Context, tx Txn, filter models.AccountFilter) ([]*models.Account, error)

	// GenerateAddress derives the address string for a public key.
	GenerateAddress(publicKey []byte) string
}

// BlockStore is the block persistence collaborator.
type BlockStore interface {
	// SumRound reads every block in round r (n active delegates), in
	// height-ascending order, and returns the round's total fee, per-slot
	// reward schedule, and the generator of each slot. Both implementations
	// sum round 1 as the genesis block (height 1) alone.
	SumRound(ctx context.Context, tx Txn, n int, round uint64) (models.RoundSum, error)

	// Find looks up a single block by height. Returns nil, nil if absent.
	Find(ctx context.Context, tx Txn, height uint64) (*models.Block, error)

	// TruncateBlocks drops every persisted block above fromHeight. Used
	// only in snapshot mode.
	TruncateBlocks(ctx context.Context, tx Txn, fromHeight uint64) error

	// MarkBlockID stamps the block at height with id, recording which
	// block caused the round transition so replay can detect it already
	// happened.
	MarkBlockID(ctx context.Context, tx Txn, height uint64, id string) error
}
