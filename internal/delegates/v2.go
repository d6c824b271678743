package delegates

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/rawblock/round-engine/internal/store"
	"github.com/rawblock/round-engine/pkg/models"
)

// selectV2 performs weighted selection without replacement of n delegates
// from candidates, driven by a hash-chain PRNG keyed on seed. On each draw
// it samples a value in [0, sumRemainingWeights), finds the candidate
// whose cumulative-weight bracket contains it, removes that candidate,
// and advances the hash chain.
//
// Candidates with votesWeight <= 0 must already be filtered out by the
// caller (GetAll with WeightGTZero) — they would otherwise create a
// zero-width bracket.
func selectV2(candidates []*models.Account, n int, seed []byte) ([][]byte, error) {
	if len(candidates) < n {
		return nil, fmt.Errorf("delegates: v2 needs %d candidates with votesWeight > 0, have %d", n, len(candidates))
	}

	// Copy so we can remove entries without mutating the caller's slice.
	pool := make([]*models.Account, len(candidates))
	copy(pool, candidates)

	var total int64
	for _, a := range pool {
		total += a.VotesWeight
	}

	chain := append([]byte(nil), seed...)
	slate := make([][]byte, 0, n)

	for len(slate) < n {
		chain = chainhash.DoubleHashB(chain)
		draw := drawInRange(chain, total)

		var cumulative int64
		idx := -1
		for i, a := range pool {
			cumulative += a.VotesWeight
			if draw < cumulative {
				idx = i
				break
			}
		}
		if idx < 0 {
			// Floating bracket edge from integer truncation; fall back to
			// the last candidate rather than ever drop a draw silently.
			idx = len(pool) - 1
		}

		slate = append(slate, pool[idx].PublicKey)
		total -= pool[idx].VotesWeight
		pool = append(pool[:idx], pool[idx+1:]...)
	}

	return slate, nil
}

// drawInRange maps a 32-byte hash digest onto [0, total) using the top 8
// bytes as a uint64. total is assumed > 0 — callers never invoke this once
// the candidate pool (and therefore total weight) has been exhausted.
func drawInRange(digest []byte, total int64) int64 {
	v := binary.BigEndian.Uint64(digest[:8])
	return int64(v % uint64(total))
}

// PayloadHashSeedSource derives the v2 PRNG seed from persisted block
// data.
//
// Decision (spec.md §9 open question, resolved here): the seed for round
// r is DoubleSHA256(lastBlockID(r-1) || round_be_bytes), i.e. always the
// id of the last block of the *preceding* round, never the target round's
// own first-block payload hash. The target round's first block cannot
// exist yet when the slate must be computed — forgers need their slot
// authorization before they forge — so the "first block's payload hash"
// alternative the spec floats is only reachable for retroactive
// re-derivation, not forward slate generation, and every node must pick
// the same source to agree bit-for-bit. Round 1 (whose preceding round
// does not exist) seeds from the genesis block's own id instead.
type PayloadHashSeedSource struct {
	Blocks          store.BlockStore
	ActiveDelegates int
}

// NewPayloadHashSeedSource builds a SeedSource over blocks.
func NewPayloadHashSeedSource(blocks store.BlockStore, activeDelegates int) *PayloadHashSeedSource {
	return &PayloadHashSeedSource{Blocks: blocks, ActiveDelegates: activeDelegates}
}

func (s *PayloadHashSeedSource) Seed(ctx context.Context, tx store.Txn, round uint64) ([]byte, error) {
	var anchorHeight uint64
	if round <= 1 {
		anchorHeight = 1
	} else {
		anchorHeight = (round - 1) * uint64(s.ActiveDelegates) // last height of round-1
	}

	block, err := s.Blocks.Find(ctx, tx, anchorHeight)
	if err != nil {
		return nil, fmt.Errorf("seed source: find anchor block at height %d: %w", anchorHeight, err)
	}
	if block == nil {
		return nil, fmt.Errorf("seed source: anchor block at height %d not found", anchorHeight)
	}

	roundBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(roundBuf, round)

	material := append([]byte(block.ID), roundBuf...)
	return chainhash.DoubleHashB(material), nil
}
