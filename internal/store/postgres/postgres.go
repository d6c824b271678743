// Package postgres implements store.AccountStore and store.BlockStore over
// PostgreSQL via pgx, the way the teacher's internal/db.PostgresStore wraps
// a pgxpool.Pool and type-asserts the caller-supplied transaction.
package postgres

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rawblock/round-engine/internal/store"
	"github.com/rawblock/round-engine/pkg/models"
)

// Store is the pgx-backed AccountStore + BlockStore pair.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against connStr and pings it once before returning,
// mirroring the teacher's db.Connect.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres: unable to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres: ping failed: %w", err)
	}
	log.Println("round-engine: connected to PostgreSQL")
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes schema.sql.
func (s *Store) InitSchema(ctx context.Context) error {
	schemaBytes, err := os.ReadFile("internal/store/postgres/schema.sql")
	if err != nil {
		return fmt.Errorf("postgres: read schema: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("postgres: apply schema: %w", err)
	}
	return nil
}

// Begin starts a transaction. The returned pgx.Tx satisfies store.Txn and
// is what engine.Tick/BackwardTick callers pass through to every store
// method for the duration of one block's processing.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.pool.Begin(ctx)
}

// tx type-asserts the opaque store.Txn into a pgx.Tx. A nil txn means "run
// directly against the pool" for read-only calls that don't need the
// caller's transaction.
func (s *Store) tx(txn store.Txn) (pgx.Tx, bool) {
	if txn == nil {
		return nil, false
	}
	t, ok := txn.(pgx.Tx)
	return t, ok
}

func (s *Store) GenerateAddress(publicKey []byte) string {
	return fmt.Sprintf("%x", publicKey)
}

func (s *Store) Merge(ctx context.Context, txn store.Txn, address string, diff models.AccountDiff) error {
	t, ok := s.tx(txn)
	if !ok {
		return fmt.Errorf("postgres: Merge requires a transaction")
	}
	const sql = `
		UPDATE accounts SET
			balance = balance + $2,
			u_balance = u_balance + $3,
			vote = vote + $4,
			votes_weight = votes_weight + $5,
			produced_blocks = produced_blocks + $6,
			missed_blocks = missed_blocks + $7,
			fees = fees + $8,
			rewards = rewards + $9,
			rounds = CASE WHEN $10 > 0 THEN array_append(rounds, $10::bigint) ELSE rounds END
		WHERE address = $1`
	tag, err := t.Exec(ctx, sql, address,
		diff.Balance, diff.UBalance, diff.Vote, diff.VotesWeight,
		diff.ProducedBlocks, diff.MissedBlocks, diff.Fees, diff.Rewards, diff.Round)
	if err != nil {
		return fmt.Errorf("postgres: merge %s: %w", address, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: merge on unknown address %q", address)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, txn store.Txn, filter models.AccountFilter) (*models.Account, error) {
	const base = `SELECT address, public_key, balance, u_balance, vote, votes_weight,
		produced_blocks, missed_blocks, fees, rewards, rank, is_banned, rounds FROM accounts WHERE `

	var row pgx.Row
	if t, ok := s.tx(txn); ok {
		switch {
		case filter.Address != "":
			row = t.QueryRow(ctx, base+"address = $1", filter.Address)
		case filter.PublicKey != nil:
			row = t.QueryRow(ctx, base+"public_key = $1", filter.PublicKey)
		default:
			return nil, fmt.Errorf("postgres: Get requires an Address or PublicKey filter")
		}
	} else {
		switch {
		case filter.Address != "":
			row = s.pool.QueryRow(ctx, base+"address = $1", filter.Address)
		case filter.PublicKey != nil:
			row = s.pool.QueryRow(ctx, base+"public_key = $1", filter.PublicKey)
		default:
			return nil, fmt.Errorf("postgres: Get requires an Address or PublicKey filter")
		}
	}

	var a models.Account
	err := row.Scan(&a.Address, &a.PublicKey, &a.Balance, &a.UBalance, &a.Vote, &a.VotesWeight,
		&a.ProducedBlocks, &a.MissedBlocks, &a.Fees, &a.Rewards, &a.Rank, &a.IsBanned, &a.Rounds)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get account: %w", err)
	}
	return &a, nil
}

func (s *Store) GetAll(ctx context.Context, txn store.Txn, filter models.AccountFilter) ([]*models.Account, error) {
	sql := `SELECT address, public_key, balance, u_balance, vote, votes_weight,
		produced_blocks, missed_blocks, fees, rewards, rank, is_banned, rounds FROM accounts`
	var conds []string
	if filter.VoteGTZero {
		conds = append(conds, "vote > 0")
	}
	if filter.WeightGTZero {
		conds = append(conds, "votes_weight > 0 AND NOT is_banned")
	}
	for i, c := range conds {
		if i == 0 {
			sql += " WHERE " + c
		} else {
			sql += " AND " + c
		}
	}
	sql += " ORDER BY address"

	var rows pgx.Rows
	var err error
	if t, ok := s.tx(txn); ok {
		rows, err = t.Query(ctx, sql)
	} else {
		rows, err = s.pool.Query(ctx, sql)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get_all accounts: %w", err)
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.Address, &a.PublicKey, &a.Balance, &a.UBalance, &a.Vote, &a.VotesWeight,
			&a.ProducedBlocks, &a.MissedBlocks, &a.Fees, &a.Rewards, &a.Rank, &a.IsBanned, &a.Rounds); err != nil {
			return nil, fmt.Errorf("postgres: scan account: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *Store) SumRound(ctx context.Context, txn store.Txn, n int, round uint64) (models.RoundSum, error) {
	first := (round-1)*uint64(n) + 1
	last := round * uint64(n)
	if round == 1 {
		first = 1
		last = 1
	}
	const sql = `SELECT total_fee, reward, generator_public_key FROM blocks
		WHERE height BETWEEN $1 AND $2 ORDER BY height ASC`

	var rows pgx.Rows
	var err error
	if t, ok := s.tx(txn); ok {
		rows, err = t.Query(ctx, sql, first, last)
	} else {
		rows, err = s.pool.Query(ctx, sql, first, last)
	}
	if err != nil {
		return models.RoundSum{}, fmt.Errorf("postgres: sum_round: %w", err)
	}
	defer rows.Close()

	var sum models.RoundSum
	for rows.Next() {
		var fee, reward int64
		var pk []byte
		if err := rows.Scan(&fee, &reward, &pk); err != nil {
			return models.RoundSum{}, fmt.Errorf("postgres: sum_round scan: %w", err)
		}
		sum.Fees += fee
		sum.Rewards = append(sum.Rewards, reward)
		sum.Delegates = append(sum.Delegates, pk)
	}
	return sum, rows.Err()
}

func (s *Store) Find(ctx context.Context, txn store.Txn, height uint64) (*models.Block, error) {
	const sql = `SELECT id, height, generator_public_key, total_fee, reward, payload_hash, "timestamp"
		FROM blocks WHERE height = $1`
	var row pgx.Row
	if t, ok := s.tx(txn); ok {
		row = t.QueryRow(ctx, sql, height)
	} else {
		row = s.pool.QueryRow(ctx, sql, height)
	}
	var b models.Block
	err := row.Scan(&b.ID, &b.Height, &b.GeneratorPublicKey, &b.TotalFee, &b.Reward, &b.PayloadHash, &b.Timestamp)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find block %d: %w", height, err)
	}
	return &b, nil
}

func (s *Store) TruncateBlocks(ctx context.Context, txn store.Txn, fromHeight uint64) error {
	t, ok := s.tx(txn)
	if !ok {
		return fmt.Errorf("postgres: TruncateBlocks requires a transaction")
	}
	_, err := t.Exec(ctx, `DELETE FROM blocks WHERE height > $1`, fromHeight)
	if err != nil {
		return fmt.Errorf("postgres: truncate_blocks: %w", err)
	}
	return nil
}

func (s *Store) MarkBlockID(ctx context.Context, txn store.Txn, height uint64, id string) error {
	t, ok := s.tx(txn)
	if !ok {
		return fmt.Errorf("postgres: MarkBlockID requires a transaction")
	}
	tag, err := t.Exec(ctx, `UPDATE blocks SET id = $2 WHERE height = $1`, height, id)
	if err != nil {
		return fmt.Errorf("postgres: mark_block_id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: mark_block_id on unknown height %d", height)
	}
	return nil
}
