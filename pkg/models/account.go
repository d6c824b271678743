package models

// Account is a delegate account as mutated by the round engine. Accounts
// are created externally (vote transactions, registration); the engine
// only ever merges deltas into existing rows, it never deletes.
type Account struct {
	PublicKey      []byte
	Address        string
	Balance        int64
	UBalance       int64
	Vote           int64
	VotesWeight    int64
	ProducedBlocks uint64
	MissedBlocks   uint64
	Fees           int64
	Rewards        int64
	Rank           int
	IsBanned       bool
	Rounds         []uint64 // audit trail: rounds whose ops have touched this account
}

// AccountDiff carries the additive deltas one merge applies to an account
// row. Every field is a delta, never an absolute value, and a zero value
// means "no change" for that field.
type AccountDiff struct {
	Balance        int64
	UBalance       int64
	Vote           int64
	VotesWeight    int64
	ProducedBlocks int64
	MissedBlocks   int64
	Fees           int64
	Rewards        int64
	Round          uint64 // tagged onto the account's audit trail; 0 = no tag
}

// Negate returns the diff that exactly undoes this one. Used to build
// undo() as the negation of apply() rather than duplicating arithmetic.
func (d AccountDiff) Negate() AccountDiff {
	return AccountDiff{
		Balance:        -d.Balance,
		UBalance:       -d.UBalance,
		Vote:           -d.Vote,
		VotesWeight:    -d.VotesWeight,
		ProducedBlocks: -d.ProducedBlocks,
		MissedBlocks:   -d.MissedBlocks,
		Fees:           -d.Fees,
		Rewards:        -d.Rewards,
		Round:          d.Round,
	}
}

// AccountFilter selects accounts for Get/GetAll. A zero-value field is
// "don't filter on this".
type AccountFilter struct {
	Address      string
	PublicKey    []byte
	VoteGTZero   bool // only accounts with vote > 0 (v1 candidate pool)
	WeightGTZero bool // only accounts with votesWeight > 0, not banned (v2 candidate pool)
}
