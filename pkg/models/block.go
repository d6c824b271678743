package models

// Block is the subset of block fields the round engine reads. The full
// block/transaction data model lives above this engine; only the fields
// the round lifecycle needs are represented here.
type Block struct {
	ID                 string
	Height             uint64
	GeneratorPublicKey []byte
	TotalFee           int64
	Reward             int64
	PayloadHash        []byte
	Timestamp          int64
}

// RoundSum is the result of summing a round's worth of blocks: the total
// fees collected, the per-slot reward schedule, and the generator that
// forged each slot, all in height-ascending order.
type RoundSum struct {
	Fees      int64
	Rewards   []int64
	Delegates [][]byte
}
