package delegates

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/rawblock/round-engine/pkg/models"
)

// selectV1 implements the deterministic top-N-by-vote algorithm: sort
// candidates by (vote DESC, publicKey ASC), take the top N, then apply a
// deterministic Fisher-Yates shuffle keyed on the round number.
func selectV1(accounts []*models.Account, n int, round uint64) ([][]byte, error) {
	sorted := make([]*models.Account, len(accounts))
	copy(sorted, accounts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Vote != sorted[j].Vote {
			return sorted[i].Vote > sorted[j].Vote
		}
		return bytes.Compare(sorted[i].PublicKey, sorted[j].PublicKey) < 0
	})

	if len(sorted) < n {
		return nil, fmt.Errorf("delegates: v1 needs %d candidates with vote > 0, have %d", n, len(sorted))
	}
	sorted = sorted[:n]

	slate := make([][]byte, n)
	for i, acc := range sorted {
		slate[i] = acc.PublicKey
	}

	shuffleV1(slate, round)
	return slate, nil
}

// shuffleV1 runs a Fisher-Yates shuffle driven by a hash chain seeded on
// the round number's big-endian bytes. Every node computing the same
// round over the same top-N set produces byte-identical output.
func shuffleV1(slate [][]byte, round uint64) {
	seedBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(seedBuf, round)
	digest := chainhash.DoubleHashB(seedBuf)

	for i := len(slate) - 1; i > 0; i-- {
		digest = chainhash.DoubleHashB(digest)
		j := binary.BigEndian.Uint64(digest[:8]) % uint64(i+1)
		slate[i], slate[j] = slate[j], slate[i]
	}
}
