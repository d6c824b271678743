package delegates

import (
	"bytes"
	"testing"

	"github.com/rawblock/round-engine/pkg/models"
)

func makeCandidate(vote int64, pk byte) *models.Account {
	return &models.Account{PublicKey: []byte{pk}, Vote: vote}
}

func TestSelectV1_TopNByVoteWithTieBreak(t *testing.T) {
	candidates := []*models.Account{
		makeCandidate(100, 0x03),
		makeCandidate(100, 0x01), // ties with 0x03 on vote, wins tie-break (lower pubkey)
		makeCandidate(200, 0x02),
		makeCandidate(50, 0x04),
	}

	slate, err := selectV1(candidates, 3, 1)
	if err != nil {
		t.Fatalf("selectV1: %v", err)
	}
	if len(slate) != 3 {
		t.Fatalf("expected 3 delegates, got %d", len(slate))
	}

	// Before the shuffle the rank order would be 0x02 (200), 0x01 (100,
	// tie-break), 0x03 (100). The shuffle may reorder, but 0x04 (vote 50)
	// must never appear since only the top 3 are kept.
	for _, pk := range slate {
		if bytes.Equal(pk, []byte{0x04}) {
			t.Errorf("lowest-vote candidate 0x04 must not be selected")
		}
	}
}

func TestSelectV1_InsufficientCandidates(t *testing.T) {
	candidates := []*models.Account{makeCandidate(10, 0x01)}
	if _, err := selectV1(candidates, 5, 1); err == nil {
		t.Error("expected error when fewer candidates than N")
	}
}

func TestSelectV1_DeterministicAcrossCalls(t *testing.T) {
	candidates := []*models.Account{
		makeCandidate(100, 0x01),
		makeCandidate(90, 0x02),
		makeCandidate(80, 0x03),
		makeCandidate(70, 0x04),
	}

	a, err := selectV1(candidates, 4, 7)
	if err != nil {
		t.Fatalf("selectV1: %v", err)
	}
	b, err := selectV1(candidates, 4, 7)
	if err != nil {
		t.Fatalf("selectV1: %v", err)
	}

	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			t.Fatalf("slate differs across identical calls at index %d: %x vs %x", i, a[i], b[i])
		}
	}
}

func TestSelectV1_DifferentRoundsShuffleDifferently(t *testing.T) {
	candidates := []*models.Account{
		makeCandidate(100, 0x01),
		makeCandidate(90, 0x02),
		makeCandidate(80, 0x03),
		makeCandidate(70, 0x04),
	}

	a, err := selectV1(candidates, 4, 1)
	if err != nil {
		t.Fatalf("selectV1: %v", err)
	}
	b, err := selectV1(candidates, 4, 2)
	if err != nil {
		t.Fatalf("selectV1: %v", err)
	}

	same := true
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			same = false
			break
		}
	}
	if same {
		t.Error("expected different rounds to (almost certainly) shuffle differently")
	}
}

func weighted(weight int64, pk byte) *models.Account {
	return &models.Account{PublicKey: []byte{pk}, VotesWeight: weight}
}

func TestSelectV2_DeterministicGivenSameSeed(t *testing.T) {
	candidates := []*models.Account{
		weighted(500, 0x01),
		weighted(300, 0x02),
		weighted(900, 0x03),
		weighted(10, 0x04),
		weighted(600, 0x05),
	}
	seed := []byte("fixed-test-seed")

	a, err := selectV2(candidates, 3, seed)
	if err != nil {
		t.Fatalf("selectV2: %v", err)
	}
	b, err := selectV2(candidates, 3, seed)
	if err != nil {
		t.Fatalf("selectV2: %v", err)
	}

	if len(a) != 3 || len(b) != 3 {
		t.Fatalf("expected 3-element slates, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			t.Fatalf("same seed produced different slates at index %d", i)
		}
	}
}

func TestSelectV2_NoDuplicateDelegates(t *testing.T) {
	candidates := []*models.Account{
		weighted(500, 0x01),
		weighted(300, 0x02),
		weighted(900, 0x03),
		weighted(10, 0x04),
		weighted(600, 0x05),
	}

	slate, err := selectV2(candidates, 5, []byte("seed"))
	if err != nil {
		t.Fatalf("selectV2: %v", err)
	}

	seen := make(map[byte]bool)
	for _, pk := range slate {
		if seen[pk[0]] {
			t.Fatalf("duplicate delegate %x in slate", pk)
		}
		seen[pk[0]] = true
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 distinct delegates, got %d", len(seen))
	}
}

func TestSelectV2_InsufficientCandidates(t *testing.T) {
	candidates := []*models.Account{weighted(10, 0x01)}
	if _, err := selectV2(candidates, 3, []byte("seed")); err == nil {
		t.Error("expected error when fewer candidates than N")
	}
}

func TestSelectV2_DifferentSeedsLikelyDiffer(t *testing.T) {
	candidates := []*models.Account{
		weighted(500, 0x01),
		weighted(300, 0x02),
		weighted(900, 0x03),
		weighted(10, 0x04),
		weighted(600, 0x05),
	}

	a, err := selectV2(candidates, 3, []byte("seed-a"))
	if err != nil {
		t.Fatalf("selectV2: %v", err)
	}
	b, err := selectV2(candidates, 3, []byte("seed-b"))
	if err != nil {
		t.Fatalf("selectV2: %v", err)
	}

	same := true
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			same = false
			break
		}
	}
	if same {
		t.Error("expected different seeds to (almost certainly) produce different slates")
	}
}
