package roundmath

import "testing"

func TestRoundOf(t *testing.T) {
	tests := []struct {
		name   string
		height uint64
		n      int
		want   uint64
	}{
		{"genesis is round 1", 1, 101, 1},
		{"last block of round 1", 101, 101, 1},
		{"first block of round 2", 102, 101, 2},
		{"last block of round 2", 202, 101, 2},
		{"deep round", 101 * 500, 101, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoundOf(tt.height, tt.n); got != tt.want {
				t.Errorf("RoundOf(%d, %d) = %d, want %d", tt.height, tt.n, got, tt.want)
			}
		})
	}
}

func TestFirstAndLastInRound(t *testing.T) {
	n := 101
	if got := FirstInRound(1, n); got != 1 {
		t.Errorf("FirstInRound(1) = %d, want 1", got)
	}
	if got := LastInRound(1, n); got != 101 {
		t.Errorf("LastInRound(1) = %d, want 101", got)
	}
	if got := FirstInRound(2, n); got != 102 {
		t.Errorf("FirstInRound(2) = %d, want 102", got)
	}
	if got := LastInRound(2, n); got != 202 {
		t.Errorf("LastInRound(2) = %d, want 202", got)
	}
}

func TestIsRoundEnd(t *testing.T) {
	n := 101
	tests := []struct {
		height uint64
		want   bool
	}{
		{1, true},    // genesis always finishes its own round-ending event
		{2, false},
		{100, false},
		{101, true},  // last block of round 1
		{102, false}, // first of round 2
		{202, true},  // last of round 2
	}

	for _, tt := range tests {
		if got := IsRoundEnd(tt.height, n); got != tt.want {
			t.Errorf("IsRoundEnd(%d) = %v, want %v", tt.height, got, tt.want)
		}
	}
}

func TestSplitFees_Remainder(t *testing.T) {
	// Scenario 3 from the spec: sum fees = 10^7, N=101.
	per, remainder, err := SplitFees(10_000_000, 101)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if per != 99009 {
		t.Errorf("per = %d, want 99009", per)
	}
	if remainder != 91 {
		t.Errorf("remainder = %d, want 91", remainder)
	}
	if per*101+remainder != 10_000_000 {
		t.Errorf("conservation violated: %d*101+%d != 10000000", per, remainder)
	}
}

func TestSplitFees_Zero(t *testing.T) {
	per, remainder, err := SplitFees(0, 101)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if per != 0 || remainder != 0 {
		t.Errorf("expected (0,0), got (%d,%d)", per, remainder)
	}
}

func TestSplitFees_ExactDivision(t *testing.T) {
	per, remainder, err := SplitFees(101*1000, 101)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if per != 1000 || remainder != 0 {
		t.Errorf("expected (1000,0), got (%d,%d)", per, remainder)
	}
}

func TestSplitFees_InvalidN(t *testing.T) {
	if _, _, err := SplitFees(100, 0); err == nil {
		t.Error("expected error for n=0")
	}
	if _, _, err := SplitFees(100, -1); err == nil {
		t.Error("expected error for n<0")
	}
}

func TestSplitFees_NegativeFees(t *testing.T) {
	if _, _, err := SplitFees(-1, 101); err == nil {
		t.Error("expected error for negative fees")
	}
}
