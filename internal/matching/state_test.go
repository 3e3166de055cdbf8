package matching

import (
	"testing"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

func addr(b byte) model.Address {
	var a model.Address
	a[len(a)-1] = b
	return a
}

// TestEliminateCandidatesScenarioS6 mirrors the matching-singleton
// scenario: users A (funded=100) and B (funded=50) against deposits
// X=120, Y=60, Z=40. After one pass, A must resolve to X (the only
// deposit >= 100) and B must resolve to Y (the only deposit >= 50 among
// addresses not already claimed by A).
func TestEliminateCandidatesScenarioS6(t *testing.T) {
	x, y, z := addr(0x01), addr(0x02), addr(0x03)

	deposits := []Deposit{
		{Address: x, Deposited: 120},
		{Address: y, Deposited: 60},
		{Address: z, Deposited: 40},
	}

	s := NewState()
	s.EliminateCandidates(MinFunding{UserID: 1, Funded: 100}, deposits) // user A
	s.EliminateCandidates(MinFunding{UserID: 2, Funded: 50}, deposits)  // user B

	gotA, ok := s.Definite[1]
	if !ok || gotA != x {
		t.Errorf("user A: got %v (ok=%v), want %v", gotA, ok, x)
	}
	gotB, ok := s.Definite[2]
	if !ok || gotB != y {
		t.Errorf("user B: got %v (ok=%v), want %v", gotB, ok, y)
	}
}

func TestEliminateCandidatesNarrowsAcrossRounds(t *testing.T) {
	a1, a2 := addr(0x01), addr(0x02)
	s := NewState()

	// Round 1: both addresses qualify, maybe stays at two.
	s.EliminateCandidates(MinFunding{UserID: 1, Funded: 10}, []Deposit{
		{Address: a1, Deposited: 50}, {Address: a2, Deposited: 40},
	})
	if _, done := s.Definite[1]; done {
		t.Fatal("should not be definite after round 1 with two candidates")
	}
	if len(s.Pending[1].Maybe) != 2 {
		t.Fatalf("expected 2 maybe candidates after round 1, got %d", len(s.Pending[1].Maybe))
	}

	// Round 2: a2 no longer appears as a qualifying deposit, narrowing to a1.
	s.EliminateCandidates(MinFunding{UserID: 1, Funded: 10}, []Deposit{
		{Address: a1, Deposited: 50},
	})
	got, ok := s.Definite[1]
	if !ok || got != a1 {
		t.Errorf("got %v (ok=%v), want %v", got, ok, a1)
	}
}

func TestEliminateCandidatesEmptyIntersectionLeavesMaybeAlone(t *testing.T) {
	a1, a2 := addr(0x01), addr(0x02)
	s := NewState()

	s.EliminateCandidates(MinFunding{UserID: 1, Funded: 10}, []Deposit{
		{Address: a1, Deposited: 50}, {Address: a2, Deposited: 40},
	})
	before := append([]model.Address(nil), s.Pending[1].Maybe...)

	// An inconclusive day where nothing in this round qualifies.
	s.EliminateCandidates(MinFunding{UserID: 1, Funded: 1000}, []Deposit{
		{Address: a1, Deposited: 50}, {Address: a2, Deposited: 40},
	})

	if len(s.Pending[1].Maybe) != len(before) {
		t.Errorf("expected maybe-list unchanged on an inconclusive round, got %v want %v", s.Pending[1].Maybe, before)
	}
}
