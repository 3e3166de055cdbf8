package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

type fakeSource struct {
	users         []MinFunding
	deposits      []Deposit
	exchangeCalls int
	depositCalls  int
	failUsers     error
	failDeposits  error
}

func (f *fakeSource) ExchangeUsers(ctx context.Context, start, end time.Time, topN int) ([]MinFunding, error) {
	f.exchangeCalls++
	if f.failUsers != nil {
		return nil, f.failUsers
	}
	return f.users, nil
}

func (f *fakeSource) Deposits(ctx context.Context, exchangeAddress model.Address, start, end time.Time, limit int) ([]Deposit, error) {
	f.depositCalls++
	if f.failDeposits != nil {
		return nil, f.failDeposits
	}
	return f.deposits, nil
}

type noopCheckpoint struct{ saves int }

func (c *noopCheckpoint) Save(s *State) error {
	c.saves++
	return nil
}

func TestBreadthPassResolvesSingletonAndSkipsDefiniteUsers(t *testing.T) {
	x := addr(0x01)
	src := &fakeSource{
		users:    []MinFunding{{UserID: 1, Funded: 100}},
		deposits: []Deposit{{Address: x, Deposited: 120}},
	}
	s := NewState()
	cp := &noopCheckpoint{}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	if err := BreadthPass(context.Background(), src, s, model.Address{}, start, end, 10, cp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := s.Definite[1]
	if !ok || got != x {
		t.Fatalf("got %v (ok=%v), want %v", got, ok, x)
	}
	if cp.saves == 0 {
		t.Error("expected at least one checkpoint save")
	}

	callsBefore := src.exchangeCalls
	if err := BreadthPass(context.Background(), src, s, model.Address{}, start, end, 10, cp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.exchangeCalls == callsBefore {
		t.Error("expected ExchangeUsers to still be queried per day even once a user is definite")
	}
}

func TestBreadthPassLogsAndContinuesOnQueryError(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	var loggedQueries []string
	orig := logBreadthQueryError
	logBreadthQueryError = func(query string, topN int, day time.Time, err error) {
		loggedQueries = append(loggedQueries, query)
	}
	defer func() { logBreadthQueryError = orig }()

	src := &fakeSource{failUsers: errors.New("boom")}
	s := NewState()
	cp := &noopCheckpoint{}

	if err := BreadthPass(context.Background(), src, s, model.Address{}, start, end, 10, cp); err != nil {
		t.Fatalf("expected query errors to be logged and skipped, not propagated: %v", err)
	}
	if len(loggedQueries) != 2 {
		t.Fatalf("got %d logged query errors, want 2 (one per day)", len(loggedQueries))
	}
	for _, q := range loggedQueries {
		if q != "exchange_users" {
			t.Errorf("got query=%q, want exchange_users", q)
		}
	}
	if src.depositCalls != 0 {
		t.Error("expected Deposits never queried once ExchangeUsers failed that day")
	}
}

func TestDaysInRangeSingleDayFallsBackToEnd(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start

	days := daysInRange(start, end)
	if len(days) != 1 || !days[0].Equal(end) {
		t.Errorf("got %v, want single day %v", days, end)
	}
}

func TestDaysInRangeEnumeratesEachDayAfterStart(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)

	days := daysInRange(start, end)
	if len(days) != 3 {
		t.Fatalf("got %d days, want 3", len(days))
	}
	if !days[0].Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first day got %v, want Jan 2", days[0])
	}
}
