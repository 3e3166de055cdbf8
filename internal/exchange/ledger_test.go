package exchange

import (
	"errors"
	"testing"
	"time"

	"github.com/0lnetwork/graphwarehouse/internal/errtag"
	"github.com/0lnetwork/graphwarehouse/internal/model"
	"github.com/shopspring/decimal"
)

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// TestReplayBalancesScenarioS1 mirrors the basic balance-replay scenario:
// three trades across three users produce funding events that clamp
// overdrafts to zero while carrying total_* fields forward.
func TestReplayBalancesScenarioS1(t *testing.T) {
	day := func(s string) time.Time {
		ts, err := time.Parse("2006-01-02", s)
		if err != nil {
			t.Fatal(err)
		}
		return ts
	}

	orders := []model.ExchangeOrder{
		{User: 1, Accepter: 2, OrderType: model.Buy, Amount: mustDecimal("10"), FilledAt: day("2024-03-02")},
		{User: 2, Accepter: 3, OrderType: model.Sell, Amount: mustDecimal("5"), FilledAt: day("2024-03-06")},
		{User: 3, Accepter: 1, OrderType: model.Buy, Amount: mustDecimal("15"), FilledAt: day("2024-03-11")},
	}

	ledgers, err := ReplayBalances(orders)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user1Day1 := ledgers[1].Snapshots[0]
	if !user1Day1.CurrentBalance.Equal(mustDecimal("10")) || !user1Day1.TotalInflows.Equal(mustDecimal("10")) {
		t.Errorf("user 1 day1: got balance=%v inflows=%v, want 10/10", user1Day1.CurrentBalance, user1Day1.TotalInflows)
	}
	if !user1Day1.TotalOutflows.IsZero() || !user1Day1.TotalFunded.IsZero() {
		t.Errorf("user 1 day1: expected zero outflows/funded, got %v/%v", user1Day1.TotalOutflows, user1Day1.TotalFunded)
	}

	user1Day3 := ledgers[1].Snapshots[len(ledgers[1].Snapshots)-1]
	if !user1Day3.CurrentBalance.IsZero() {
		t.Errorf("user 1 day3: got balance=%v, want 0", user1Day3.CurrentBalance)
	}
	if !user1Day3.TotalFunded.Equal(mustDecimal("5")) {
		t.Errorf("user 1 day3: got total_funded=%v, want 5", user1Day3.TotalFunded)
	}
	if !user1Day3.TotalOutflows.Equal(mustDecimal("15")) {
		t.Errorf("user 1 day3: got total_outflows=%v, want 15", user1Day3.TotalOutflows)
	}
	if !user1Day3.TotalInflows.Equal(mustDecimal("10")) {
		t.Errorf("user 1 day3: got total_inflows=%v, want 10", user1Day3.TotalInflows)
	}
	if !user1Day3.DailyFunding.Equal(mustDecimal("5")) {
		t.Errorf("user 1 day3: got daily_funding=%v, want 5", user1Day3.DailyFunding)
	}
	if !user1Day3.DailyOutflows.Equal(mustDecimal("15")) {
		t.Errorf("user 1 day3: got daily_outflows=%v, want 15", user1Day3.DailyOutflows)
	}

	user3Day3 := ledgers[3].Snapshots[len(ledgers[3].Snapshots)-1]
	if !user3Day3.CurrentBalance.Equal(mustDecimal("20")) {
		t.Errorf("user 3 day3: got balance=%v, want 20", user3Day3.CurrentBalance)
	}
	if !user3Day3.TotalInflows.Equal(mustDecimal("20")) {
		t.Errorf("user 3 day3: got total_inflows=%v, want 20", user3Day3.TotalInflows)
	}
	if !user3Day3.DailyInflows.Equal(mustDecimal("15")) {
		t.Errorf("user 3 day3: got daily_inflows=%v, want 15", user3Day3.DailyInflows)
	}
}

func TestReplayBalancesSameDayCreditThenOverdrawingDebitClampsAndFunds(t *testing.T) {
	day := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	orders := []model.ExchangeOrder{
		{User: 1, Accepter: 2, OrderType: model.Buy, Amount: mustDecimal("10"), FilledAt: day},
		{User: 2, Accepter: 1, OrderType: model.Buy, Amount: mustDecimal("30"), FilledAt: day},
	}

	ledgers, err := ReplayBalances(orders)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// user 1: credited 10 then debited 30 on the same day -> overdrawn by 20.
	snap := ledgers[1].Snapshots[len(ledgers[1].Snapshots)-1]
	if !snap.CurrentBalance.IsZero() {
		t.Errorf("got balance=%v, want 0 (clamped)", snap.CurrentBalance)
	}
	if !snap.DailyFunding.Equal(mustDecimal("20")) {
		t.Errorf("got daily_funding=%v, want 20", snap.DailyFunding)
	}
}

func TestReplayBalancesRejectsOutOfOrderUpdate(t *testing.T) {
	later := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	orders := []model.ExchangeOrder{
		{User: 1, Accepter: 2, OrderType: model.Buy, Amount: mustDecimal("10"), FilledAt: later},
	}
	ledgers, err := ReplayBalances(orders)
	if err != nil {
		t.Fatalf("unexpected error building initial ledger: %v", err)
	}

	err = applyUpdate(ledgers, 1, earlier, mustDecimal("5"), true)
	if !errors.Is(err, errtag.ErrOrderingViolation) {
		t.Errorf("got err=%v, want errtag.ErrOrderingViolation", err)
	}
}
