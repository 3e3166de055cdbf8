package exchange

import (
	"fmt"
	"sort"
	"time"

	"github.com/0lnetwork/graphwarehouse/internal/errtag"
	"github.com/0lnetwork/graphwarehouse/internal/model"
	"github.com/shopspring/decimal"
)

// ReplayBalances sorts orders ascending by FilledAt and sequentially
// replays each as a credit/debit pair against a per-account ledger,
// clamping any overdraft to zero via a funding event. Buy orders credit
// the user and debit the accepter; Sell orders are the reverse.
func ReplayBalances(orders []model.ExchangeOrder) (map[int64]*model.UserLedger, error) {
	sorted := make([]model.ExchangeOrder, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FilledAt.Before(sorted[j].FilledAt)
	})

	ledgers := make(map[int64]*model.UserLedger)
	for _, o := range sorted {
		var creditID, debitID int64
		switch o.OrderType {
		case model.Buy:
			creditID, debitID = o.User, o.Accepter
		case model.Sell:
			creditID, debitID = o.Accepter, o.User
		}
		if err := applyUpdate(ledgers, creditID, o.FilledAt, o.Amount, true); err != nil {
			return nil, err
		}
		if err := applyUpdate(ledgers, debitID, o.FilledAt, o.Amount, false); err != nil {
			return nil, err
		}
	}
	return ledgers, nil
}

// applyUpdate carries a single account's ledger forward by one
// (timestamp, amount, isCredit) event, rejecting any update whose
// timestamp is older than the account's latest snapshot.
func applyUpdate(ledgers map[int64]*model.UserLedger, account int64, ts time.Time, amount decimal.Decimal, isCredit bool) error {
	ledger, ok := ledgers[account]
	if !ok {
		ledger = &model.UserLedger{SwapID: account}
		ledgers[account] = ledger
	}
	prev, hasPrev := ledger.Latest()
	if hasPrev && ts.Before(prev.Timestamp) {
		return fmt.Errorf("exchange: balance replay account %d at %s precedes prior snapshot %s: %w",
			account, ts, prev.Timestamp, errtag.ErrOrderingViolation)
	}
	sameDay := hasPrev && ts.Equal(prev.Timestamp)

	next := model.AccountSnapshot{Timestamp: ts}
	if isCredit {
		next.CurrentBalance = prev.CurrentBalance.Add(amount)
		next.TotalInflows = prev.TotalInflows.Add(amount)
		next.TotalOutflows = prev.TotalOutflows
		if sameDay {
			next.DailyInflows = prev.DailyInflows.Add(amount)
			next.DailyOutflows = prev.DailyOutflows
		} else {
			next.DailyInflows = amount
			next.DailyOutflows = decimal.Zero
		}
	} else {
		next.CurrentBalance = prev.CurrentBalance.Sub(amount)
		next.TotalOutflows = prev.TotalOutflows.Add(amount)
		next.TotalInflows = prev.TotalInflows
		if sameDay {
			next.DailyOutflows = prev.DailyOutflows.Add(amount)
			next.DailyInflows = prev.DailyInflows
		} else {
			next.DailyOutflows = amount
			next.DailyInflows = decimal.Zero
		}
	}

	next.TotalFunded = prev.TotalFunded
	if sameDay {
		next.DailyFunding = prev.DailyFunding
	} else {
		next.DailyFunding = decimal.Zero
	}

	if next.CurrentBalance.IsNegative() {
		magnitude := next.CurrentBalance.Neg()
		next.TotalFunded = next.TotalFunded.Add(magnitude)
		next.DailyFunding = next.DailyFunding.Add(magnitude)
		next.CurrentBalance = decimal.Zero
	}

	ledger.Append(next)
	return nil
}
