package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountSnapshot is a single day's balance-replay state for one swap
// account id. total_inflows, total_outflows, and total_funded are
// monotonically non-decreasing across a ledger's snapshots in timestamp
// order; current_balance is always >= 0 (funding events keep it so).
type AccountSnapshot struct {
	Timestamp       time.Time
	CurrentBalance  decimal.Decimal
	TotalFunded     decimal.Decimal
	TotalInflows    decimal.Decimal
	TotalOutflows   decimal.Decimal
	DailyFunding    decimal.Decimal
	DailyInflows    decimal.Decimal
	DailyOutflows   decimal.Decimal
}

// UserLedger is the ordered mapping of a swap account's per-day snapshots,
// keyed by UTC timestamp of the triggering order.
type UserLedger struct {
	SwapID    int64
	Snapshots []AccountSnapshot // ordered ascending by Timestamp
}

// Latest returns the most recent snapshot at or before t, and whether one
// was found. A timestamp strictly after the latest existing snapshot's
// timestamp is the normal case for sequential replay; a query for t older
// than the latest snapshot indicates a monotonicity violation upstream.
func (l *UserLedger) Latest() (AccountSnapshot, bool) {
	if len(l.Snapshots) == 0 {
		return AccountSnapshot{}, false
	}
	return l.Snapshots[len(l.Snapshots)-1], true
}

// Append adds a snapshot to the end of the ordered list.
func (l *UserLedger) Append(s AccountSnapshot) {
	l.Snapshots = append(l.Snapshots, s)
}

// WorkQueueEntry is a single (archive_id, batch_index) completion record.
type WorkQueueEntry struct {
	ArchiveID  string
	BatchIndex uint64
	Completed  bool
}
