package graph

import (
	"context"
	"fmt"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

const upsertLedgerCypher = `
UNWIND $rows AS row
MATCH (s:SwapAccount {swap_id: row.swap_id})
MERGE (s)-[d:DailyLedger {date: row.date}]->(l:UserLedger {swap_id: row.swap_id, date: row.date})
ON CREATE SET
  d.created_at = datetime(),
  d.modified_at = datetime(),
  l.current_balance = row.current_balance,
  l.total_funded = row.total_funded,
  l.total_inflows = row.total_inflows,
  l.total_outflows = row.total_outflows,
  l.daily_funding = row.daily_funding,
  l.daily_inflows = row.daily_inflows,
  l.daily_outflows = row.daily_outflows
ON MATCH SET
  d.modified_at = datetime(),
  l.current_balance = row.current_balance,
  l.total_funded = row.total_funded,
  l.total_inflows = row.total_inflows,
  l.total_outflows = row.total_outflows,
  l.daily_funding = row.daily_funding,
  l.daily_inflows = row.daily_inflows,
  l.daily_outflows = row.daily_outflows
RETURN count(d) AS touched
`

// SubmitLedger upserts every snapshot of one user's ledger as a
// SwapAccount-DailyLedger->UserLedger edge triple keyed by date.
func (s *Store) SubmitLedger(ctx context.Context, ledger model.UserLedger) error {
	if len(ledger.Snapshots) == 0 {
		return nil
	}
	rows := make([]map[string]any, len(ledger.Snapshots))
	for i, snap := range ledger.Snapshots {
		cb, _ := snap.CurrentBalance.Float64()
		tf, _ := snap.TotalFunded.Float64()
		ti, _ := snap.TotalInflows.Float64()
		to, _ := snap.TotalOutflows.Float64()
		df, _ := snap.DailyFunding.Float64()
		din, _ := snap.DailyInflows.Float64()
		dout, _ := snap.DailyOutflows.Float64()
		rows[i] = map[string]any{
			"swap_id":         ledger.SwapID,
			"date":            snap.Timestamp.Format("2006-01-02"),
			"current_balance": cb,
			"total_funded":    tf,
			"total_inflows":   ti,
			"total_outflows":  to,
			"daily_funding":   df,
			"daily_inflows":   din,
			"daily_outflows":  dout,
		}
	}
	if _, err := s.Run(ctx, upsertLedgerCypher, map[string]any{"rows": rows}); err != nil {
		return fmt.Errorf("graph: submit ledger for swap_id %d: %w", ledger.SwapID, err)
	}
	return nil
}

// SubmitLedgers iterates every account's ledger, used by the analytics
// pipeline's "submit all" entry point.
func (s *Store) SubmitLedgers(ctx context.Context, ledgers map[int64]*model.UserLedger) error {
	for id, ledger := range ledgers {
		if err := s.SubmitLedger(ctx, *ledger); err != nil {
			return fmt.Errorf("graph: submit ledgers: account %d: %w", id, err)
		}
	}
	return nil
}
