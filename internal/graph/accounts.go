package graph

import (
	"context"
	"fmt"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

// AccountBatchCounters aggregates the outcome of one account-node upsert
// batch, matching the loader's required return counters.
type AccountBatchCounters struct {
	UniqueAccounts   int
	CreatedAccounts  int
	ModifiedAccounts int
	UnchangedAccounts int
}

// upsertAccountsCypher captures each row's pre-merge state via an
// OPTIONAL MATCH before the MERGE touches anything, so "unchanged" can be
// judged against the values actually on disk rather than inferred from
// Neo4j's own create/set counters (which count a SET regardless of
// whether it changed the stored value).
const upsertAccountsCypher = `
UNWIND $rows AS row
OPTIONAL MATCH (existing:Account {address: row.address})
WITH row, existing,
  existing IS NULL AS isNew,
  existing IS NOT NULL
    AND existing.version = row.version
    AND existing.balance = row.balance
    AND existing.sequence_num = row.sequence_num AS isUnchanged
MERGE (a:Account {address: row.address})
ON CREATE SET
  a.created_at = datetime(),
  a.modified_at = datetime(),
  a.framework_version = row.framework_version,
  a.version = row.version,
  a.epoch = row.epoch,
  a.timestamp = row.timestamp,
  a.sequence_num = row.sequence_num,
  a.balance = row.balance,
  a.slow_wallet_unlocked = row.slow_wallet_unlocked,
  a.slow_wallet_transferred = row.slow_wallet_transferred,
  a.slow_wallet_acc = row.slow_wallet_acc,
  a.donor_voice_acc = row.donor_voice_acc
ON MATCH SET
  a.modified_at = datetime(),
  a.version = row.version,
  a.epoch = row.epoch,
  a.timestamp = row.timestamp,
  a.sequence_num = row.sequence_num,
  a.balance = row.balance,
  a.slow_wallet_unlocked = row.slow_wallet_unlocked,
  a.slow_wallet_transferred = row.slow_wallet_transferred
RETURN
  count(a) AS touched,
  sum(CASE WHEN isNew THEN 1 ELSE 0 END) AS created,
  sum(CASE WHEN NOT isNew AND NOT isUnchanged THEN 1 ELSE 0 END) AS modified,
  sum(CASE WHEN NOT isNew AND isUnchanged THEN 1 ELSE 0 END) AS unchanged
`

// UpsertAccounts MERGEs every account record keyed by address, the first
// half of the two-round-trip batch contract (accounts before edges).
func (s *Store) UpsertAccounts(ctx context.Context, records []model.AccountStateRecord) (AccountBatchCounters, error) {
	if len(records) == 0 {
		return AccountBatchCounters{}, nil
	}
	rows := make([]map[string]any, len(records))
	for i, rec := range records {
		rows[i] = accountProperties(rec)
	}

	row, err := s.RunWithRecord(ctx, upsertAccountsCypher, map[string]any{"rows": rows})
	if err != nil {
		return AccountBatchCounters{}, fmt.Errorf("graph: upsert accounts: %w", err)
	}

	unique := len(uniqueAddresses(records))
	return AccountBatchCounters{
		UniqueAccounts:    unique,
		CreatedAccounts:   asInt(row["created"]),
		ModifiedAccounts:  asInt(row["modified"]),
		UnchangedAccounts: asInt(row["unchanged"]),
	}, nil
}

// asInt coerces a Neo4j aggregate value (always an int64 for sum() over
// CASE-integer literals) to an int, treating a missing/nil value as zero.
func asInt(v any) int {
	n, _ := v.(int64)
	return int(n)
}

func uniqueAddresses(records []model.AccountStateRecord) map[model.Address]struct{} {
	seen := make(map[model.Address]struct{}, len(records))
	for _, r := range records {
		seen[r.Address] = struct{}{}
	}
	return seen
}
