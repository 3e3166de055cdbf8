package graph

import (
	"context"
	"fmt"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

// TxBatchCounters aggregates the outcome of one transaction-edge upsert
// batch.
type TxBatchCounters struct {
	CreatedTx int
}

// upsertSenderAccountsCypher ensures both sender and recipient endpoints
// exist before the edge is created, the "accounts first" ordering
// guarantee within a batch.
const upsertSenderAccountsCypher = `
UNWIND $addresses AS addr
MERGE (a:Account {address: addr})
ON CREATE SET a.created_at = datetime(), a.modified_at = datetime()
`

const upsertTransactionsCypher = `
UNWIND $rows AS row
MATCH (sender:Account {address: row.sender})
MATCH (recipient:Account {address: row.recipient})
MERGE (sender)-[t:Tx {tx_hash: row.tx_hash}]->(recipient)
ON CREATE SET
  t.created_at = datetime(),
  t.modified_at = datetime(),
  t.relation = row.relation,
  t.function = row.function,
  t.epoch = row.epoch,
  t.round = row.round,
  t.block_timestamp = row.block_timestamp,
  t.block_datetime = row.block_datetime,
  t.expiration_timestamp = row.expiration_timestamp,
  t.args = row.args
ON MATCH SET
  t.modified_at = datetime()
RETURN count(t) AS touched
`

// UpsertTransactions MERGEs every transaction record as a Tx-family edge
// keyed by tx_hash. Endpoint accounts are upserted first within the same
// call, satisfying the batch's node-before-edge ordering guarantee.
func (s *Store) UpsertTransactions(ctx context.Context, records []model.TransactionRecord) (TxBatchCounters, error) {
	if len(records) == 0 {
		return TxBatchCounters{}, nil
	}

	endpoints := make(map[string]struct{}, len(records)*2)
	rows := make([]map[string]any, len(records))
	for i, rec := range records {
		endpoints[rec.Sender.String()] = struct{}{}
		endpoints[rec.Recipient().String()] = struct{}{}
		rows[i] = transactionProperties(rec)
	}

	addresses := make([]string, 0, len(endpoints))
	for addr := range endpoints {
		addresses = append(addresses, addr)
	}
	if _, err := s.Run(ctx, upsertSenderAccountsCypher, map[string]any{"addresses": addresses}); err != nil {
		return TxBatchCounters{}, fmt.Errorf("graph: upsert transaction endpoints: %w", err)
	}

	summary, err := s.Run(ctx, upsertTransactionsCypher, map[string]any{"rows": rows})
	if err != nil {
		return TxBatchCounters{}, fmt.Errorf("graph: upsert transactions: %w", err)
	}
	return TxBatchCounters{CreatedTx: summary.Counters().RelationshipsCreated()}, nil
}

// UpsertSnapshots MERGEs account-state-at-version edges keyed by
// (address, version), the C2 snapshot output's upsert shape.
const upsertSnapshotsCypher = `
UNWIND $rows AS row
MATCH (a:Account {address: row.address})
MERGE (a)-[s:State {address: row.address, version: row.version}]->(a)
ON CREATE SET s.created_at = datetime(), s.modified_at = datetime(), s.epoch = row.epoch, s.timestamp = row.timestamp, s.balance = row.balance
ON MATCH SET s.modified_at = datetime(), s.balance = row.balance
RETURN count(s) AS touched
`

// UpsertSnapshots MERGEs each account-state record as a self-loop State
// edge keyed by (address, version), since the snapshot is an account's own
// state at a point in chain history rather than a relation to another
// account.
func (s *Store) UpsertSnapshots(ctx context.Context, records []model.AccountStateRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]map[string]any, len(records))
	for i, rec := range records {
		rows[i] = map[string]any{
			"address":   rec.Address.String(),
			"version":   rec.Version,
			"epoch":     rec.Epoch,
			"timestamp": rec.Timestamp,
			"balance":   rec.Balance,
		}
	}
	if _, err := s.Run(ctx, upsertSnapshotsCypher, map[string]any{"rows": rows}); err != nil {
		return fmt.Errorf("graph: upsert snapshots: %w", err)
	}
	return nil
}
