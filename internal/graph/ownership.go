package graph

import (
	"context"
	"fmt"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

const upsertOwnersCypher = `
UNWIND $rows AS row
MATCH (a:Account {address: row.address})
MERGE (own:Owner {alias: row.owner})
MERGE (own)-[rel:Owns]->(a)
ON CREATE SET rel.created_at = datetime(), rel.address_note = row.address_note
ON MATCH SET rel.address_note = row.address_note
RETURN count(rel) AS touched
`

// UpsertOwners MERGEs an Owner node per unique alias and an Owns edge to
// each named Account. Entries whose Account does not exist are silently
// dropped by the MATCH and not counted.
func (s *Store) UpsertOwners(ctx context.Context, entries []model.OwnerLink) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	rows := make([]map[string]any, len(entries))
	for i, e := range entries {
		rows[i] = map[string]any{
			"address":      e.Address.String(),
			"owner":        e.Owner,
			"address_note": e.AddressNote,
		}
	}
	summary, err := s.Run(ctx, upsertOwnersCypher, map[string]any{"rows": rows})
	if err != nil {
		return 0, fmt.Errorf("graph: upsert owners: %w", err)
	}
	return summary.Counters().RelationshipsCreated(), nil
}

const upsertOnRampCypher = `
UNWIND $rows AS row
MATCH (id:SwapAccount {swap_id: row.user_id})
MATCH (a:Account {address: row.address})
MERGE (a)-[rel:OnRamp]->(id)
ON CREATE SET rel.created_at = datetime()
RETURN count(rel) AS touched
`

// UpsertOnRamp MERGEs an OnRamp edge from each onboarding Account to its
// exchange SwapAccount. Entries whose SwapAccount or Account does not yet
// exist are silently dropped by the MATCH clauses and not counted.
func (s *Store) UpsertOnRamp(ctx context.Context, entries []model.OnRampLink) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	rows := make([]map[string]any, len(entries))
	for i, e := range entries {
		rows[i] = map[string]any{
			"user_id": e.UserID,
			"address": e.Address.String(),
		}
	}
	summary, err := s.Run(ctx, upsertOnRampCypher, map[string]any{"rows": rows})
	if err != nil {
		return 0, fmt.Errorf("graph: upsert onramp links: %w", err)
	}
	return summary.Counters().RelationshipsCreated(), nil
}
