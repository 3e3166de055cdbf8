package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

// graphReader is the subset of *graph.Store the matching engine's queries
// need.
type graphReader interface {
	RunRead(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
}

// GraphSource is a Source backed by a live graph store, issuing the
// deposit and funding-ceiling queries as parameterized Cypher.
type GraphSource struct {
	store graphReader
}

// NewGraphSource constructs a GraphSource.
func NewGraphSource(store graphReader) *GraphSource {
	return &GraphSource{store: store}
}

const depositsCypher = `
MATCH (u:Account)-[tx:Tx]->(onboard:Account {address: $exchange_address})
WHERE tx.block_datetime > datetime($start) AND tx.block_datetime < datetime($end)
WITH u, SUM(tx.amount) AS total_tx_amount
ORDER BY total_tx_amount DESCENDING
RETURN u.address AS account, toFloat(total_tx_amount) AS deposited
LIMIT $limit
`

// Deposits returns the top-`limit` addresses by cumulative transfer
// amount into exchangeAddress within (start, end).
func (g *GraphSource) Deposits(ctx context.Context, exchangeAddress model.Address, start, end time.Time, limit int) ([]Deposit, error) {
	rows, err := g.store.RunRead(ctx, depositsCypher, map[string]any{
		"exchange_address": exchangeAddress.String(),
		"start":            start,
		"end":              end,
		"limit":            int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("matching: query deposits: %w", err)
	}

	out := make([]Deposit, 0, len(rows))
	for _, row := range rows {
		addrStr, _ := row["account"].(string)
		addr, err := model.ParseAddress(addrStr)
		if err != nil {
			continue
		}
		deposited, _ := row["deposited"].(float64)
		out = append(out, Deposit{Address: addr, Deposited: deposited})
	}
	return out, nil
}

const exchangeUsersCypher = `
MATCH (e:SwapAccount)-[d:DailyLedger]-(ul:UserLedger)
WHERE d.date > datetime($start) AND d.date < datetime($end)
WITH e.swap_id AS user_id, toFloat(max(ul.total_funded)) AS funded
RETURN user_id, funded
ORDER BY funded DESC
LIMIT $limit
`

// ExchangeUsers returns the top-`topN` exchange users by their maximum
// observed total_funded within (start, end).
func (g *GraphSource) ExchangeUsers(ctx context.Context, start, end time.Time, topN int) ([]MinFunding, error) {
	rows, err := g.store.RunRead(ctx, exchangeUsersCypher, map[string]any{
		"start": start,
		"end":   end,
		"limit": int64(topN),
	})
	if err != nil {
		return nil, fmt.Errorf("matching: query exchange users: %w", err)
	}

	out := make([]MinFunding, 0, len(rows))
	for _, row := range rows {
		var userID int64
		switch v := row["user_id"].(type) {
		case int64:
			userID = v
		case int:
			userID = int64(v)
		}
		funded, _ := row["funded"].(float64)
		out = append(out, MinFunding{UserID: userID, Funded: funded})
	}
	return out, nil
}
