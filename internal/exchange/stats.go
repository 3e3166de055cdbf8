package exchange

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const rmsStatsBatchSize = 100

// RMSResult is one trade's competing-trades RMS summary over the prior
// hour, as returned by ExchangeStats.
type RMSResult struct {
	ID             int64
	FilledAt       string
	MatchingTrades int64
	RMS            float64
}

// statsReader is the subset of *graph.Store the stats query needs.
type statsReader interface {
	RunRead(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
}

const tradesCountCypher = `
MATCH (:SwapAccount)-[t:Swap]->(:SwapAccount)
RETURN COUNT(DISTINCT t) AS trades_count
`

const rmsChunkCypher = `
MATCH (from_user:SwapAccount)-[t:Swap]->(to_accepter:SwapAccount)
WITH t, from_user, to_accepter
ORDER BY t.filled_at
SKIP $skip LIMIT $limit
WITH DISTINCT t AS txs, from_user, to_accepter, t.filled_at AS current_time
MATCH (from_user2:SwapAccount)-[other:Swap]->(to_accepter2:SwapAccount)
WHERE datetime(other.filled_at) >= datetime(current_time) - duration({hours: 1})
  AND datetime(other.filled_at) < datetime(current_time)
  AND (from_user2 <> from_user OR to_accepter2 <> to_accepter)
RETURN id(txs) AS id, txs.filled_at AS time, COUNT(other) AS matching_trades, sqrt(avg(other.price * other.price)) AS rms
`

// ExchangeStats computes a per-trade RMS summary for every Swap edge in
// the graph, fanning the work out across threads concurrent batches of
// rmsStatsBatchSize trades each. threads <= 0 defaults to the number of
// available CPUs, mirroring the source's available_parallelism fallback.
func ExchangeStats(ctx context.Context, store statsReader, threads int) ([]RMSResult, error) {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	n, err := tradesCount(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("exchange: stats trades count: %w", err)
	}

	batches := int64(1)
	if n > rmsStatsBatchSize {
		batches = n/rmsStatsBatchSize + 1
	}

	results := make([][]RMSResult, batches)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for b := int64(0); b < batches; b++ {
		b := b
		g.Go(func() error {
			chunk, err := rmsStatsChunk(gctx, store, b)
			if err != nil {
				return fmt.Errorf("exchange: stats chunk %d: %w", b, err)
			}
			results[b] = chunk
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]RMSResult, 0, int(n))
	for _, chunk := range results {
		out = append(out, chunk...)
	}
	return out, nil
}

func tradesCount(ctx context.Context, store statsReader) (int64, error) {
	rows, err := store.RunRead(ctx, tradesCountCypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	switch v := rows[0]["trades_count"].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, nil
	}
}

func rmsStatsChunk(ctx context.Context, store statsReader, batchSequence int64) ([]RMSResult, error) {
	rows, err := store.RunRead(ctx, rmsChunkCypher, map[string]any{
		"skip":  rmsStatsBatchSize * batchSequence,
		"limit": int64(rmsStatsBatchSize),
	})
	if err != nil {
		return nil, err
	}

	out := make([]RMSResult, 0, len(rows))
	for _, row := range rows {
		res := RMSResult{}
		switch id := row["id"].(type) {
		case int64:
			res.ID = id
		case int:
			res.ID = int64(id)
		}
		if t, ok := row["time"].(string); ok {
			res.FilledAt = t
		}
		switch mt := row["matching_trades"].(type) {
		case int64:
			res.MatchingTrades = mt
		case int:
			res.MatchingTrades = int64(mt)
		}
		if rms, ok := row["rms"].(float64); ok {
			res.RMS = rms
		}
		out = append(out, res)
	}
	return out, nil
}
