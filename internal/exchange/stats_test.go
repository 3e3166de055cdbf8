package exchange

import (
	"context"
	"testing"
)

type fakeStatsReader struct {
	tradesCount int64
	chunks      map[int64][]map[string]any
}

func (f *fakeStatsReader) RunRead(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	if cypher == tradesCountCypher {
		return []map[string]any{{"trades_count": f.tradesCount}}, nil
	}
	skip := params["skip"].(int64)
	batch := skip / rmsStatsBatchSize
	return f.chunks[batch], nil
}

func TestExchangeStatsAggregatesAcrossBatches(t *testing.T) {
	reader := &fakeStatsReader{
		tradesCount: 150,
		chunks: map[int64][]map[string]any{
			0: {{"id": int64(1), "time": "2024-01-01T00:00:00Z", "matching_trades": int64(2), "rms": 4.0}},
			1: {{"id": int64(2), "time": "2024-01-02T00:00:00Z", "matching_trades": int64(1), "rms": 5.0}},
		},
	}

	results, err := ExchangeStats(context.Background(), reader, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}

func TestExchangeStatsZeroTradesReturnsEmpty(t *testing.T) {
	reader := &fakeStatsReader{tradesCount: 0, chunks: map[int64][]map[string]any{}}

	results, err := ExchangeStats(context.Background(), reader, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}
