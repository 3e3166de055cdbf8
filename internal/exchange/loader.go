package exchange

import (
	"context"
	"fmt"

	"github.com/0lnetwork/graphwarehouse/internal/graph"
	"github.com/0lnetwork/graphwarehouse/internal/loader"
	"github.com/0lnetwork/graphwarehouse/internal/model"
)

// orderStore is the subset of *graph.Store the exchange loader needs.
type orderStore interface {
	UpsertExchangeOrders(ctx context.Context, orders []model.ExchangeOrder) (graph.ExchangeBatchCounters, error)
}

// Loader chunks an enriched order stream and upserts it into the graph
// store, following the same fixed-size chunking contract as the batch
// loader (C6) rather than the work queue's per-batch resumability, since
// exchange order ingestion runs as a single bulk pass.
type Loader struct {
	store orderStore
}

// NewLoader constructs a Loader backed by a real graph store.
func NewLoader(store *graph.Store) *Loader {
	return &Loader{store: store}
}

// LoadOrders runs RMS enrichment and shill detection over orders, then
// upserts them in fixed-size chunks, summing merged/ignored counts across
// chunks.
func (l *Loader) LoadOrders(ctx context.Context, orders []model.ExchangeOrder, batchSize int) (graph.ExchangeBatchCounters, error) {
	EnrichRMS(orders)
	EnrichShillDetection(orders)

	var total graph.ExchangeBatchCounters
	for _, chunk := range loader.ChunkSlice(orders, batchSize) {
		counters, err := l.store.UpsertExchangeOrders(ctx, chunk)
		if err != nil {
			return total, fmt.Errorf("exchange: upsert order chunk: %w", err)
		}
		total.MergedTxCount += counters.MergedTxCount
		total.IgnoredTxCount += counters.IgnoredTxCount
	}
	return total, nil
}
