package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/0lnetwork/graphwarehouse/internal/graph"
	"github.com/0lnetwork/graphwarehouse/internal/model"
	"github.com/shopspring/decimal"
)

type fakeOrderStore struct {
	calls  int
	seen   [][]model.ExchangeOrder
}

func (f *fakeOrderStore) UpsertExchangeOrders(ctx context.Context, orders []model.ExchangeOrder) (graph.ExchangeBatchCounters, error) {
	f.calls++
	f.seen = append(f.seen, orders)
	return graph.ExchangeBatchCounters{MergedTxCount: len(orders)}, nil
}

func TestLoadOrdersEnrichesAndChunks(t *testing.T) {
	store := &fakeOrderStore{}
	l := &Loader{store: store}

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	orders := []model.ExchangeOrder{
		{User: 1, Accepter: 2, OrderType: model.Buy, Amount: decimal.NewFromInt(1), Price: decimal.NewFromInt(10), CreatedAt: base, FilledAt: base},
		{User: 3, Accepter: 4, OrderType: model.Sell, Amount: decimal.NewFromInt(1), Price: decimal.NewFromInt(11), CreatedAt: base, FilledAt: base.Add(time.Minute)},
		{User: 5, Accepter: 6, OrderType: model.Buy, Amount: decimal.NewFromInt(1), Price: decimal.NewFromInt(12), CreatedAt: base, FilledAt: base.Add(2 * time.Minute)},
	}

	counters, err := l.LoadOrders(context.Background(), orders, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.calls != 2 {
		t.Errorf("expected 2 chunked calls for 3 orders at size 2, got %d", store.calls)
	}
	if counters.MergedTxCount != 3 {
		t.Errorf("got MergedTxCount=%d, want 3", counters.MergedTxCount)
	}
	// ShillBid is computed by EnrichShillDetection, so every order should
	// have had the convenience flag populated by the time it reaches the
	// store.
	for _, chunk := range store.seen {
		for _, o := range chunk {
			if o.ShillBid == nil {
				t.Error("expected ShillBid to be set before upsert")
			}
		}
	}
}
