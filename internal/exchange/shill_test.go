package exchange

import (
	"testing"
	"time"

	"github.com/0lnetwork/graphwarehouse/internal/model"
	"github.com/shopspring/decimal"
)

func sellOrder(user, accepter int64, amount, price float64, createdAt, filledAt time.Time) model.ExchangeOrder {
	return model.ExchangeOrder{
		User:      user,
		Accepter:  accepter,
		OrderType: model.Sell,
		Amount:    decimal.NewFromFloat(amount),
		Price:     decimal.NewFromFloat(price),
		CreatedAt: createdAt,
		FilledAt:  filledAt,
	}
}

func buyOrder(user, accepter int64, amount, price float64, createdAt, filledAt time.Time) model.ExchangeOrder {
	return model.ExchangeOrder{
		User:      user,
		Accepter:  accepter,
		OrderType: model.Buy,
		Amount:    decimal.NewFromFloat(amount),
		Price:     decimal.NewFromFloat(price),
		CreatedAt: createdAt,
		FilledAt:  filledAt,
	}
}

// TestShillSellDetectedWhenCheaperSmallerOfferOpen is scenario S3: a Sell
// order's accepter is flagged as shill-up when a smaller-or-equal-sized
// Sell offer is open at a strictly lower price.
func TestShillSellDetectedWhenCheaperSmallerOfferOpen(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	orders := []model.ExchangeOrder{
		// Opens before t0 and fills after the order under test, so it is
		// "open" at the instant the other order fills.
		sellOrder(10, 11, 5, 8, t0.Add(-time.Hour), t0.Add(time.Hour)),
		sellOrder(20, 21, 10, 12, t0.Add(-time.Hour), t0),
	}

	EnrichShillDetection(orders)

	var under model.ExchangeOrder
	for _, o := range orders {
		if o.User == 20 {
			under = o
		}
	}
	if !under.AccepterShillUp {
		t.Error("expected accepter_shill_up=true for the under-test sell order")
	}
	if under.ShillBid == nil || !*under.ShillBid {
		t.Error("expected ShillBid convenience flag to be set true")
	}
}

func TestShillBuyDownDetectedWhenHigherSmallerOfferOpen(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	orders := []model.ExchangeOrder{
		buyOrder(10, 11, 5, 20, t0.Add(-time.Hour), t0.Add(time.Hour)),
		buyOrder(20, 21, 10, 12, t0.Add(-time.Hour), t0),
	}

	EnrichShillDetection(orders)

	var under model.ExchangeOrder
	for _, o := range orders {
		if o.User == 20 {
			under = o
		}
	}
	if !under.AccepterShillDown {
		t.Error("expected accepter_shill_down=true when a smaller offer is open at a higher price")
	}
}

func TestShillNotFlaggedWithNoCompetingOffers(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	orders := []model.ExchangeOrder{
		sellOrder(1, 2, 10, 12, t0.Add(-time.Minute), t0),
	}

	EnrichShillDetection(orders)

	if orders[0].AccepterShillUp || orders[0].AccepterShillDown {
		t.Error("expected no shill flags with a single isolated order")
	}
}
