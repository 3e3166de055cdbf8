package exchange

import (
	"math"
	"testing"
	"time"

	"github.com/0lnetwork/graphwarehouse/internal/model"
	"github.com/shopspring/decimal"
)

func order(user, accepter int64, price float64, filledAt time.Time) model.ExchangeOrder {
	return model.ExchangeOrder{
		User:      user,
		Accepter:  accepter,
		OrderType: model.Buy,
		Amount:    decimal.NewFromFloat(1),
		Price:     decimal.NewFromFloat(price),
		CreatedAt: filledAt,
		FilledAt:  filledAt,
	}
}

func TestEnrichRMSSingleOrderExcludesSelf(t *testing.T) {
	base := time.Date(2024, 5, 5, 12, 0, 0, 0, time.UTC)
	orders := []model.ExchangeOrder{order(1, 2, 10, base)}

	EnrichRMS(orders)

	if orders[0].RMSHour != 0 || orders[0].RMS24Hour != 0 {
		t.Errorf("expected zero RMS with no other window members, got hour=%v day=%v", orders[0].RMSHour, orders[0].RMS24Hour)
	}
	if orders[0].PriceVsRMSHour != 0 || orders[0].PriceVsRMS24Hour != 0 {
		t.Errorf("expected zero price_vs_rms with zero RMS")
	}
}

func TestEnrichRMSExcludesSameCounterparty(t *testing.T) {
	base := time.Date(2024, 5, 5, 12, 0, 0, 0, time.UTC)
	orders := []model.ExchangeOrder{
		order(1, 2, 10, base),
		order(1, 2, 20, base.Add(10*time.Minute)),
	}

	EnrichRMS(orders)

	if orders[1].RMSHour != 0 {
		t.Errorf("expected zero RMS when only window member shares a counterparty, got %v", orders[1].RMSHour)
	}
}

func TestEnrichRMSExclusionIsPerRoleNotCrossRole(t *testing.T) {
	base := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	orders := []model.ExchangeOrder{
		order(1, 2, 10, base),                      // A
		order(2, 3, 20, base.Add(10*time.Minute)),  // B: shares no same-role field with A
		order(3, 2, 30, base.Add(20*time.Minute)),  // C: accepter matches A's accepter -> excludes A
		order(3, 9, 40, base.Add(30*time.Minute)),  // D: user matches C's user -> excludes C only
	}

	EnrichRMS(orders)

	b := orders[1]
	if b.RMSHour != 10.0 {
		t.Errorf("got B.rms_hour=%v, want 10.0 (A has no same-role overlap with B)", b.RMSHour)
	}

	c := orders[2]
	if c.RMSHour != 20.0 {
		t.Errorf("got C.rms_hour=%v, want 20.0 (A excluded via shared accepter, B included)", c.RMSHour)
	}

	// D shares a user with C (excluded) but only an accepter/user cross
	// match with B (2 vs 3, no same-role overlap) -- B must still count.
	d := orders[3]
	want := math.Sqrt((10.0*10.0 + 20.0*20.0) / 2)
	if math.Abs(d.RMSHour-want) > 1e-9 {
		t.Errorf("got D.rms_hour=%v, want %v (A and B included, C excluded by shared user)", d.RMSHour, want)
	}
}

func TestEvictDropsOlderThanWidth(t *testing.T) {
	base := time.Date(2024, 5, 5, 12, 0, 0, 0, time.UTC)
	window := []model.ExchangeOrder{
		order(1, 2, 1, base.Add(-2*time.Hour)),
		order(3, 4, 2, base.Add(-30*time.Minute)),
	}

	got := evict(window, base, time.Hour)

	if len(got) != 1 {
		t.Fatalf("got %d members, want 1", len(got))
	}
	if got[0].User != 3 {
		t.Errorf("wrong member retained: %+v", got[0])
	}
}
