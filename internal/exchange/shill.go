package exchange

import (
	"sort"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

// EnrichShillDetection sorts orders ascending by FilledAt and assigns
// AccepterShillUp / AccepterShillDown in place from a competing-offers
// count: for each order, the set of same-order-type orders still open
// (filled strictly after, created at or before this order's fill) is
// examined for size and price relative to the current order.
func EnrichShillDetection(orders []model.ExchangeOrder) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].FilledAt.Before(orders[j].FilledAt)
	})

	for i := range orders {
		cur := &orders[i]
		withinAmount, withinAmountLowerPrice := competingOffers(orders, *cur)

		switch cur.OrderType {
		case model.Buy:
			cur.AccepterShillDown = (withinAmount - withinAmountLowerPrice) > 0
		case model.Sell:
			cur.AccepterShillUp = withinAmountLowerPrice > 0
		}
		cur.ComputeShillBid()
	}
}

// competingOffers counts, among same-order-type orders open at the instant
// cur fills, those with amount <= cur.Amount ("within_amount") and the
// subset of those also priced <= cur.Price ("within_amount_lower_price").
func competingOffers(all []model.ExchangeOrder, cur model.ExchangeOrder) (withinAmount, withinAmountLowerPrice int) {
	for _, o := range all {
		if o.OrderType != cur.OrderType {
			continue
		}
		if !o.FilledAt.After(cur.FilledAt) {
			continue
		}
		if o.CreatedAt.After(cur.FilledAt) {
			continue
		}
		if o.Amount.Cmp(cur.Amount) > 0 {
			continue
		}
		withinAmount++
		if o.Price.Cmp(cur.Price) <= 0 {
			withinAmountLowerPrice++
		}
	}
	return withinAmount, withinAmountLowerPrice
}
