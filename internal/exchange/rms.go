// Package exchange implements the Exchange Order Loader & Analytics (C7):
// RMS price enrichment, competing-offers shill detection, sequential
// balance replay, and the batch loader and stats queries that sit on top
// of them.
package exchange

import (
	"math"
	"sort"
	"time"

	"github.com/0lnetwork/graphwarehouse/internal/model"
	"github.com/shopspring/decimal"
)

const (
	windowHour    = time.Hour
	window24Hours = 24 * time.Hour
)

// EnrichRMS sorts orders ascending by FilledAt and assigns RMSHour,
// RMS24Hour, PriceVsRMSHour, and PriceVsRMS24Hour in place using two FIFO
// windows of the given widths, excluding window members that share either
// counterparty with the current order.
func EnrichRMS(orders []model.ExchangeOrder) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].FilledAt.Before(orders[j].FilledAt)
	})

	var hourWindow, dayWindow []model.ExchangeOrder
	for i := range orders {
		cur := &orders[i]

		hourWindow = evict(hourWindow, cur.FilledAt, windowHour)
		dayWindow = evict(dayWindow, cur.FilledAt, window24Hours)

		cur.RMSHour = rmsExcluding(hourWindow, *cur)
		cur.RMS24Hour = rmsExcluding(dayWindow, *cur)
		cur.PriceVsRMSHour = priceVsRMS(cur.Price, cur.RMSHour)
		cur.PriceVsRMS24Hour = priceVsRMS(cur.Price, cur.RMS24Hour)

		hourWindow = append(hourWindow, *cur)
		dayWindow = append(dayWindow, *cur)
	}
}

// evict drops every window member whose FilledAt is older than width
// relative to asOf.
func evict(window []model.ExchangeOrder, asOf time.Time, width time.Duration) []model.ExchangeOrder {
	cutoff := asOf.Add(-width)
	i := 0
	for _, o := range window {
		if o.FilledAt.Before(cutoff) {
			continue
		}
		window[i] = o
		i++
	}
	return window[:i]
}

// rmsExcluding computes sqrt(mean(price^2)) over window members whose
// User and Accepter both differ, role-for-role, from cur's; zero members
// yields 0.0. Only same-role fields are compared (user-to-user,
// accepter-to-accepter) — a swap id that plays both roles across
// different orders is not excluded on that basis alone.
func rmsExcluding(window []model.ExchangeOrder, cur model.ExchangeOrder) float64 {
	var sumSquares float64
	var n int
	for _, o := range window {
		if o.User == cur.User || o.Accepter == cur.Accepter {
			continue
		}
		p, _ := o.Price.Float64()
		sumSquares += p * p
		n++
	}
	if n == 0 {
		return 0.0
	}
	return math.Sqrt(sumSquares / float64(n))
}

// priceVsRMS divides price by rms, returning 0.0 when rms is not positive.
func priceVsRMS(price decimal.Decimal, rms float64) float64 {
	if rms <= 0 {
		return 0.0
	}
	p, _ := price.Float64()
	return p / rms
}
