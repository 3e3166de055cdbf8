package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType discriminates an ExchangeOrder's side.
type OrderType int

const (
	Buy OrderType = iota
	Sell
)

func (t OrderType) String() string {
	if t == Sell {
		return "Sell"
	}
	return "Buy"
}

// ExchangeOrder is a single fill from the external exchange order book (C7
// input), plus the enrichment fields computed by RMS and shill-detection
// analytics. Enrichment fields default to zero until enrichment runs.
type ExchangeOrder struct {
	User      int64
	Accepter  int64
	OrderType OrderType
	Amount    decimal.Decimal
	Price     decimal.Decimal
	CreatedAt time.Time
	FilledAt  time.Time

	RMSHour          float64
	RMS24Hour        float64
	PriceVsRMSHour   float64
	PriceVsRMS24Hour float64
	AccepterShillUp  bool
	AccepterShillDown bool

	// ShillBid is set once either shill flag has been computed; nil means
	// shill detection has not yet run for this order.
	ShillBid *bool
}

// ComputeShillBid derives the convenience ShillBid flag from the two split
// booleans, matching the source schema's redundant summary field.
func (o *ExchangeOrder) ComputeShillBid() {
	v := o.AccepterShillUp || o.AccepterShillDown
	o.ShillBid = &v
}
