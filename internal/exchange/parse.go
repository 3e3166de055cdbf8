package exchange

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/0lnetwork/graphwarehouse/internal/model"
	"github.com/shopspring/decimal"
)

type rawOrder struct {
	User      int64  `json:"user"`
	OrderType string `json:"orderType"`
	Amount    string `json:"amount"`
	Price     string `json:"price"`
	CreatedAt string `json:"created_at"`
	FilledAt  string `json:"filled_at"`
	Accepter  int64  `json:"accepter"`
}

// ParseOrdersFile reads a JSON array of
// {user, orderType, amount, price, created_at, filled_at, accepter}
// objects, where amount and price are decimal strings and the timestamps
// are RFC3339. A record that fails to parse is an error for the whole
// file: unlike the enrichment file formats, a malformed order book entry
// usually signals a schema mismatch worth failing fast on.
func ParseOrdersFile(path string) ([]model.ExchangeOrder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("exchange: read %s: %w", path, err)
	}

	var records []rawOrder
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("exchange: parse %s: %w", path, err)
	}

	orders := make([]model.ExchangeOrder, len(records))
	for i, r := range records {
		orderType := model.Buy
		if r.OrderType == "Sell" {
			orderType = model.Sell
		}
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("exchange: parse %s: order %d amount %q: %w", path, i, r.Amount, err)
		}
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return nil, fmt.Errorf("exchange: parse %s: order %d price %q: %w", path, i, r.Price, err)
		}
		createdAt, err := time.Parse(time.RFC3339, r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("exchange: parse %s: order %d created_at %q: %w", path, i, r.CreatedAt, err)
		}
		filledAt, err := time.Parse(time.RFC3339, r.FilledAt)
		if err != nil {
			return nil, fmt.Errorf("exchange: parse %s: order %d filled_at %q: %w", path, i, r.FilledAt, err)
		}
		orders[i] = model.ExchangeOrder{
			User:      r.User,
			Accepter:  r.Accepter,
			OrderType: orderType,
			Amount:    amount,
			Price:     price,
			CreatedAt: createdAt,
			FilledAt:  filledAt,
		}
	}
	return orders, nil
}
