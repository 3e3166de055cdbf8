package exchange

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

func TestParseOrdersFileDecodesDecimalAndTimestampFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	contents := `[
		{"user": 1, "orderType": "Buy", "amount": "10.5", "price": "1.25",
		 "created_at": "2024-03-02T00:00:00Z", "filled_at": "2024-03-02T01:00:00Z", "accepter": 2},
		{"user": 2, "orderType": "Sell", "amount": "5", "price": "1.30",
		 "created_at": "2024-03-06T00:00:00Z", "filled_at": "2024-03-06T01:00:00Z", "accepter": 3}
	]`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	orders, err := ParseOrdersFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(orders))
	}
	if orders[0].OrderType != model.Buy || !orders[0].Amount.Equal(mustDecimal("10.5")) {
		t.Errorf("got %+v, want Buy/10.5", orders[0])
	}
	if orders[1].OrderType != model.Sell || orders[1].Accepter != 3 {
		t.Errorf("got %+v, want Sell/accepter=3", orders[1])
	}
}

func TestParseOrdersFileRejectsBadDecimal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	contents := `[{"user": 1, "orderType": "Buy", "amount": "not-a-number", "price": "1",
		"created_at": "2024-03-02T00:00:00Z", "filled_at": "2024-03-02T01:00:00Z", "accepter": 2}]`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ParseOrdersFile(path); err == nil {
		t.Error("expected an error for an unparsable amount")
	}
}
