package graph

import (
	"testing"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

func TestRenderEntryFunctionFlattensAddressFields(t *testing.T) {
	to := model.Address{0x0a}
	ef := &model.EntryFunctionArgs{
		Module: "ol_account",
		Func:   "transfer",
		Fields: map[string]any{"to": to, "amount": uint64(10)},
	}
	props := renderEntryFunction(ef)
	if props["module"] != "ol_account" || props["func"] != "transfer" {
		t.Fatalf("unexpected header fields: %+v", props)
	}
	if props["to"] != to.String() {
		t.Errorf("to = %v, want %s", props["to"], to.String())
	}
	if props["amount"] != uint64(10) {
		t.Errorf("amount = %v, want 10", props["amount"])
	}
}

func TestRenderEntryFunctionNilYieldsEmptyMap(t *testing.T) {
	props := renderEntryFunction(nil)
	if len(props) != 0 {
		t.Errorf("expected empty map for nil entry function, got %+v", props)
	}
}

func TestHashHexRendersLowercasePrefixed(t *testing.T) {
	var h [32]byte
	h[31] = 0xff
	got := hashHex(h)
	// 32 bytes = 64 hex chars + "0x"
	if len(got) != 66 {
		t.Fatalf("hashHex length = %d, want 66", len(got))
	}
	if got[len(got)-2:] != "ff" {
		t.Errorf("hashHex tail = %q, want ff", got[len(got)-2:])
	}
}
