package whitepages

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "whitepages.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestParseFileLenientHexAndSkipsMissingOwner(t *testing.T) {
	path := writeTempFile(t, `[
		{"address": "0X01", "owner": "exchangeA", "address_note": "hot wallet"},
		{"address": "AB", "owner": "exchangeB", "address_note": ""},
		{"address": "02", "owner": ""}
	]`)

	entries, err := ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (missing-owner record dropped)", len(entries))
	}
	if entries[0].Owner != "exchangeA" || entries[0].AddressNote != "hot wallet" {
		t.Errorf("got %+v, want exchangeA/hot wallet", entries[0])
	}
	want, _ := model.ParseAddress("0xab")
	if entries[1].Address != want {
		t.Errorf("got address %v, want %v", entries[1].Address, want)
	}
}

func TestParseFileSkipsUnparsableAddress(t *testing.T) {
	path := writeTempFile(t, `[{"address": "not-hex", "owner": "exchangeA"}]`)

	entries, err := ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

type fakeOwnerStore struct {
	calls [][]model.OwnerLink
}

func (f *fakeOwnerStore) UpsertOwners(_ context.Context, entries []model.OwnerLink) (int, error) {
	f.calls = append(f.calls, entries)
	return len(entries), nil
}

func TestLoaderLoadPassesEntriesThrough(t *testing.T) {
	store := &fakeOwnerStore{}
	loader := NewLoader(store)

	addr, _ := model.ParseAddress("0x01")
	n, err := loader.Load(context.Background(), []Entry{{Address: addr, Owner: "exchangeA"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d, want 1", n)
	}
	if len(store.calls) != 1 || store.calls[0][0].Owner != "exchangeA" {
		t.Errorf("unexpected store calls: %+v", store.calls)
	}
}

func TestLoaderLoadEmptySkipsStore(t *testing.T) {
	store := &fakeOwnerStore{}
	loader := NewLoader(store)

	n, err := loader.Load(context.Background(), nil)
	if err != nil || n != 0 {
		t.Fatalf("got (%d, %v), want (0, nil)", n, err)
	}
	if len(store.calls) != 0 {
		t.Errorf("expected no store calls, got %d", len(store.calls))
	}
}
