package onramp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "onramp.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestParseFileLenientHexAndSkipsBadAddress(t *testing.T) {
	path := writeTempFile(t, `[
		{"user_id": 189, "onramp_address": "01F3B9C815FEB654718DE5D53CD665699A2B80951B696939E2D9EC27D0126BAD"},
		{"user_id": 42, "onramp_address": "not-hex"}
	]`)

	entries, err := ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (unparsable address dropped)", len(entries))
	}
	if entries[0].UserID != 189 {
		t.Errorf("got user_id=%d, want 189", entries[0].UserID)
	}
}

type fakeLinkStore struct {
	calls [][]model.OnRampLink
}

func (f *fakeLinkStore) UpsertOnRamp(_ context.Context, entries []model.OnRampLink) (int, error) {
	f.calls = append(f.calls, entries)
	return len(entries), nil
}

func TestLoaderLoadPassesEntriesThrough(t *testing.T) {
	store := &fakeLinkStore{}
	loader := NewLoader(store)

	addr, _ := model.ParseAddress("0x01")
	n, err := loader.Load(context.Background(), []Entry{{Address: addr, UserID: 189}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d, want 1", n)
	}
	if len(store.calls) != 1 || store.calls[0][0].UserID != 189 {
		t.Errorf("unexpected store calls: %+v", store.calls)
	}
}

func TestLoaderLoadEmptySkipsStore(t *testing.T) {
	store := &fakeLinkStore{}
	loader := NewLoader(store)

	n, err := loader.Load(context.Background(), nil)
	if err != nil || n != 0 {
		t.Fatalf("got (%d, %v), want (0, nil)", n, err)
	}
	if len(store.calls) != 0 {
		t.Errorf("expected no store calls, got %d", len(store.calls))
	}
}
