// Package onramp ingests exchange onboarding JSON files and links each
// onboarding deposit address to the exchange SwapAccount that issued it.
package onramp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

// Entry is one onboarding record: an on-chain address issued to an
// exchange user id during account creation.
type Entry struct {
	Address model.Address
	UserID  int64
}

type rawEntry struct {
	OnrampAddress string `json:"onramp_address"`
	UserID        int64  `json:"user_id"`
}

// ParseFile reads a JSON array of {user_id, onramp_address} objects.
// Address strings are parsed leniently: upper or lower case, with or
// without a leading "0x". Entries whose address does not parse are
// skipped.
func ParseFile(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("onramp: read %s: %w", path, err)
	}

	var records []rawEntry
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("onramp: parse %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		addr, err := model.ParseAddress(r.OnrampAddress)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Address: addr, UserID: r.UserID})
	}
	return entries, nil
}

// linkStore is the narrow graph dependency this package needs, satisfied
// by *graph.Store.
type linkStore interface {
	UpsertOnRamp(ctx context.Context, entries []model.OnRampLink) (int, error)
}

// Loader links onboarding entries to existing SwapAccount nodes.
type Loader struct {
	store linkStore
}

// NewLoader constructs a Loader backed by store.
func NewLoader(store linkStore) *Loader {
	return &Loader{store: store}
}

// Load upserts every parsed entry as an OnRamp edge from the deposit
// Account to its SwapAccount. Entries referencing a SwapAccount or Account
// that does not yet exist are silently ignored by the underlying MATCH.
func (l *Loader) Load(ctx context.Context, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	links := make([]model.OnRampLink, len(entries))
	for i, e := range entries {
		links[i] = model.OnRampLink{Address: e.Address, UserID: e.UserID}
	}
	return l.store.UpsertOnRamp(ctx, links)
}
