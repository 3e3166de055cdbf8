// Package whitepages ingests out-of-band owner-identity JSON files and
// links each known owner to the on-chain Account nodes they control.
package whitepages

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/0lnetwork/graphwarehouse/internal/model"
)

// Entry is one whitepages record: an address attributed to an owner alias,
// with an optional free-text note. Records missing an owner or whose
// address fails to parse are dropped during ParseFile rather than failing
// the whole file, matching the source list's best-effort provenance.
type Entry struct {
	Address     model.Address
	Owner       string
	AddressNote string
}

type rawEntry struct {
	Address     string `json:"address"`
	Owner       string `json:"owner"`
	AddressNote string `json:"address_note"`
}

// ParseFile reads a JSON array of {address, owner, address_note} objects.
// Address strings are parsed leniently: upper or lower case, with or
// without a leading "0x". Entries with no owner, or whose address does not
// parse, are skipped.
func ParseFile(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("whitepages: read %s: %w", path, err)
	}

	var records []rawEntry
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("whitepages: parse %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		if r.Owner == "" {
			continue
		}
		addr, err := model.ParseAddress(r.Address)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Address: addr, Owner: r.Owner, AddressNote: r.AddressNote})
	}
	return entries, nil
}

// ownerStore is the narrow graph dependency this package needs, satisfied
// by *graph.Store.
type ownerStore interface {
	UpsertOwners(ctx context.Context, entries []model.OwnerLink) (int, error)
}

// Loader links whitepages entries to existing Account nodes.
type Loader struct {
	store ownerStore
}

// NewLoader constructs a Loader backed by store.
func NewLoader(store ownerStore) *Loader {
	return &Loader{store: store}
}

// Load upserts every parsed entry as an Owner node MERGEd by alias and an
// Owns edge to the matching Account. Entries whose Account does not yet
// exist are silently ignored by the underlying MATCH, per the relaxed
// ordering this enrichment step tolerates (it runs after the main ingest).
func (l *Loader) Load(ctx context.Context, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	links := make([]model.OwnerLink, len(entries))
	for i, e := range entries {
		links[i] = model.OwnerLink{Address: e.Address, Owner: e.Owner, AddressNote: e.AddressNote}
	}
	return l.store.UpsertOwners(ctx, links)
}
