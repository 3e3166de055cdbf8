package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0lnetwork/graphwarehouse/internal/loader"
	"github.com/0lnetwork/graphwarehouse/internal/manifest"
	"github.com/0lnetwork/graphwarehouse/internal/model"
)

func writeManifestFixture(t *testing.T, dir, name string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func newTestScanner() *manifest.Scanner {
	current := func(path string) (*manifest.BundleContent, error) {
		return &manifest.BundleContent{}, nil
	}
	legacy := func(path string) (*manifest.BundleContent, error) {
		return nil, os.ErrInvalid
	}
	return manifest.NewScanner(current, legacy)
}

type fakeSnapExtractor struct {
	records []model.AccountStateRecord
	skipped int
}

func (f *fakeSnapExtractor) ExtractArchive(manifest.ManifestInfo) ([]model.AccountStateRecord, int, error) {
	return f.records, f.skipped, nil
}

type fakeTxExtractor struct {
	records []model.TransactionRecord
}

func (f *fakeTxExtractor) ExtractArchive(manifest.ManifestInfo) ([]model.TransactionRecord, error) {
	return f.records, nil
}

type fakeBatchLoader struct {
	accountCalls int
	txCalls      int
}

func (f *fakeBatchLoader) LoadAccounts(_ context.Context, _ string, records []model.AccountStateRecord, _ int) (loader.Counters, error) {
	f.accountCalls++
	return loader.Counters{UniqueAccounts: len(records), CreatedAccounts: len(records)}, nil
}

func (f *fakeBatchLoader) LoadTransactions(_ context.Context, _ string, records []model.TransactionRecord, _ int) (loader.Counters, error) {
	f.txCalls++
	return loader.Counters{CreatedTx: len(records)}, nil
}

func TestLoadManifestDispatchesSnapshotToLoadAccounts(t *testing.T) {
	root := t.TempDir()
	archiveDir := filepath.Join(root, "archive-1")
	writeManifestFixture(t, archiveDir, "state.manifest")

	scanner := newTestScanner()
	infos, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("got %d infos, want 1", len(infos))
	}

	bl := &fakeBatchLoader{}
	o := &Orchestrator{
		scanner:       scanner,
		loader:        bl,
		snapExtractor: &fakeSnapExtractor{records: make([]model.AccountStateRecord, 3), skipped: 1},
		txExtractor:   &fakeTxExtractor{},
	}

	c, err := o.loadManifest(context.Background(), infos[0], 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Kind != manifest.ContentStateSnapshot {
		t.Errorf("got kind %v, want ContentStateSnapshot", c.Kind)
	}
	if c.AccountsExtracted != 3 || c.AccountsSkipped != 1 {
		t.Errorf("got extracted=%d skipped=%d, want 3/1", c.AccountsExtracted, c.AccountsSkipped)
	}
	if c.UniqueAccounts != 3 {
		t.Errorf("got UniqueAccounts=%d, want 3", c.UniqueAccounts)
	}
	if bl.accountCalls != 1 || bl.txCalls != 0 {
		t.Errorf("expected exactly one LoadAccounts call, got accountCalls=%d txCalls=%d", bl.accountCalls, bl.txCalls)
	}
}

func TestLoadManifestDispatchesTransactionToLoadTransactions(t *testing.T) {
	root := t.TempDir()
	archiveDir := filepath.Join(root, "archive-1")
	writeManifestFixture(t, archiveDir, "transaction.manifest")

	scanner := newTestScanner()
	infos, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	bl := &fakeBatchLoader{}
	o := &Orchestrator{
		scanner:       scanner,
		loader:        bl,
		snapExtractor: &fakeSnapExtractor{},
		txExtractor:   &fakeTxExtractor{records: make([]model.TransactionRecord, 5)},
	}

	c, err := o.loadManifest(context.Background(), infos[0], 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.TxExtracted != 5 || c.CreatedTx != 5 {
		t.Errorf("got TxExtracted=%d CreatedTx=%d, want 5/5", c.TxExtracted, c.CreatedTx)
	}
	if bl.txCalls != 1 || bl.accountCalls != 0 {
		t.Errorf("expected exactly one LoadTransactions call, got accountCalls=%d txCalls=%d", bl.accountCalls, bl.txCalls)
	}
}

func TestLoadManifestEpochEndingIsANoOp(t *testing.T) {
	root := t.TempDir()
	archiveDir := filepath.Join(root, "archive-1")
	writeManifestFixture(t, archiveDir, "epoch_ending.manifest")

	scanner := newTestScanner()
	infos, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	bl := &fakeBatchLoader{}
	o := &Orchestrator{scanner: scanner, loader: bl, snapExtractor: &fakeSnapExtractor{}, txExtractor: &fakeTxExtractor{}}
	c, err := o.loadManifest(context.Background(), infos[0], 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.AccountsExtracted != 0 || c.TxExtracted != 0 {
		t.Errorf("expected a no-op for epoch_ending, got %+v", c)
	}
	if bl.accountCalls != 0 || bl.txCalls != 0 {
		t.Errorf("expected no loader calls for epoch_ending, got accountCalls=%d txCalls=%d", bl.accountCalls, bl.txCalls)
	}
}

func TestCheckReportsUnknownFrameworkVersion(t *testing.T) {
	root := t.TempDir()
	archiveDir := filepath.Join(root, "archive-1")
	writeManifestFixture(t, archiveDir, "state.manifest")

	current := func(path string) (*manifest.BundleContent, error) { return nil, os.ErrInvalid }
	legacy := func(path string) (*manifest.BundleContent, error) { return nil, os.ErrInvalid }
	scanner := manifest.NewScanner(current, legacy)

	o := &Orchestrator{scanner: scanner, loader: &fakeBatchLoader{}}
	_, err := o.Check(context.Background(), archiveDir)
	if err == nil {
		t.Error("expected an error for an undecodable manifest")
	}
}
