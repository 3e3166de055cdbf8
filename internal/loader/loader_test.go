package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/0lnetwork/graphwarehouse/internal/graph"
	"github.com/0lnetwork/graphwarehouse/internal/model"
)

type fakeStore struct {
	accountCalls     int
	txCalls          int
	snapshotCalls    int
	failTxOnBatch    int
	failAcctOnBatch  int
	txCallBatches    [][]model.TransactionRecord
	acctCallBatches  [][]model.AccountStateRecord
}

func (f *fakeStore) UpsertAccounts(ctx context.Context, records []model.AccountStateRecord) (graph.AccountBatchCounters, error) {
	f.accountCalls++
	f.acctCallBatches = append(f.acctCallBatches, records)
	if f.failAcctOnBatch == f.accountCalls {
		return graph.AccountBatchCounters{}, errors.New("boom")
	}
	return graph.AccountBatchCounters{UniqueAccounts: len(records), CreatedAccounts: len(records)}, nil
}

func (f *fakeStore) UpsertTransactions(ctx context.Context, records []model.TransactionRecord) (graph.TxBatchCounters, error) {
	f.txCalls++
	f.txCallBatches = append(f.txCallBatches, records)
	if f.failTxOnBatch == f.txCalls {
		return graph.TxBatchCounters{}, errors.New("boom")
	}
	return graph.TxBatchCounters{CreatedTx: len(records)}, nil
}

func (f *fakeStore) UpsertSnapshots(ctx context.Context, records []model.AccountStateRecord) error {
	f.snapshotCalls++
	return nil
}

type fakeQueue struct {
	completed map[uint64]bool
	claims    []uint64
	marks     []uint64
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{completed: make(map[uint64]bool)}
}

func (f *fakeQueue) IsBatchComplete(ctx context.Context, archiveID string, batch uint64) (*bool, error) {
	v, ok := f.completed[batch]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (f *fakeQueue) UpdateTask(ctx context.Context, archiveID string, batch uint64, completed bool) (string, error) {
	if completed {
		f.marks = append(f.marks, batch)
	} else {
		f.claims = append(f.claims, batch)
	}
	f.completed[batch] = completed
	return archiveID, nil
}

func TestLoadTransactionsEmptyMarksBatchZeroComplete(t *testing.T) {
	store := &fakeStore{}
	q := newFakeQueue()
	l := &Loader{store: store, q: q}

	counters, err := l.LoadTransactions(context.Background(), "arch1", nil, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counters != (Counters{}) {
		t.Errorf("got %+v, want zero counters", counters)
	}
	if !q.completed[0] {
		t.Error("expected batch 0 marked complete")
	}
}

func TestLoadTransactionsSkipsAlreadyCompleteBatch(t *testing.T) {
	store := &fakeStore{}
	q := newFakeQueue()
	q.completed[0] = true
	l := &Loader{store: store, q: q}

	records := make([]model.TransactionRecord, 3)
	counters, err := l.LoadTransactions(context.Background(), "arch1", records, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.txCalls != 0 {
		t.Errorf("expected no upsert call for a completed batch, got %d", store.txCalls)
	}
	if counters.CreatedTx != 0 {
		t.Errorf("expected zero CreatedTx, got %d", counters.CreatedTx)
	}
}

func TestLoadTransactionsClaimsUnknownBatchThenProcesses(t *testing.T) {
	store := &fakeStore{}
	q := newFakeQueue()
	l := &Loader{store: store, q: q}

	records := make([]model.TransactionRecord, 3)
	counters, err := l.LoadTransactions(context.Background(), "arch1", records, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.claims) != 1 || q.claims[0] != 0 {
		t.Errorf("expected batch 0 claimed, got %v", q.claims)
	}
	if counters.CreatedTx != 3 {
		t.Errorf("got CreatedTx=%d, want 3", counters.CreatedTx)
	}
	if !q.completed[0] {
		t.Error("expected batch 0 marked complete after success")
	}
}

func TestLoadTransactionsLogsTransportErrorAndContinues(t *testing.T) {
	var loggedArchive string
	var loggedBatch uint64
	orig := logBatchTransportError
	logBatchTransportError = func(archiveID string, batch uint64, err error) {
		loggedArchive = archiveID
		loggedBatch = batch
	}
	defer func() { logBatchTransportError = orig }()

	store := &fakeStore{failTxOnBatch: 1}
	q := newFakeQueue()
	l := &Loader{store: store, q: q}

	records := make([]model.TransactionRecord, 2)
	counters, err := l.LoadTransactions(context.Background(), "arch1", records, 10)
	if err != nil {
		t.Fatalf("unexpected error, loader should log and continue: %v", err)
	}
	if loggedArchive != "arch1" || loggedBatch != 0 {
		t.Errorf("expected transport error logged for arch1/batch0, got %s/%d", loggedArchive, loggedBatch)
	}
	if counters.CreatedTx != 0 {
		t.Errorf("expected zero CreatedTx after failed batch, got %d", counters.CreatedTx)
	}
	if q.completed[0] {
		t.Error("a failed batch must not be marked complete")
	}
}

func TestLoadAccountsAggregatesCountersAcrossBatches(t *testing.T) {
	store := &fakeStore{}
	q := newFakeQueue()
	l := &Loader{store: store, q: q}

	records := make([]model.AccountStateRecord, 5)
	counters, err := l.LoadAccounts(context.Background(), "arch1", records, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.accountCalls != 3 {
		t.Errorf("expected 3 chunked calls for 5 records at size 2, got %d", store.accountCalls)
	}
	if counters.UniqueAccounts != 5 || counters.CreatedAccounts != 5 {
		t.Errorf("got %+v, want 5/5", counters)
	}
	if len(q.marks) != 3 {
		t.Errorf("expected 3 batches marked complete, got %d", len(q.marks))
	}
}
