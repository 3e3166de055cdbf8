package metrics

import "testing"

func TestDisabledMetricsRecordMethodsAreNoOps(t *testing.T) {
	m := New(Config{Enabled: false})

	m.RecordArchiveScanned("transaction")
	m.RecordRecordsExtracted("snapshot", 10)
	m.RecordBatchCompleted(true)
	m.RecordError("parse error")
	m.SetActiveWorkers(4)

	if m.IsEnabled() {
		t.Error("expected disabled metrics instance")
	}
	if err := m.StartServer(":0"); err != nil {
		t.Errorf("disabled StartServer should return nil immediately, got %v", err)
	}
}

func TestEnabledMetricsRegistersCollectors(t *testing.T) {
	m := New(Config{Enabled: true})

	if !m.IsEnabled() {
		t.Fatal("expected enabled metrics instance")
	}
	m.RecordArchiveScanned("transaction")
	m.RecordBatchCompleted(false)

	if m.Handler() == nil {
		t.Error("expected a non-nil metrics handler")
	}
}

func TestApplyDefaultsSetsAddress(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Address != ":9090" {
		t.Errorf("got %q, want :9090", cfg.Address)
	}
}
