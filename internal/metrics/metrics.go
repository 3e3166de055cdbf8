// Package metrics provides Prometheus metrics for the warehouse builder.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter, gauge, and histogram the warehouse emits.
type Metrics struct {
	ArchivesScanned    *prometheus.CounterVec
	RecordsExtracted   *prometheus.CounterVec
	BatchesCompleted   *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
	NodesCreated       *prometheus.CounterVec
	RelationshipsMade  *prometheus.CounterVec

	ActiveWorkers  prometheus.Gauge
	QueueDepth     prometheus.Gauge
	ArchivesQueued prometheus.Gauge

	BatchDuration   *prometheus.HistogramVec
	ArchiveDuration prometheus.Histogram

	registry *prometheus.Registry
	enabled  bool
}

// Config controls whether metrics collection and the HTTP endpoint are
// active, and which address the endpoint binds.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// ApplyDefaults fills in the metrics endpoint address when unset.
func (c *Config) ApplyDefaults() {
	if c.Address == "" {
		c.Address = ":9090"
	}
}

// New constructs a Metrics instance. When cfg.Enabled is false the
// returned instance's recording methods are no-ops, so callers never need
// to branch on whether metrics are active.
func New(cfg Config) *Metrics {
	cfg.ApplyDefaults()

	m := &Metrics{enabled: cfg.Enabled, registry: prometheus.NewRegistry()}
	if !cfg.Enabled {
		return m
	}

	m.ArchivesScanned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warehouse",
		Name:      "archives_scanned_total",
		Help:      "Total archives discovered by the archive scanner, by content kind.",
	}, []string{"kind"})

	m.RecordsExtracted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warehouse",
		Name:      "records_extracted_total",
		Help:      "Total records produced by an extractor, by component.",
	}, []string{"component"})

	m.BatchesCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warehouse",
		Name:      "batches_completed_total",
		Help:      "Total batches completed by the loader, by status.",
	}, []string{"status"})

	m.ErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warehouse",
		Name:      "errors_total",
		Help:      "Total errors, by taxonomy tag.",
	}, []string{"tag"})

	m.NodesCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warehouse",
		Name:      "nodes_created_total",
		Help:      "Total graph nodes created, by label.",
	}, []string{"label"})

	m.RelationshipsMade = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warehouse",
		Name:      "relationships_created_total",
		Help:      "Total graph relationships created, by type.",
	}, []string{"rel_type"})

	m.ActiveWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "warehouse",
		Name:      "workers_active",
		Help:      "Number of active loader worker goroutines.",
	})

	m.QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "warehouse",
		Name:      "queue_depth",
		Help:      "Number of incomplete work-queue batches.",
	})

	m.ArchivesQueued = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "warehouse",
		Name:      "archives_queued",
		Help:      "Number of archives with at least one incomplete batch.",
	})

	m.BatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "warehouse",
		Name:      "batch_duration_seconds",
		Help:      "Time spent loading one batch of records.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
	}, []string{"component"})

	m.ArchiveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "warehouse",
		Name:      "archive_duration_seconds",
		Help:      "Time spent fully ingesting one archive.",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})

	m.registry.MustRegister(
		m.ArchivesScanned,
		m.RecordsExtracted,
		m.BatchesCompleted,
		m.ErrorsTotal,
		m.NodesCreated,
		m.RelationshipsMade,
		m.ActiveWorkers,
		m.QueueDepth,
		m.ArchivesQueued,
		m.BatchDuration,
		m.ArchiveDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns the Prometheus scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics and /healthz on addr. A disabled Metrics
// returns immediately without binding a listener.
func (m *Metrics) StartServer(addr string) error {
	if !m.enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return http.ListenAndServe(addr, mux)
}

// IsEnabled reports whether metrics collection is active.
func (m *Metrics) IsEnabled() bool {
	return m.enabled
}

// RecordArchiveScanned increments the archive scan counter for kind.
func (m *Metrics) RecordArchiveScanned(kind string) {
	if m.enabled && m.ArchivesScanned != nil {
		m.ArchivesScanned.WithLabelValues(kind).Inc()
	}
}

// RecordRecordsExtracted adds count to the extraction counter for component.
func (m *Metrics) RecordRecordsExtracted(component string, count int) {
	if m.enabled && m.RecordsExtracted != nil {
		m.RecordsExtracted.WithLabelValues(component).Add(float64(count))
	}
}

// RecordBatchCompleted increments the batch counter, success or error.
func (m *Metrics) RecordBatchCompleted(success bool) {
	if !m.enabled || m.BatchesCompleted == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.BatchesCompleted.WithLabelValues(status).Inc()
}

// RecordError increments the error counter for an errtag name.
func (m *Metrics) RecordError(tag string) {
	if m.enabled && m.ErrorsTotal != nil {
		m.ErrorsTotal.WithLabelValues(tag).Inc()
	}
}

// RecordNodesCreated adds count to the nodes-created counter for label.
func (m *Metrics) RecordNodesCreated(label string, count int) {
	if m.enabled && m.NodesCreated != nil {
		m.NodesCreated.WithLabelValues(label).Add(float64(count))
	}
}

// RecordRelationshipsCreated adds count to the relationships-created
// counter for relType.
func (m *Metrics) RecordRelationshipsCreated(relType string, count int) {
	if m.enabled && m.RelationshipsMade != nil {
		m.RelationshipsMade.WithLabelValues(relType).Add(float64(count))
	}
}

// SetActiveWorkers sets the active-worker gauge.
func (m *Metrics) SetActiveWorkers(count int) {
	if m.enabled && m.ActiveWorkers != nil {
		m.ActiveWorkers.Set(float64(count))
	}
}

// SetQueueDepth sets the incomplete-batch gauge.
func (m *Metrics) SetQueueDepth(depth int) {
	if m.enabled && m.QueueDepth != nil {
		m.QueueDepth.Set(float64(depth))
	}
}

// SetArchivesQueued sets the incomplete-archive gauge.
func (m *Metrics) SetArchivesQueued(count int) {
	if m.enabled && m.ArchivesQueued != nil {
		m.ArchivesQueued.Set(float64(count))
	}
}
