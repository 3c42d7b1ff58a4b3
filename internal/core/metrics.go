package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the importer's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	rowsTotal     *prometheus.CounterVec
	createdTotal  *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	bytesRead     prometheus.Counter
	activeRuns    prometheus.Gauge
	rejectedTotal prometheus.Counter
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		rowsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qbimport",
			Name:      "rows_total",
			Help:      "Rows processed, by outcome.",
		}, []string{"result"}),
		createdTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qbimport",
			Name:      "entities_created_total",
			Help:      "Entities created by imports, by kind.",
		}, []string{"kind"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qbimport",
			Name:      "cache_lookups_total",
			Help:      "Resolution cache lookups, by kind and result.",
		}, []string{"kind", "result"}),
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qbimport",
			Name:      "runs_total",
			Help:      "Finished import runs, by final phase.",
		}, []string{"phase"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "qbimport",
			Name:      "run_duration_seconds",
			Help:      "Duration of import runs.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"phase"}),
		bytesRead: f.NewCounter(prometheus.CounterOpts{
			Namespace: "qbimport",
			Name:      "input_bytes_total",
			Help:      "Bytes of input read by the parser.",
		}),
		activeRuns: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "qbimport",
			Name:      "active_runs",
			Help:      "Import runs currently holding a slot.",
		}),
		rejectedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "qbimport",
			Name:      "runs_rejected_total",
			Help:      "Import requests rejected because no slot was free.",
		}),
	}
}

func (m *Metrics) RowProcessed(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failed"
	}
	m.rowsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) EntityCreated(kind Kind) {
	if m == nil {
		return
	}
	m.createdTotal.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) CacheLookup(kind Kind, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(string(kind), result).Inc()
}

func (m *Metrics) RunFinished(phase Phase, d time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(string(phase)).Inc()
	m.runDuration.WithLabelValues(string(phase)).Observe(d.Seconds())
}

func (m *Metrics) BytesRead(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesRead.Add(float64(n))
}

func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.activeRuns.Inc()
}

func (m *Metrics) RunReleased() {
	if m == nil {
		return
	}
	m.activeRuns.Dec()
}

func (m *Metrics) RunRejected() {
	if m == nil {
		return
	}
	m.rejectedTotal.Inc()
}
