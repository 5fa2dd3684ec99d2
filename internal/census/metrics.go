package census

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the run counters. A nil *Metrics records nothing.
type Metrics struct {
	Files         *prometheus.CounterVec
	Chunks        *prometheus.CounterVec
	Blocks        prometheus.Counter
	ActiveWorkers prometheus.Gauge
}

// NewMetrics creates the census metrics and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Files: f.NewCounterVec(prometheus.CounterOpts{
			Name: "census_files_total",
			Help: "Region files handled, by result (merged, dropped).",
		}, []string{"result"}),
		Chunks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "census_chunks_total",
			Help: "Chunks visited, by result (counted, skipped).",
		}, []string{"result"}),
		Blocks: f.NewCounter(prometheus.CounterOpts{
			Name: "census_blocks_total",
			Help: "Blocks counted across all merged region files.",
		}),
		ActiveWorkers: f.NewGauge(prometheus.GaugeOpts{
			Name: "census_workers_active",
			Help: "Region files currently being processed.",
		}),
	}
}

func (m *Metrics) fileMerged(stats FileStats) {
	if m == nil {
		return
	}
	m.Files.WithLabelValues("merged").Inc()
	m.Chunks.WithLabelValues("counted").Add(float64(stats.Counted))
	m.Chunks.WithLabelValues("skipped").Add(float64(stats.Skipped))
	m.Blocks.Add(float64(stats.Blocks))
}

func (m *Metrics) fileDropped() {
	if m == nil {
		return
	}
	m.Files.WithLabelValues("dropped").Inc()
}

func (m *Metrics) workerStarted() {
	if m == nil {
		return
	}
	m.ActiveWorkers.Inc()
}

func (m *Metrics) workerDone() {
	if m == nil {
		return
	}
	m.ActiveWorkers.Dec()
}
