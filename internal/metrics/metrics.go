package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides observability for structure loads.
// Tracks load outcomes, load latency and the size of the published tree.
type Metrics struct {
	Loads        *prometheus.CounterVec
	LoadDuration prometheus.Histogram
	Nodes        prometheus.Gauge
	Builds       *prometheus.CounterVec
}

// New creates a Metrics instance registered with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docnav_structure_loads_total",
			Help: "Structure loads by outcome (ready, transport_error, validation_error)",
		}, []string{"outcome"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docnav_structure_load_duration_seconds",
			Help:    "Duration of fetch, validate and sort cycles",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		Nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "docnav_structure_nodes",
			Help: "Number of nodes in the published snapshot",
		}),
		Builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docnav_structure_builds_total",
			Help: "Structure builds from the content directory by result",
		}, []string{"result"}),
	}
	reg.MustRegister(m.Loads, m.LoadDuration, m.Nodes, m.Builds)
	return m
}

// ObserveLoad records the outcome and duration of a load.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveLoad(start time.Time, outcome string) {
	m.Loads.WithLabelValues(outcome).Inc()
	m.LoadDuration.Observe(time.Since(start).Seconds())
}

// SetNodes records the size of the published snapshot.
func (m *Metrics) SetNodes(n int) {
	m.Nodes.Set(float64(n))
}

// IncrementBuild records a content directory build.
func (m *Metrics) IncrementBuild(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Builds.WithLabelValues(result).Inc()
}
