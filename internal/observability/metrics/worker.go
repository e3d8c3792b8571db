package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LoaderMetrics instruments corpus ingestion on the worker: whole jobs and
// per-file outcomes taken from the job summary.
type LoaderMetrics struct {
	registry *prometheus.Registry

	loadsTotal   *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec
	loadInFlight prometheus.Gauge
	filesTotal   *prometheus.CounterVec
}

func NewLoaderMetrics(service string) *LoaderMetrics {
	registry := prometheus.NewRegistry()

	loadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eca",
			Subsystem: "loader",
			Name:      "loads_total",
			Help:      "Total completed load jobs by policy and status.",
		},
		[]string{"service", "policy", "status"},
	)
	loadDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eca",
			Subsystem: "loader",
			Name:      "load_duration_seconds",
			Help:      "Whole load job duration in seconds by policy.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		},
		[]string{"service", "policy"},
	)
	loadInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "eca",
			Subsystem: "loader",
			Name:      "loads_in_flight",
			Help:      "Number of load jobs currently running.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	filesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eca",
			Subsystem: "loader",
			Name:      "files_total",
			Help:      "Per-file load outcomes.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(loadsTotal, loadDuration, loadInFlight, filesTotal)

	return &LoaderMetrics{
		registry:     registry,
		loadsTotal:   loadsTotal,
		loadDuration: loadDuration,
		loadInFlight: loadInFlight,
		filesTotal:   filesTotal,
	}
}

func (m *LoaderMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *LoaderMetrics) StartLoad() {
	m.loadInFlight.Inc()
}

func (m *LoaderMetrics) FinishLoad(service, policy string, duration time.Duration, err error) {
	m.loadInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.loadsTotal.WithLabelValues(service, policy, status).Inc()
	m.loadDuration.WithLabelValues(service, policy).Observe(duration.Seconds())
}

func (m *LoaderMetrics) RecordFiles(service string, processed, skipped, failed int) {
	if processed > 0 {
		m.filesTotal.WithLabelValues(service, "loaded").Add(float64(processed))
	}
	if skipped > 0 {
		m.filesTotal.WithLabelValues(service, "skipped").Add(float64(skipped))
	}
	if failed > 0 {
		m.filesTotal.WithLabelValues(service, "failed").Add(float64(failed))
	}
}
