// Package metrics exposes Prometheus instrumentation for script runs,
// sessions and message batches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xkilldash9x/handbridge/api/schemas"
)

const namespace = "handbridge"

// Metrics holds the collectors registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	scripts        *prometheus.CounterVec
	scriptDuration prometheus.Histogram
	sessions       prometheus.Gauge
	batches        prometheus.Counter
	batchBytes     prometheus.Counter
	batchUnits     prometheus.Histogram
}

// New registers all collectors, plus the process and Go runtime collectors,
// on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		scripts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scripts_total",
			Help:      "Scripts executed on the engine, by result status.",
		}, []string{"status"}),
		scriptDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "script_duration_seconds",
			Help:      "Wall time from script submission to result.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of registered engine sessions.",
		}),
		batches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_batches_total",
			Help:      "Message batches handed to the store.",
		}),
		batchBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_batch_bytes_total",
			Help:      "Body bytes handed to the store.",
		}),
		batchUnits: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_batch_size",
			Help:      "Messages per flushed batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
}

// ScriptFinished records one script run.
func (m *Metrics) ScriptFinished(status schemas.ScriptStatus, elapsed time.Duration) {
	m.scripts.WithLabelValues(string(status)).Inc()
	m.scriptDuration.Observe(elapsed.Seconds())
}

// SessionsChanged implements session.Observer.
func (m *Metrics) SessionsChanged(live int) {
	m.sessions.Set(float64(live))
}

// BatchFlushed implements dispatch.Recorder.
func (m *Metrics) BatchFlushed(units int, bytes int64) {
	m.batches.Inc()
	m.batchBytes.Add(float64(bytes))
	m.batchUnits.Observe(float64(units))
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
