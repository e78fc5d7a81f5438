package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/flowkeeper/pkg/observability"
)

const metricsNamespace = "flowkeeper"

// =============================================================================
// Prometheus Metrics for the Editing Engine and Persistence
// =============================================================================

// Metrics implements the observability hooks on a private Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	changeBatches prometheus.Counter
	nodesMoved    prometheus.Counter
	nodesRemoved  prometheus.Counter
	// attaches counts drop-to-group answers. Labels: answer (accepted, declined)
	attaches *prometheus.CounterVec
	// commands counts dispatched commands. Labels: command, result (applied or the rejection reason)
	commands *prometheus.CounterVec
	layouts  prometheus.Counter

	// loads counts project loads. Labels: outcome (ok, migrated, fell_back, error)
	loads        *prometheus.CounterVec
	loadDuration prometheus.Histogram
	// flushes counts project writes. Labels: status (ok, error)
	flushes       *prometheus.CounterVec
	flushBytes    prometheus.Histogram
	flushDuration prometheus.Histogram
}

// NewMetrics creates the collectors. sessions, when non-nil, is exported as
// the number of open sessions.
func NewMetrics(sessions func() int) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		changeBatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "engine", Name: "change_batches_total",
			Help: "Node change batches applied",
		}),
		nodesMoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "engine", Name: "nodes_moved_total",
			Help: "Nodes whose position changed, including propagated container moves",
		}),
		nodesRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "engine", Name: "nodes_removed_total",
			Help: "Nodes removed by change batches",
		}),
		attaches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "engine", Name: "attach_answers_total",
			Help: "Drop-to-group confirmations by answer",
		}, []string{"answer"}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "engine", Name: "commands_total",
			Help: "Dispatched commands by type and result",
		}, []string{"command", "result"}),
		layouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "engine", Name: "layout_passes_total",
			Help: "Group auto-layout passes that changed a container",
		}),
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "store", Name: "loads_total",
			Help: "Project loads by outcome",
		}, []string{"outcome"}),
		loadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "store", Name: "load_duration_seconds",
			Help:    "Project load latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		flushes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "store", Name: "flushes_total",
			Help: "Project writes by status",
		}, []string{"status"}),
		flushBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "store", Name: "flush_bytes",
			Help:    "Size of written project records",
			Buckets: prometheus.ExponentialBuckets(512, 4, 8),
		}),
		flushDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "store", Name: "flush_duration_seconds",
			Help:    "Project write latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}

	if sessions != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Name: "open_sessions",
			Help: "Projects currently held in memory",
		}, func() float64 { return float64(sessions()) })
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Register installs m as the process-wide engine and store hooks.
func (m *Metrics) Register() {
	observability.SetEngineHooks(m)
	observability.SetStoreHooks(m)
}

func (m *Metrics) OnChangeBatch(_ context.Context, _, moved, removed int) {
	m.changeBatches.Inc()
	m.nodesMoved.Add(float64(moved))
	m.nodesRemoved.Add(float64(removed))
}

func (m *Metrics) OnAttach(_ context.Context, accepted bool) {
	answer := "declined"
	if accepted {
		answer = "accepted"
	}
	m.attaches.WithLabelValues(answer).Inc()
}

func (m *Metrics) OnCommand(_ context.Context, command, reason string) {
	result := "applied"
	if reason != "" {
		result = reason
	}
	m.commands.WithLabelValues(command, result).Inc()
}

func (m *Metrics) OnLayout(context.Context, string) {
	m.layouts.Inc()
}

func (m *Metrics) OnLoad(_ context.Context, migrated, fellBack bool, d time.Duration, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case fellBack:
		outcome = "fell_back"
	case migrated:
		outcome = "migrated"
	}
	m.loads.WithLabelValues(outcome).Inc()
	m.loadDuration.Observe(d.Seconds())
}

func (m *Metrics) OnFlush(_ context.Context, size int, d time.Duration, err error) {
	if err != nil {
		m.flushes.WithLabelValues("error").Inc()
		return
	}
	m.flushes.WithLabelValues("ok").Inc()
	m.flushBytes.Observe(float64(size))
	m.flushDuration.Observe(d.Seconds())
}
