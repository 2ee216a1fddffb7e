// Package metrics provides Prometheus metrics for BitNet: counters, gauges,
// and histograms for model lifecycle, inference, and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Model Lifecycle ────────────────────────────────────────────────────────

// Downloads tracks model download outcomes.
var Downloads = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bitnet",
	Name:      "downloads_total",
	Help:      "Total model downloads by result.",
}, []string{"result"})

// Removals tracks model removal outcomes.
var Removals = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bitnet",
	Name:      "removals_total",
	Help:      "Total model removals by result.",
}, []string{"result"})

// InstalledModels tracks the registry size.
var InstalledModels = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "bitnet",
	Name:      "installed_models",
	Help:      "Number of models currently in the registry.",
})

// RegistryLoadWarnings counts registry documents dropped as malformed.
var RegistryLoadWarnings = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "bitnet",
	Name:      "registry_load_warnings_total",
	Help:      "Total registry loads that fell back to an empty registry.",
})

// ─── Inference ──────────────────────────────────────────────────────────────

// InferenceRequests tracks inference requests by mode (generate, chat) and
// result.
var InferenceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bitnet",
	Name:      "inference_requests_total",
	Help:      "Total inference requests by mode and result.",
}, []string{"mode", "result"})

// InferenceLatency tracks inference request duration in seconds.
var InferenceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "bitnet",
	Name:      "inference_latency_seconds",
	Help:      "Inference request duration in seconds.",
	Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
}, []string{"mode"})

// StreamChunks counts chunks delivered on streaming responses.
var StreamChunks = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "bitnet",
	Name:      "stream_chunks_total",
	Help:      "Total chunks delivered on streaming responses.",
})

// ActiveProcesses tracks currently running inference subprocesses.
var ActiveProcesses = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "bitnet",
	Name:      "active_processes",
	Help:      "Number of inference subprocesses currently running.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "bitnet",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})
