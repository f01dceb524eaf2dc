// Package metrics exposes the engine's operational counters over
// Prometheus, scoped to client_golang's promauto/promhttp surface —
// the engine doesn't need OpenTelemetry's tracing machinery, only a
// /metrics endpoint the mesh's existing Prometheus scrape config
// already expects.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// #region metrics

// Metrics bundles every counter/gauge/histogram the Coordinator and
// its subsystems report. Registered against prometheus's default
// registry at construction, matching how promauto is meant to be used.
type Metrics struct {
	DetectTotal        *prometheus.CounterVec
	DecisionTotal      *prometheus.CounterVec
	PromotionTotal     prometheus.Counter
	SuppressionTotal   prometheus.Counter
	AdaptiveEvictions  prometheus.Counter
	AgentDegradedTotal prometheus.Counter
	SnapshotVersion    *prometheus.GaugeVec
	DetectDuration     prometheus.Histogram
}

// New registers and returns the engine's metric set.
func New() *Metrics {
	return &Metrics{
		DetectTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "epe_detect_total",
			Help: "Total detect events processed, by service.",
		}, []string{"service_id"}),
		DecisionTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "epe_decision_total",
			Help: "Total decisions returned, by service and outcome.",
		}, []string{"service_id", "decision"}),
		PromotionTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "epe_adaptive_promotions_total",
			Help: "Total adaptive-layer promotions (OBSERVING -> PROMOTED).",
		}),
		SuppressionTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "epe_agent_suppressions_total",
			Help: "Total SUPPRESS actions applied by the agent.",
		}),
		AdaptiveEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "epe_adaptive_evictions_total",
			Help: "Total LRU evictions from the adaptive record table.",
		}),
		AgentDegradedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "epe_agent_degraded_total",
			Help: "Total times the agent fell back to OBSERVE after a non-finite Q-value.",
		}),
		SnapshotVersion: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "epe_snapshot_version",
			Help: "Currently published snapshot version, by service.",
		}, []string{"service_id"}),
		DetectDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "epe_detect_duration_seconds",
			Help:    "Latency of on_detect calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// #endregion metrics
