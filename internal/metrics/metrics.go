// Package metrics registers and exposes the Prometheus metrics for the
// suggestion engine.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the Prometheus metrics for the suggestion engine.
//
// Exposed series:
//   - suggest_accepts_total{model_version,source,label} - accepted suggestions
//   - suggest_predict_requests_total{mode} - predict requests per rollout mode
//   - suggest_merchant_majority_hits_total{merchant_label} - heuristic hits
//   - suggest_ask_total - decisions where nothing was confident enough to serve
//   - suggest_shadow_runs_total{agreement} - shadow scorer runs vs served label
//   - suggest_cache_degraded_total - merchant-memory reads degraded to a miss
type Metrics struct {
	AcceptsTotal         *prometheus.CounterVec
	PredictRequestsTotal *prometheus.CounterVec
	MerchantMajorityHits *prometheus.CounterVec
	ShadowRunsTotal      *prometheus.CounterVec
	AskTotal             prometheus.Counter
	CacheDegradedTotal   prometheus.Counter
}

// New returns the process-wide metrics, registering them on first use.
// Registration is guarded by sync.Once to avoid duplicate-collector panics
// when multiple components ask for the same metrics.
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			AcceptsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "suggest_accepts_total",
					Help: "Total accepted suggestions",
				},
				[]string{"model_version", "source", "label"},
			),

			PredictRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "suggest_predict_requests_total",
					Help: "Total predict requests by rollout mode",
				},
				[]string{"mode"},
			),

			MerchantMajorityHits: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "suggest_merchant_majority_hits_total",
					Help: "Total merchant-majority heuristic hits by label",
				},
				[]string{"merchant_label"},
			),

			ShadowRunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "suggest_shadow_runs_total",
					Help: "Total shadow scorer runs by agreement with the served label",
				},
				[]string{"agreement"},
			),

			AskTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "suggest_ask_total",
					Help: "Total decisions that declined to suggest",
				},
			),

			CacheDegradedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "suggest_cache_degraded_total",
					Help: "Total merchant-memory operations degraded due to store errors",
				},
			),
		}
	})
	return globalMetrics
}
