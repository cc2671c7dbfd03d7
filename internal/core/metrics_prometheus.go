package core

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports runtime operation outcomes and live
// behaviour counts as Prometheus collectors.
type PrometheusMetricsRecorder struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	live       *prometheus.GaugeVec
	attached   *prometheus.CounterVec
	detached   *prometheus.CounterVec
	failed     *prometheus.CounterVec
}

var _ MetricsRecorder = (*PrometheusMetricsRecorder)(nil)

// NewPrometheusMetricsRecorder registers the runtime collectors on a fresh
// registry. namespace defaults to reactivegraph.
func NewPrometheusMetricsRecorder(namespace string) *PrometheusMetricsRecorder {
	if namespace == "" {
		namespace = "reactivegraph"
	}
	r := &PrometheusMetricsRecorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "runtime",
				Name:      "operations_total",
				Help:      "Runtime operations by outcome.",
			},
			[]string{"operation", "success"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "runtime",
				Name:      "operation_duration_seconds",
				Help:      "Runtime operation duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		live: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "behaviour",
				Name:      "live",
				Help:      "Behaviours currently attached.",
			},
			[]string{"family"},
		),
		attached: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "behaviour",
				Name:      "attached_total",
				Help:      "Behaviours attached.",
			},
			[]string{"family"},
		),
		detached: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "behaviour",
				Name:      "detached_total",
				Help:      "Behaviours detached.",
			},
			[]string{"family"},
		),
		failed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "behaviour",
				Name:      "attach_failures_total",
				Help:      "Behaviour attach attempts that failed.",
			},
			[]string{"family"},
		),
	}
	r.registry.MustRegister(r.operations, r.duration, r.live, r.attached, r.detached, r.failed)
	return r
}

// Registry returns the registry holding the collectors, for an HTTP handler
// or a test gatherer.
func (r *PrometheusMetricsRecorder) Registry() *prometheus.Registry { return r.registry }

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.operations.WithLabelValues(operation, strconv.FormatBool(success)).Inc()
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// BehaviourAttached implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) BehaviourAttached(family string, n int) {
	r.attached.WithLabelValues(family).Add(float64(n))
	r.live.WithLabelValues(family).Add(float64(n))
}

// BehaviourDetached implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) BehaviourDetached(family string, n int) {
	r.detached.WithLabelValues(family).Add(float64(n))
	r.live.WithLabelValues(family).Sub(float64(n))
}

// AttachFailed implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) AttachFailed(family string, n int) {
	r.failed.WithLabelValues(family).Add(float64(n))
}
