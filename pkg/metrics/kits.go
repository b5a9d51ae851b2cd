package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Kit resolution outcomes.
const (
	OutcomeKit      = "kit"
	OutcomeNoKit    = "none"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
)

// KitMetrics tracks kit resolution and selection mutations.
type KitMetrics struct {
	resolutions *prometheus.CounterVec
	duration    prometheus.Histogram
	mutations   *prometheus.CounterVec
}

// NewKitMetrics registers kit metrics on reg. A nil registerer yields no-op metrics.
func NewKitMetrics(reg prometheus.Registerer) *KitMetrics {
	if reg == nil {
		return &KitMetrics{}
	}
	m := &KitMetrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kit",
			Name:      "resolutions_total",
			Help:      "Kit resolutions by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "kit",
			Name:      "resolve_duration_seconds",
			Help:      "Time spent resolving a kit including catalog lookups.",
			Buckets:   prometheus.DefBuckets,
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kit",
			Name:      "selection_mutations_total",
			Help:      "Kit selection mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
	}
	reg.MustRegister(m.resolutions, m.duration, m.mutations)
	return m
}

// ObserveResolution records one resolveKit call.
func (m *KitMetrics) ObserveResolution(outcome string, took time.Duration) {
	if m == nil || m.resolutions == nil {
		return
	}
	m.resolutions.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.duration.Observe(took.Seconds())
}

// IncMutation records one selection mutation.
func (m *KitMetrics) IncMutation(op, outcome string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
}
