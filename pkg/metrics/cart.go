package metrics

import "github.com/prometheus/client_golang/prometheus"

// CartMetrics tracks cart synchronisation and the catalog cache.
type CartMetrics struct {
	loads        *prometheus.CounterVec
	pushes       *prometheus.CounterVec
	mergedLocal  prometheus.Counter
	cacheLookups *prometheus.CounterVec
}

// NewCartMetrics registers cart metrics on reg. A nil registerer yields no-op metrics.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	m := &CartMetrics{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "sync_loads_total",
			Help:      "Server cart loads by outcome.",
		}, []string{"outcome"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "sync_pushes_total",
			Help:      "Debounced cart pushes by outcome.",
		}, []string{"outcome"}),
		mergedLocal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "merged_local_items_total",
			Help:      "Local-only items appended to a server cart on merge.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "cache_lookups_total",
			Help:      "Catalog cache lookups by kind and result.",
		}, []string{"kind", "result"}),
	}
	reg.MustRegister(m.loads, m.pushes, m.mergedLocal, m.cacheLookups)
	return m
}

func (m *CartMetrics) IncLoad(outcome string) {
	if m == nil || m.loads == nil {
		return
	}
	m.loads.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *CartMetrics) IncPush(outcome string) {
	if m == nil || m.pushes == nil {
		return
	}
	m.pushes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *CartMetrics) AddMergedLocal(n int) {
	if m == nil || m.mergedLocal == nil || n <= 0 {
		return
	}
	m.mergedLocal.Add(float64(n))
}

// IncCacheLookup records a catalog cache hit or miss.
func (m *CartMetrics) IncCacheLookup(kind string, hit bool) {
	if m == nil || m.cacheLookups == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(normalizeLabel(kind), result).Inc()
}
