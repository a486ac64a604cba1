package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics содержит метрики кэша листинга каталога.
type CacheMetrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	invalidations prometheus.Counter
}

// NewCacheMetrics создаёт новый экземпляр метрик кэша.
func NewCacheMetrics() *CacheMetrics {
	return newCacheMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCacheMetricsWithRegisterer(registerer prometheus.Registerer) *CacheMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CacheMetrics{
		hits: registerCounter(registerer, prometheus.CounterOpts{
			Name: "flora_flower_cache_hits_total",
			Help: "Total number of flower list cache hits",
		}),
		misses: registerCounter(registerer, prometheus.CounterOpts{
			Name: "flora_flower_cache_misses_total",
			Help: "Total number of flower list cache misses",
		}),
		invalidations: registerCounter(registerer, prometheus.CounterOpts{
			Name: "flora_flower_cache_invalidations_total",
			Help: "Total number of flower list cache invalidations",
		}),
	}
}

// RecordHit увеличивает счётчик попаданий в кэш.
func (m *CacheMetrics) RecordHit() {
	m.hits.Inc()
}

// RecordMiss увеличивает счётчик промахов кэша.
func (m *CacheMetrics) RecordMiss() {
	m.misses.Inc()
}

// RecordInvalidation увеличивает счётчик сбросов кэша.
func (m *CacheMetrics) RecordInvalidation() {
	m.invalidations.Inc()
}
