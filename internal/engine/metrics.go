package engine

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var SearchCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "autocomplete",
	Subsystem: "index",
	Name:      "searches_total",
}, []string{"category"})

var SearchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "autocomplete",
	Subsystem: "index",
	Name:      "search_duration_seconds",
	Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
}, []string{"category"})

var CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "autocomplete",
	Subsystem: "index",
	Name:      "cache_hits_total",
}, []string{"category"})

var WordCount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "autocomplete",
	Subsystem: "index",
	Name:      "words",
}, []string{"category"})

var RebuildResults = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "autocomplete",
	Subsystem: "rebuild",
	Name:      "results_total",
}, []string{"result"})

var RebuildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "autocomplete",
	Subsystem: "rebuild",
	Name:      "duration_seconds",
	Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
})

var RebuildInProgress = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "autocomplete",
	Subsystem: "rebuild",
	Name:      "in_progress",
})

// RegisterMetrics registers every collector of this package with reg.
// Collectors that are already registered are left alone.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		SearchCount, SearchDuration, CacheHits, WordCount,
		RebuildResults, RebuildDuration, RebuildInProgress,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
