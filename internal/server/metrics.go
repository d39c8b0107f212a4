package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// metrics holds the server's prometheus instruments on a private registry so
// multiple server instances (tests included) never collide.
type metrics struct {
	registry       *prometheus.Registry
	searches       *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	reindexes      prometheus.Counter
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	m := &metrics{
		registry: reg,
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chartdex_searches_total",
			Help: "Search requests by collection and outcome.",
		}, []string{"collection", "status"}),
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chartdex_search_duration_seconds",
			Help:    "Search request latency by collection.",
			Buckets: prometheus.DefBuckets,
		}, []string{"collection"}),
		reindexes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartdex_reindex_total",
			Help: "Completed dump reloads.",
		}),
	}
	reg.MustRegister(
		m.searches,
		m.searchDuration,
		m.reindexes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) observeSearch(collection string, err error, seconds float64) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.searches.WithLabelValues(collection, status).Inc()
	m.searchDuration.WithLabelValues(collection).Observe(seconds)
}
