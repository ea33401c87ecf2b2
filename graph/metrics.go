package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// queryTotal counts queries by outcome: ok, error
	queryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brick_graph_query_total",
		Help: "Total graph queries by result",
	}, []string{"result"})

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "brick_graph_query_duration_seconds",
		Help:    "Graph query latency including parse and compile",
		Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})

	loadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "brick_graph_load_duration_seconds",
		Help:    "Time to parse and insert all graph files",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	triplesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "brick_graph_triples",
		Help: "Number of distinct triples in the loaded graph",
	})
)

func observeQuery(start time.Time, err error) {
	queryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		queryTotal.WithLabelValues("error").Inc()
		return
	}
	queryTotal.WithLabelValues("ok").Inc()
}
