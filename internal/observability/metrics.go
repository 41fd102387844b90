package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricelens_predictions_total",
			Help: "Predictions served, by estimate source",
		},
		[]string{"source"},
	)
	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricelens_upstream_errors_total",
			Help: "Failed upstream calls, by error code",
		},
		[]string{"code"},
	)
	RequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricelens_request_duration_seconds",
			Help:    "Prediction request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

var registerOnce sync.Once

// Handler registers the metrics and returns the scrape endpoint handler.
func Handler() http.Handler {
	registerOnce.Do(func() {
		prometheus.MustRegister(PredictionsTotal, UpstreamErrorsTotal, RequestDuration)
	})
	return promhttp.Handler()
}
