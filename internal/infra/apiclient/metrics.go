package apiclient

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "labelcrew"

// Metrics records task service traffic.
type Metrics struct {
	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	sharedTotal     *prometheus.CounterVec
	limiterWait     prometheus.Histogram
}

// NewMetrics creates the client metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Duration of task service calls in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"action"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of task service calls",
			},
			[]string{"action", "status"}, // status: success, error, or the HTTP status code
		),
		sharedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_shared_requests_total",
				Help:      "Reads that shared one in-flight request with identical reads",
			},
			[]string{"action"},
		),
		limiterWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_rate_limit_wait_seconds",
				Help:      "Time spent waiting for the client rate limiter",
				Buckets:   []float64{.001, .01, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.requestDuration, m.requestsTotal, m.sharedTotal, m.limiterWait)
	}
	return m
}
