package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the RED metrics shared by the orchestrator operations plus
// the post-commit failure counter called out in the consistency notes.
type Metrics struct {
	UsecaseRequests    *prometheus.CounterVec
	UsecaseDuration    *prometheus.HistogramVec
	PostCommitFailures *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		UsecaseRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "usecase_requests_total",
				Help: "Total number of use case invocations.",
			},
			[]string{"use_case", "outcome"},
		),
		UsecaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "usecase_duration_seconds",
				Help:    "Duration of use case execution in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"use_case"},
		),
		PostCommitFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_postcommit_failures_total",
				Help: "Best-effort post-commit steps that failed after an order was persisted.",
			},
			[]string{"step"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests served.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP request handling in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// MustRegister registers all metrics on the given registerer.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.UsecaseRequests, m.UsecaseDuration, m.PostCommitFailures, m.HTTPRequests, m.HTTPDuration)
}

// Nop returns an unregistered Metrics, handy for tests.
func Nop() *Metrics { return New() }
