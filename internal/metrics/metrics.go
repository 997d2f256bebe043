// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evoting_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evoting_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evoting_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	BallotsCast = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evoting_ballots_cast_total",
		Help: "Ballots successfully recorded",
	})

	BallotsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evoting_ballots_rejected_total",
			Help: "Cast attempts refused, by error code",
		},
		[]string{"code"},
	)

	CodesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evoting_codes_issued_total",
		Help: "One-time codes issued",
	})

	CodeVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evoting_code_verifications_total",
			Help: "One-time code checks, by outcome",
		},
		[]string{"outcome"},
	)

	Logins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evoting_logins_total",
			Help: "Login attempts, by outcome",
		},
		[]string{"outcome"},
	)

	TallyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "evoting_tally_duration_seconds",
		Help:    "Time to compute election results",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	CodesPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evoting_codes_purged_total",
		Help: "Expired one-time codes removed by the cleanup job",
	})
)
