// Package metrics defines the Prometheus collectors for generation sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coldmail_submissions_total",
			Help: "Total number of generation submissions",
		},
		[]string{"mode"},
	)

	OutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coldmail_session_outcomes_total",
			Help: "Total number of resolved submissions by outcome",
		},
		[]string{"outcome"},
	)

	SupersededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coldmail_superseded_responses_total",
			Help: "Responses discarded because a newer submission or reset happened first",
		},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coldmail_request_duration_seconds",
			Help:    "Duration of calls to the generation service",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"endpoint", "outcome"},
	)

	EmailsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coldmail_emails_generated_total",
			Help: "Total number of emails received in successful responses",
		},
	)
)

// Outcome labels.
const (
	OutcomeSuccess        = "success"
	OutcomeRequestError   = "request_error"
	OutcomeTransportError = "transport_error"
)
