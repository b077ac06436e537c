package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EligibilityChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_eligibility_checks_total",
			Help: "Total number of eligibility checks by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	EligibilityCheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loan_eligibility_check_duration_seconds",
			Help:    "Duration of eligibility checks in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	GenAIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_genai_requests_total",
			Help: "Total number of prompt service calls by prompt and result",
		},
		[]string{"prompt", "result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loan_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	BatchEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_batch_evaluations_total",
			Help: "Applicants processed by the scheduled evaluation job",
		},
		[]string{"result"},
	)
)
