package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	requestsTotal         *prometheus.CounterVec
	requestLatencySeconds *prometheus.HistogramVec
	codesIssuedTotal      *prometheus.CounterVec
	issueAttempts         prometheus.Histogram
	bulkShortfallTotal    prometheus.Counter
	redemptionsTotal      *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		requestLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		codesIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "access_codes_issued_total",
			Help: "Total number of access codes issued.",
		}, []string{"mode"})

		issueAttempts = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "access_code_issue_attempts",
			Help:    "Number of candidate codes generated per single issuance.",
			Buckets: []float64{1, 2, 3, 5, 8, 10},
		})

		bulkShortfallTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "access_code_bulk_shortfall_total",
			Help: "Codes requested in bulk but not produced before the attempt budget ran out.",
		})

		redemptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "access_code_redemptions_total",
			Help: "Total number of redemption attempts by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(requestsTotal, requestLatencySeconds, codesIssuedTotal, issueAttempts, bulkShortfallTotal, redemptionsTotal)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// RequestLatency exposes the latency histogram for API requests.
func RequestLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return requestLatencySeconds
}

// CodesIssued exposes the counter for issued access codes.
func CodesIssued() *prometheus.CounterVec {
	RegisterMetrics()
	return codesIssuedTotal
}

// IssueAttempts exposes the histogram of generation attempts per issued code.
func IssueAttempts() prometheus.Histogram {
	RegisterMetrics()
	return issueAttempts
}

// BulkShortfall exposes the counter for bulk issuance shortfalls.
func BulkShortfall() prometheus.Counter {
	RegisterMetrics()
	return bulkShortfallTotal
}

// Redemptions exposes the counter for redemption outcomes.
func Redemptions() *prometheus.CounterVec {
	RegisterMetrics()
	return redemptionsTotal
}
