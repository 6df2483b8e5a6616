package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ChecksRunning is the number of target checks currently in flight.
	ChecksRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "target_checks_running",
			Help: "Number of target checks currently running",
		},
	)

	// ChecksTotal counts finished target checks by outcome (active, alerting, error).
	ChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "target_checks_total",
			Help: "Total number of target checks finished by outcome",
		},
		[]string{"outcome"},
	)

	// AlertsTotal counts created alerts by severity.
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_created_total",
			Help: "Total number of alerts created by severity",
		},
		[]string{"severity"},
	)

	// BatchItemsTotal counts processed batch items by result (success, failure).
	BatchItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_items_total",
			Help: "Total number of batch items processed by result",
		},
		[]string{"result"},
	)

	// BatchJobsTotal counts finished batch jobs by status (completed, canceled).
	BatchJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_jobs_total",
			Help: "Total number of batch jobs finished by status",
		},
		[]string{"status"},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, ChecksRunning,
			ChecksTotal, AlertsTotal, BatchItemsTotal, BatchJobsTotal)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}.
// E.g. /alerts/123/read -> /alerts/{id}/read.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request. Call from middleware with method, path, statusCode, duration.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

// IncChecksRunning increments the in-flight checks gauge.
func IncChecksRunning() { ChecksRunning.Inc() }

// DecChecksRunning decrements the in-flight checks gauge.
func DecChecksRunning() { ChecksRunning.Dec() }

// IncChecksTotal increments the finished checks counter for an outcome.
func IncChecksTotal(outcome string) { ChecksTotal.WithLabelValues(outcome).Inc() }

// IncAlertsTotal increments the created alerts counter for a severity.
func IncAlertsTotal(severity string) { AlertsTotal.WithLabelValues(severity).Inc() }

// IncBatchItemsTotal increments the processed batch items counter.
func IncBatchItemsTotal(result string) { BatchItemsTotal.WithLabelValues(result).Inc() }

// IncBatchJobsTotal increments the finished batch jobs counter.
func IncBatchJobsTotal(status string) { BatchJobsTotal.WithLabelValues(status).Inc() }
