package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	httpErrorsTotal        *prometheus.CounterVec
	catalogRequestsTotal   *prometheus.CounterVec
	enrollmentsTotal       *prometheus.CounterVec
	progressUpdatesTotal   prometheus.Counter
	progressUpdateLatency  prometheus.Histogram
	uploadRejectedTotal    *prometheus.CounterVec
	uploadLatencySeconds   prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		catalogRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_requests_total",
			Help: "Catalog list requests partitioned by cache outcome.",
		}, []string{"result"})

		enrollmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrollments_total",
			Help: "Enrollment operations partitioned by action and result.",
		}, []string{"action", "result"})

		progressUpdatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "progress_updates_total",
			Help: "Total number of lesson progress mutations applied.",
		})

		progressUpdateLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "progress_update_latency_seconds",
			Help:    "Latency distribution for progress mutations.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_rejected_total",
			Help: "Uploads rejected during validation, partitioned by reason.",
		}, []string{"reason"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "upload_latency_seconds",
			Help:    "Latency distribution for media uploads.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			catalogRequestsTotal,
			enrollmentsTotal,
			progressUpdatesTotal,
			progressUpdateLatency,
			uploadRejectedTotal,
			uploadLatencySeconds,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// CatalogRequests exposes the catalog cache outcome counter.
func CatalogRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return catalogRequestsTotal
}

// Enrollments exposes the enrollment operations counter.
func Enrollments() *prometheus.CounterVec {
	RegisterMetrics()
	return enrollmentsTotal
}

// ProgressUpdates exposes the progress mutation counter.
func ProgressUpdates() prometheus.Counter {
	RegisterMetrics()
	return progressUpdatesTotal
}

// ProgressLatency exposes the progress mutation latency histogram.
func ProgressLatency() prometheus.Histogram {
	RegisterMetrics()
	return progressUpdateLatency
}

// UploadRejected exposes the upload rejection counter.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency exposes the upload latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}
