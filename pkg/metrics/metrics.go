package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "template_analyses_total",
			Help: "Total number of upload analyses by template type and status",
		},
		[]string{"template_type", "status"},
	)

	uploadsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "template_uploads_rejected_total",
			Help: "Total number of uploads rejected before queueing",
		},
		[]string{"reason"},
	)

	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "template_jobs_total",
			Help: "Total number of template jobs processed by result",
		},
		[]string{"result"},
	)

	processingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "template_processing_duration_seconds",
			Help:    "Template render duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"template_type"},
	)
)

// RecordAnalysis counts one analysis result.
func RecordAnalysis(templateType, status string) {
	analysesTotal.WithLabelValues(templateType, status).Inc()
}

// RecordRejected counts an upload rejected with reason.
func RecordRejected(reason string) {
	uploadsRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordJob counts a finished job. result is completed, failed or retry.
func RecordJob(result string) {
	jobsTotal.WithLabelValues(result).Inc()
}

// ObserveProcessing records how long a render took.
func ObserveProcessing(templateType string, d time.Duration) {
	processingDuration.WithLabelValues(templateType).Observe(d.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
