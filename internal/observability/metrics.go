package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	generationsTotal      *prometheus.CounterVec
	reviewsTotal          *prometheus.CounterVec
	repairTiersTotal      *prometheus.CounterVec
	resumeExtractionTotal *prometheus.CounterVec
	uploadRejectedTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_api_requests_total",
			Help: "Total number of assessment API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assessment_api_latency_seconds",
			Help:    "Latency distribution for assessment API requests.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_api_errors_total",
			Help: "Total number of error responses returned by assessment endpoints.",
		}, []string{"method", "route", "status"})

		generationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_generations_total",
			Help: "Assessments generated, by result mode.",
		}, []string{"mode"})

		reviewsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_question_reviews_total",
			Help: "Per-question reviews produced, by source.",
		}, []string{"source"})

		repairTiersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_repair_tier_total",
			Help: "Upstream payloads handled by each repair tier.",
		}, []string{"payload", "tier"})

		resumeExtractionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_resume_extractions_total",
			Help: "Resume text extractions, by outcome.",
		}, []string{"outcome"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_resume_uploads_rejected_total",
			Help: "Resume uploads rejected, by reason.",
		}, []string{"reason"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			generationsTotal,
			reviewsTotal,
			repairTiersTotal,
			resumeExtractionTotal,
			uploadRejectedTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Generations counts generated assessments by mode.
func Generations() *prometheus.CounterVec {
	RegisterMetrics()
	return generationsTotal
}

// Reviews counts per-question reviews by source.
func Reviews() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewsTotal
}

// RepairTiers counts which repair tier handled an upstream payload.
func RepairTiers() *prometheus.CounterVec {
	RegisterMetrics()
	return repairTiersTotal
}

// ResumeExtractions counts resume extraction outcomes.
func ResumeExtractions() *prometheus.CounterVec {
	RegisterMetrics()
	return resumeExtractionTotal
}

// UploadRejected counts rejected resume uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}
