package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	JobsTotal       *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	WordsExtracted  prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total HTTP requests issued by the scraper.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	jobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_jobs_total",
			Help: "Total scrape jobs by outcome.",
		},
		[]string{"outcome"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)
	words := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_words_extracted",
			Help:    "Word count of extracted pages.",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		},
	)

	registry.MustRegister(requests, requestDuration, jobs, errorsTotal, words)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		JobsTotal:       jobs,
		ErrorsTotal:     errorsTotal,
		WordsExtracted:  words,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncJob counts a finished job.
func (m *Metrics) IncJob(outcome string) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(outcome).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// ObserveWords records the word count of an extracted page.
func (m *Metrics) ObserveWords(count int) {
	if m == nil {
		return
	}
	m.WordsExtracted.Observe(float64(count))
}
