package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mediagate/internal/downloader"
)

// Metrics holds the collectors exported on /metrics
type Metrics struct {
	registry        *prometheus.Registry
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Admissions      *prometheus.CounterVec
	Downloads       *prometheus.CounterVec
	DownloadSeconds prometheus.Histogram
}

// NewMetrics registers the service collectors, plus the Go and process
// collectors, on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediagate_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mediagate_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		Admissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediagate_rate_limit_decisions_total",
				Help: "Rate limiter decisions by outcome.",
			},
			[]string{"outcome"},
		),
		Downloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediagate_downloads_total",
				Help: "Finished media downloads by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		DownloadSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mediagate_download_duration_seconds",
			Help:    "Time spent running the media extractor.",
			Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestCount,
		m.RequestDuration,
		m.Admissions,
		m.Downloads,
		m.DownloadSeconds,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for additional collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeRequest(method, path string, status int, seconds float64) {
	m.RequestCount.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(seconds)
}

func (m *Metrics) observeAdmission(allowed bool) {
	outcome := "rejected"
	if allowed {
		outcome = "admitted"
	}
	m.Admissions.WithLabelValues(outcome).Inc()
}

// ObserveDownload is the worker pool observer
func (m *Metrics) ObserveDownload(r downloader.Result) {
	outcome := "complete"
	if r.Error != nil {
		outcome = "error"
	}
	m.Downloads.WithLabelValues(string(r.Job.Kind), outcome).Inc()
	m.DownloadSeconds.Observe(r.Duration.Seconds())
}
