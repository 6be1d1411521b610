package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the service's Prometheus metrics. It carries its own
// registry so tests can build as many collectors as they like without
// default-registry collisions. A nil *Collector is valid and records
// nothing, so wiring metrics stays optional for callers.
type Collector struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	tableRows     *prometheus.GaugeVec
	checkFailures *prometheus.CounterVec
	ingestJobs    *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector builds and registers the service metrics.
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_pipeline_runs_total",
			Help: "Completed pipeline runs by outcome",
		},
		[]string{"status"},
	)
	c.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signals_pipeline_stage_duration_seconds",
			Help:    "Wall time per pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	c.tableRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "signals_pipeline_rows",
			Help: "Rows produced per table by the most recent run",
		},
		[]string{"table"},
	)
	c.checkFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_quality_check_failures_total",
			Help: "Failed data quality checks",
		},
		[]string{"check", "severity"},
	)
	c.ingestJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_ingest_jobs_total",
			Help: "Raw jobs ingested by source and outcome",
		},
		[]string{"source", "outcome"},
	)
	c.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "path", "status"},
	)
	c.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signals_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.registry.MustRegister(
		c.runsTotal,
		c.stageDuration,
		c.tableRows,
		c.checkFailures,
		c.ingestJobs,
		c.httpRequests,
		c.httpDuration,
	)
	return c
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RunCompleted counts a finished pipeline run.
func (c *Collector) RunCompleted(status string) {
	if c == nil {
		return
	}
	c.runsTotal.WithLabelValues(status).Inc()
}

// StageCompleted records a stage's duration and output size.
func (c *Collector) StageCompleted(stage string, d time.Duration, rows int) {
	if c == nil {
		return
	}
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	c.tableRows.WithLabelValues(stage).Set(float64(rows))
}

// CheckFailed counts a failed quality check.
func (c *Collector) CheckFailed(check, severity string) {
	if c == nil {
		return
	}
	c.checkFailures.WithLabelValues(check, severity).Inc()
}

// JobsIngested counts one fetcher's upsert outcome.
func (c *Collector) JobsIngested(source string, inserted, updated int) {
	if c == nil {
		return
	}
	c.ingestJobs.WithLabelValues(source, "inserted").Add(float64(inserted))
	c.ingestJobs.WithLabelValues(source, "updated").Add(float64(updated))
}

// HTTPRequest records one served request.
func (c *Collector) HTTPRequest(method, path string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
