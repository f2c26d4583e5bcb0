// Package metrics exposes prometheus collectors for pipeline stages, jobs,
// checkpoints and the HTTP API on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "agency"

// Metrics records pipeline and API metrics. A disabled or nil *Metrics
// accepts every call and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	stageRuns     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec

	jobsStarted  *prometheus.CounterVec
	jobsFinished *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	activeJobs   prometheus.Gauge
	qualityScore prometheus.Histogram

	checkpoints *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors. When enabled is false it returns a no-op
// instance.
func New(enabled bool, namespace string) *Metrics {
	if !enabled {
		return &Metrics{}
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,

		stageRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_runs_total",
				Help:      "Stage executions by resulting status",
			},
			[]string{"stage", "status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of stage execution in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),

		jobsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_started_total",
				Help:      "Pipeline runs started",
			},
			[]string{"mode"},
		),
		jobsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_finished_total",
				Help:      "Pipeline runs finished by final status",
			},
			[]string{"status"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Duration of a full pipeline run in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"status"},
		),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_jobs",
			Help:      "Pipeline runs currently executing",
		}),
		qualityScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quality_score",
			Help:      "Reviewer quality scores",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),

		checkpoints: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkpoint_operations_total",
				Help:      "Checkpoint saves and restores",
			},
			[]string{"operation"},
		),

		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"method", "route", "code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		m.stageRuns, m.stageDuration,
		m.jobsStarted, m.jobsFinished, m.jobDuration, m.activeJobs, m.qualityScore,
		m.checkpoints,
		m.httpRequests, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Enabled reports whether metrics are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.registry != nil
}

// RecordStage records one stage execution.
func (m *Metrics) RecordStage(stage, status string, d time.Duration) {
	if !m.Enabled() {
		return
	}
	m.stageRuns.WithLabelValues(stage, status).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// JobStarted records a run start.
func (m *Metrics) JobStarted(mode string) {
	if !m.Enabled() {
		return
	}
	m.jobsStarted.WithLabelValues(mode).Inc()
	m.activeJobs.Inc()
}

// JobFinished records a run end with the record's final status.
func (m *Metrics) JobFinished(status string, d time.Duration) {
	if !m.Enabled() {
		return
	}
	m.jobsFinished.WithLabelValues(status).Inc()
	m.jobDuration.WithLabelValues(status).Observe(d.Seconds())
	m.activeJobs.Dec()
}

// ObserveQuality records a reviewer score.
func (m *Metrics) ObserveQuality(score float64) {
	if !m.Enabled() {
		return
	}
	m.qualityScore.Observe(score)
}

// RecordCheckpoint counts a checkpoint operation ("save" or "restore").
func (m *Metrics) RecordCheckpoint(operation string) {
	if !m.Enabled() {
		return
	}
	m.checkpoints.WithLabelValues(operation).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if !m.Enabled() {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if !m.Enabled() {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics disabled", http.StatusNotFound)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
