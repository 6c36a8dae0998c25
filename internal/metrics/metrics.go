// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/backbeat/internal/models"
)

var (
	// Pipeline Run Metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backbeat_runs_total",
			Help: "Total number of pipeline runs by final status",
		},
		[]string{"status"}, // succeeded, incomplete, failed
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backbeat_run_duration_seconds",
			Help:    "Duration of pipeline runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	RunLastTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backbeat_run_last_timestamp_seconds",
			Help: "Unix timestamp of the last run finishing with each status",
		},
		[]string{"status"},
	)

	RunInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backbeat_run_in_progress",
			Help: "1 while a pipeline run is executing",
		},
	)

	EventsRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backbeat_raw_events_read_total",
			Help: "Total number of raw events read from snapshots",
		},
	)

	// Snapshot Metrics
	SnapshotsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backbeat_snapshots_persisted_total",
			Help: "Total number of raw snapshots written",
		},
	)

	SnapshotBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backbeat_snapshot_bytes_total",
			Help: "Total bytes of raw snapshots written",
		},
	)

	// Materialization Metrics
	RowsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backbeat_rows_inserted_total",
			Help: "Total rows inserted into each materialization",
		},
		[]string{"materialization"},
	)

	MaterializationRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backbeat_materialization_rows",
			Help: "Current number of rows in each materialization",
		},
		[]string{"materialization"},
	)

	MaterializationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backbeat_materialization_outcomes_total",
			Help: "Materialization outcomes per run",
		},
		[]string{"materialization", "status"}, // committed, noop, resynced, incomplete, failed, skipped
	)

	// Sink Metrics
	SinkWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backbeat_sink_write_duration_seconds",
			Help:    "Duration of sink writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink", "materialization"},
	)

	SinkWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backbeat_sink_write_errors_total",
			Help: "Total number of failed sink writes",
		},
		[]string{"sink", "materialization"},
	)

	DirtyTables = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backbeat_relational_dirty_tables",
			Help: "Number of relational tables out of sync with their blob copy",
		},
	)

	// Upstream API Metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backbeat_upstream_requests_total",
			Help: "Total number of upstream API requests by endpoint and status code",
		},
		[]string{"endpoint", "status_code"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backbeat_upstream_request_duration_seconds",
			Help:    "Duration of upstream API requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	UpstreamRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backbeat_upstream_rate_limited_total",
			Help: "Total number of HTTP 429 responses from the upstream API",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// Notification Metrics
	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backbeat_notifications_published_total",
			Help: "Run notifications published by transport and result",
		},
		[]string{"transport", "result"}, // result: "success", "failure"
	)
)

// RecordRun records the outcome of a finished run.
func RecordRun(report *models.RunReport) {
	status := string(report.Status)
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.Observe(report.Duration().Seconds())
	RunLastTimestamp.WithLabelValues(status).Set(float64(report.FinishedAt.Unix()))
	EventsRead.Add(float64(report.EventsRead))

	for _, m := range report.Materializations {
		RecordMaterialization(m)
	}
}

// RecordMaterialization records one materialization outcome.
func RecordMaterialization(m models.MaterializationReport) {
	MaterializationOutcomes.WithLabelValues(m.Name, string(m.Status)).Inc()
	if m.Inserted > 0 {
		RowsInserted.WithLabelValues(m.Name).Add(float64(m.Inserted))
	}
	if m.Status != models.MaterializationFailed && m.Status != models.MaterializationSkipped {
		MaterializationRows.WithLabelValues(m.Name).Set(float64(m.Total))
	}
}

// RecordSnapshot records a persisted raw snapshot.
func RecordSnapshot(bytes int) {
	SnapshotsPersisted.Inc()
	SnapshotBytes.Add(float64(bytes))
}

// RecordSinkWrite records a sink write and its outcome.
func RecordSinkWrite(sink, materialization string, duration time.Duration, err error) {
	SinkWriteDuration.WithLabelValues(sink, materialization).Observe(duration.Seconds())
	if err != nil {
		SinkWriteErrors.WithLabelValues(sink, materialization).Inc()
	}
}

// RecordUpstreamRequest records an upstream API call. statusCode is 0 when
// no response was received.
func RecordUpstreamRequest(endpoint string, statusCode int, duration time.Duration) {
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	UpstreamRequests.WithLabelValues(endpoint, code).Inc()
	UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	if statusCode == 429 {
		UpstreamRateLimited.Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordNotification records a published run notification.
func RecordNotification(transport string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	NotificationsPublished.WithLabelValues(transport, result).Inc()
}
