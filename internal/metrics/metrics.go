// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

// Package metrics provides Prometheus instrumentation for the analytics
// pipeline: dataset ingest, DuckDB query performance, API latency, and
// experiment runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest Metrics
	IngestRowsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_rows_loaded_total",
			Help: "Total number of dataset rows successfully loaded",
		},
		[]string{"file"}, // "ratings", "users", "movies"
	)

	IngestRowsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_rows_dropped_total",
			Help: "Total number of malformed dataset rows dropped",
		},
	)

	IngestEventsDerived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_events_derived_total",
			Help: "Total number of engagement events derived from ratings",
		},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_duration_seconds",
			Help:    "Duration of full dataset ingest runs in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB analytics queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "cohort", "funnel", "kpi", "user_metrics"
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation"},
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
			Help: "Current number of in-flight API requests",
		},
	)

	// Experiment Metrics
	ExperimentRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "experiment_runs_total",
			Help: "Total number of experiment runs",
		},
		[]string{"status"}, // "ok", "srm_detected", "error"
	)

	ExperimentRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "experiment_run_duration_seconds",
			Help:    "Duration of experiment runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordIngest records one full ingest run.
func RecordIngest(duration time.Duration, ratings, users, movies, dropped, events int) {
	IngestDuration.Observe(duration.Seconds())
	IngestRowsLoaded.WithLabelValues("ratings").Add(float64(ratings))
	IngestRowsLoaded.WithLabelValues("users").Add(float64(users))
	IngestRowsLoaded.WithLabelValues("movies").Add(float64(movies))
	IngestRowsDropped.Add(float64(dropped))
	IngestEventsDerived.Add(float64(events))
}

// RecordExperimentRun records an experiment run outcome.
func RecordExperimentRun(duration time.Duration, srmHealthy bool, err error) {
	ExperimentRunDuration.Observe(duration.Seconds())
	switch {
	case err != nil:
		ExperimentRunsTotal.WithLabelValues("error").Inc()
	case !srmHealthy:
		ExperimentRunsTotal.WithLabelValues("srm_detected").Inc()
	default:
		ExperimentRunsTotal.WithLabelValues("ok").Inc()
	}
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
