// ClassBridge - University Class Scheduling and Notification Bridge
// Copyright 2026 M15 Lab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/m15lab/classbridge

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the scheduling and notification pipeline:
// - Event store operation latency and errors
// - Telegram delivery outcomes and thread fallback retries
// - Reminder poller cycles and due-set sizes
// - API endpoint latency and throughput

var (
	// Store Metrics
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classbridge_store_op_duration_seconds",
			Help:    "Duration of event store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classbridge_store_op_errors_total",
			Help: "Total number of event store operation errors",
		},
		[]string{"operation"},
	)

	StoreEventsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "classbridge_store_events",
			Help: "Current number of events in the store",
		},
	)

	// Delivery Metrics
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classbridge_deliveries_total",
			Help: "Total number of delivery attempts",
		},
		[]string{"path", "outcome"}, // path: "create", "reminder", "resend", "digest"; outcome: "sent", "skipped", "failed"
	)

	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classbridge_delivery_duration_seconds",
			Help:    "Duration of a single delivery attempt in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"path"},
	)

	ThreadFallbackRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "classbridge_thread_fallback_retries_total",
			Help: "Total number of deliveries retried without a topic thread",
		},
	)

	RelayBreakerOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "classbridge_relay_breaker_open",
			Help: "1 when the Telegram relay circuit breaker is open, 0 otherwise",
		},
	)

	// Reminder Poller Metrics
	PollCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classbridge_poll_cycles_total",
			Help: "Total number of reminder poll cycles",
		},
		[]string{"outcome"}, // "ok", "store_error"
	)

	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "classbridge_poll_duration_seconds",
			Help:    "Duration of a reminder poll cycle in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		},
	)

	PollDueEvents = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "classbridge_poll_due_events",
			Help:    "Number of due events selected per poll cycle",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	// Digest Metrics
	DigestRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classbridge_digest_runs_total",
			Help: "Total number of daily digest runs",
		},
		[]string{"outcome"}, // "sent", "empty", "failed"
	)

	// Import Metrics
	ImportEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classbridge_import_events_total",
			Help: "Total number of events processed by bulk import",
		},
		[]string{"outcome"}, // "created", "tolerated", "rejected"
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classbridge_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classbridge_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "classbridge_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)
)

// RecordStoreOp records an event store operation metric
func RecordStoreOp(operation string, duration time.Duration, err error) {
	StoreOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreOpErrors.WithLabelValues(operation).Inc()
	}
}

// RecordDelivery records a delivery attempt and its outcome
func RecordDelivery(path, outcome string, duration time.Duration) {
	DeliveriesTotal.WithLabelValues(path, outcome).Inc()
	DeliveryDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordThreadFallback records a retry without the topic thread
func RecordThreadFallback() {
	ThreadFallbackRetries.Inc()
}

// RecordPollCycle records a reminder poll cycle
func RecordPollCycle(duration time.Duration, dueCount int, err error) {
	PollDuration.Observe(duration.Seconds())
	if err != nil {
		PollCycles.WithLabelValues("store_error").Inc()
		return
	}
	PollCycles.WithLabelValues("ok").Inc()
	PollDueEvents.Observe(float64(dueCount))
}

// RecordDigestRun records a daily digest run outcome
func RecordDigestRun(outcome string) {
	DigestRuns.WithLabelValues(outcome).Inc()
}

// RecordImportEvent records a bulk import row outcome
func RecordImportEvent(outcome string) {
	ImportEvents.WithLabelValues(outcome).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// SetBreakerOpen reflects the relay circuit breaker state
func SetBreakerOpen(open bool) {
	if open {
		RelayBreakerOpen.Set(1)
	} else {
		RelayBreakerOpen.Set(0)
	}
}
