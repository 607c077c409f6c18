// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the ingestion pipeline:
// - per-source collection throughput and parse failures
// - transport/protocol retry visibility
// - broker publish outcomes
// - adapter lifecycle state

var (
	// Collector metrics
	CollectorRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vesselwatch_collector_records_total",
			Help: "Total number of canonical position records produced per source",
		},
		[]string{"source"},
	)

	CollectorParseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vesselwatch_collector_parse_errors_total",
			Help: "Total number of raw messages dropped due to parse failures",
		},
		[]string{"source"},
	)

	CollectorTransportErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vesselwatch_collector_transport_errors_total",
			Help: "Total number of transport-level failures (timeouts, resets, disconnects)",
		},
		[]string{"source"},
	)

	CollectorProtocolErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vesselwatch_collector_protocol_errors_total",
			Help: "Total number of source protocol failures (non-2xx responses)",
		},
		[]string{"source", "status"},
	)

	CollectorRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vesselwatch_collector_running",
			Help: "Whether a source's run loop is currently active (1) or stopped (0)",
		},
		[]string{"source"},
	)

	CollectorReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vesselwatch_collector_reconnects_total",
			Help: "Total number of streaming reconnect attempts per source",
		},
		[]string{"source"},
	)

	// Publish metrics
	PublishTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vesselwatch_publish_total",
			Help: "Total number of records delivered to the broker",
		},
	)

	PublishErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vesselwatch_publish_errors_total",
			Help: "Total number of failed broker deliveries (records are dropped, best-effort)",
		},
		[]string{"source"},
	)
)

// RecordCollected increments the per-source record counter.
func RecordCollected(source string) {
	CollectorRecordsTotal.WithLabelValues(source).Inc()
}

// RecordParseError increments the per-source parse error counter.
func RecordParseError(source string) {
	CollectorParseErrorsTotal.WithLabelValues(source).Inc()
}

// RecordTransportError increments the per-source transport error counter.
func RecordTransportError(source string) {
	CollectorTransportErrorsTotal.WithLabelValues(source).Inc()
}

// RecordProtocolError increments the per-source protocol error counter.
func RecordProtocolError(source, status string) {
	CollectorProtocolErrorsTotal.WithLabelValues(source, status).Inc()
}

// RecordReconnect increments the per-source reconnect counter.
func RecordReconnect(source string) {
	CollectorReconnectsTotal.WithLabelValues(source).Inc()
}

// SetRunning records a source's run-loop state.
func SetRunning(source string, running bool) {
	v := 0.0
	if running {
		v = 1.0
	}
	CollectorRunning.WithLabelValues(source).Set(v)
}

// RecordPublish increments the successful publish counter.
func RecordPublish() {
	PublishTotal.Inc()
}

// RecordPublishError increments the per-source failed publish counter.
func RecordPublishError(source string) {
	PublishErrorsTotal.WithLabelValues(source).Inc()
}
