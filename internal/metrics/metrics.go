// Package metrics registers the pose Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ControlConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pose_control_connections_total",
		Help: "Total number of accepted control socket connections",
	})

	ControlCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pose_control_commands_total",
		Help: "Total number of control commands dispatched by command and outcome",
	}, []string{"command", "outcome"})

	ControlConnectionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pose_control_connection_errors_total",
		Help: "Total number of aborted control connections by failing stage",
	}, []string{"stage"})

	ShutdownPublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pose_shutdown_publish_total",
		Help: "Total number of shutdown events published by reason",
	}, []string{"reason"})

	DatabaseBenchmarkSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pose_db_benchmark_duration_seconds",
		Help:    "Wall-clock duration of completed database benchmark runs",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

// IncCommand records one dispatched control command.
func IncCommand(command, outcome string) {
	if command == "" {
		command = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	ControlCommandsTotal.WithLabelValues(command, outcome).Inc()
}

// IncConnectionError records an aborted control connection.
func IncConnectionError(stage string) {
	if stage == "" {
		stage = "unknown"
	}
	ControlConnectionErrorsTotal.WithLabelValues(stage).Inc()
}

// IncShutdownPublish records one shutdown publish attempt.
func IncShutdownPublish(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	ShutdownPublishTotal.WithLabelValues(reason).Inc()
}

func ObserveBenchmark(d time.Duration) {
	DatabaseBenchmarkSeconds.Observe(d.Seconds())
}
