package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Workflow metrics
	WorkflowsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapshock_workflows_completed_total",
			Help: "Total number of workflow runs by outcome",
		},
		[]string{"status"},
	)

	WorkflowDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mapshock_workflow_duration_seconds",
			Help:    "End-to-end workflow duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// Stage metrics
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mapshock_stage_duration_seconds",
			Help:    "Stage execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	StageOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapshock_stage_outcomes_total",
			Help: "Stage completions by outcome (ok, fallback)",
		},
		[]string{"stage", "outcome"},
	)

	// Fan-out metrics
	FanoutOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapshock_fanout_operations_total",
			Help: "Fan-out operations by batch name and status",
		},
		[]string{"batch", "status"},
	)

	FanoutOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mapshock_fanout_operation_duration_seconds",
			Help:    "Duration of individual fan-out operations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"batch"},
	)
)

// RecordFanout records a single fan-out operation.
func RecordFanout(batch string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	FanoutOperations.WithLabelValues(batch, status).Inc()
	FanoutOperationDuration.WithLabelValues(batch).Observe(d.Seconds())
}

// RecordStage records a stage completion.
func RecordStage(stage string, fallback bool, d time.Duration) {
	outcome := "ok"
	if fallback {
		outcome = "fallback"
	}
	StageOutcomes.WithLabelValues(stage, outcome).Inc()
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordWorkflow records a finished workflow run.
func RecordWorkflow(success bool, d time.Duration) {
	status := "success"
	if !success {
		status = "degraded"
	}
	WorkflowsCompleted.WithLabelValues(status).Inc()
	WorkflowDuration.Observe(d.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
