// Package prometheus provides Prometheus metrics for workflow navigators.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stepflow"

var (
	// workflowsStartedTotal counts runs started or reset.
	workflowsStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_started_total",
			Help:      "Total number of workflow runs started",
		},
		[]string{"workflow"},
	)

	// workflowsActive is a gauge of runs started but not completed.
	workflowsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workflows_active",
			Help:      "Number of workflow runs in progress",
		},
		[]string{"workflow"},
	)

	// workflowDuration is a histogram of time from start to terminal completion.
	workflowDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_seconds",
			Help:      "Histogram of workflow run duration from start to completion in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"workflow"},
	)

	// stepTransitionsTotal counts committed navigations.
	stepTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_transitions_total",
			Help:      "Total number of committed step transitions",
		},
		[]string{"workflow", "direction"}, // direction: forward, backward
	)

	// stepOutcomesTotal counts per-step terminal statuses.
	stepOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_outcomes_total",
			Help:      "Total number of steps completed, skipped or failed",
		},
		[]string{"workflow", "step", "outcome"}, // outcome: completed, skipped, error
	)

	// validationDuration is a histogram of step validator duration.
	validationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_duration_seconds",
			Help:      "Duration of step validators in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"workflow", "step"},
	)

	// validationsTotal is a counter of step validator runs.
	validationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Total number of step validator runs",
		},
		[]string{"workflow", "step", "status"}, // status: passed, failed
	)

	// focusMovesTotal counts keyboard focus moves.
	focusMovesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "focus_moves_total",
			Help:      "Total number of focus moves to step headers or step content",
		},
		[]string{"workflow", "target"}, // target: step, content
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		workflowsStartedTotal,
		workflowsActive,
		workflowDuration,
		stepTransitionsTotal,
		stepOutcomesTotal,
		validationDuration,
		validationsTotal,
		focusMovesTotal,
	}
)

// Collectors returns every stepflow collector, for registering with a
// caller-owned registry.
func Collectors() []prometheus.Collector {
	return append([]prometheus.Collector(nil), allMetrics...)
}

// RecordWorkflowStart records a run starting.
func RecordWorkflowStart(workflow string) {
	workflowsStartedTotal.WithLabelValues(workflow).Inc()
	workflowsActive.WithLabelValues(workflow).Inc()
}

// RecordWorkflowEnd records a run completing.
func RecordWorkflowEnd(workflow string, durationSeconds float64) {
	workflowsActive.WithLabelValues(workflow).Dec()
	workflowDuration.WithLabelValues(workflow).Observe(durationSeconds)
}

// RecordWorkflowAbandoned removes a run from the active gauge without
// observing a duration, e.g. when a bridge session closes mid-run.
func RecordWorkflowAbandoned(workflow string) {
	workflowsActive.WithLabelValues(workflow).Dec()
}

// RecordTransition records a committed navigation.
func RecordTransition(workflow string, from, to int) {
	direction := directionForward
	if to < from {
		direction = directionBackward
	}
	stepTransitionsTotal.WithLabelValues(workflow, direction).Inc()
}

// RecordStepOutcome records a step completing, being skipped or failing validation.
func RecordStepOutcome(workflow, step, outcome string) {
	stepOutcomesTotal.WithLabelValues(workflow, step, outcome).Inc()
}

// RecordValidation records a validator run.
func RecordValidation(workflow, step, status string, durationSeconds float64) {
	validationDuration.WithLabelValues(workflow, step).Observe(durationSeconds)
	validationsTotal.WithLabelValues(workflow, step, status).Inc()
}

// RecordFocusMove records a focus move.
func RecordFocusMove(workflow, target string) {
	focusMovesTotal.WithLabelValues(workflow, target).Inc()
}
