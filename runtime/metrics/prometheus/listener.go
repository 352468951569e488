package prometheus

import (
	"sync"

	"github.com/AltairaLabs/stepflow/runtime/events"
)

// Label values.
const (
	statusPassed = "passed"
	statusFailed = "failed"

	outcomeCompleted = "completed"
	outcomeSkipped   = "skipped"
	outcomeError     = "error"

	directionForward  = "forward"
	directionBackward = "backward"

	targetStep    = "step"
	targetContent = "content"
)

// MetricsListener records workflow events as Prometheus metrics.
// It implements the events.Listener signature and should be registered
// with an EventBus using SubscribeAll.
//
// The listener tracks which runs are active so a reset run is not counted
// twice in the active gauge.
type MetricsListener struct {
	mu     sync.Mutex
	active map[string]string // run id -> workflow
}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{active: make(map[string]string)}
}

// Handle processes an event and records relevant metrics.
func (l *MetricsListener) Handle(event *events.Event) {
	//exhaustive:ignore
	switch event.Type {
	case events.EventWorkflowStarted:
		l.handleStarted(event)
	case events.EventWorkflowCompleted:
		l.handleCompleted(event)
	case events.EventStepChanged:
		if data, ok := event.Data.(*events.StepChangedData); ok {
			RecordTransition(event.Workflow, data.From, data.To)
		}
	case events.EventStepCompleted:
		l.handleStepOutcome(event, outcomeCompleted)
	case events.EventStepSkipped:
		l.handleStepOutcome(event, outcomeSkipped)
	case events.EventStepError:
		if data, ok := event.Data.(*events.StepErrorData); ok {
			RecordStepOutcome(event.Workflow, data.Step.ID, outcomeError)
		}
	case events.EventValidationPassed:
		l.handleValidation(event, statusPassed)
	case events.EventValidationFailed:
		l.handleValidation(event, statusFailed)
	case events.EventStepFocused:
		RecordFocusMove(event.Workflow, targetStep)
	case events.EventContentFocused:
		RecordFocusMove(event.Workflow, targetContent)
	default:
		// Ignore events that don't have metrics
	}
}

// Forget drops a run that ended without completing from the active gauge.
func (l *MetricsListener) Forget(runID string) {
	l.mu.Lock()
	workflow, ok := l.active[runID]
	delete(l.active, runID)
	l.mu.Unlock()

	if ok {
		RecordWorkflowAbandoned(workflow)
	}
}

func (l *MetricsListener) handleStarted(event *events.Event) {
	l.mu.Lock()
	_, running := l.active[event.RunID]
	l.active[event.RunID] = event.Workflow
	l.mu.Unlock()

	if running {
		workflowsStartedTotal.WithLabelValues(event.Workflow).Inc()
		return
	}
	RecordWorkflowStart(event.Workflow)
}

func (l *MetricsListener) handleCompleted(event *events.Event) {
	data, ok := event.Data.(*events.WorkflowCompletedData)
	if !ok {
		return
	}

	l.mu.Lock()
	_, running := l.active[event.RunID]
	delete(l.active, event.RunID)
	l.mu.Unlock()

	if running {
		RecordWorkflowEnd(event.Workflow, data.Duration.Seconds())
		return
	}
	workflowDuration.WithLabelValues(event.Workflow).Observe(data.Duration.Seconds())
}

func (l *MetricsListener) handleStepOutcome(event *events.Event, outcome string) {
	if data, ok := event.Data.(*events.StepData); ok {
		RecordStepOutcome(event.Workflow, data.Step.ID, outcome)
	}
}

func (l *MetricsListener) handleValidation(event *events.Event, status string) {
	if data, ok := event.Data.(*events.ValidationData); ok {
		RecordValidation(event.Workflow, data.Step.ID, status, data.Duration.Seconds())
	}
}
