package events

import "time"

// Emitter provides helpers for publishing workflow events with shared metadata.
type Emitter struct {
	bus      *EventBus
	runID    string
	workflow string
	now      func() time.Time
}

// NewEmitter creates a new event emitter.
func NewEmitter(bus *EventBus, runID, workflow string) *Emitter {
	return &Emitter{
		bus:      bus,
		runID:    runID,
		workflow: workflow,
		now:      time.Now,
	}
}

// WithClock sets the timestamp source, for deterministic tests.
func (e *Emitter) WithClock(now func() time.Time) *Emitter {
	e.now = now
	return e
}

// Bus returns the bus the emitter publishes to.
func (e *Emitter) Bus() *EventBus {
	if e == nil {
		return nil
	}
	return e.bus
}

// RunID returns the run id stamped on every event.
func (e *Emitter) RunID() string {
	if e == nil {
		return ""
	}
	return e.runID
}

// Workflow returns the workflow name stamped on every event.
func (e *Emitter) Workflow() string {
	if e == nil {
		return ""
	}
	return e.workflow
}

// emit publishes an event with shared context fields.
func (e *Emitter) emit(eventType EventType, data EventData) {
	if e == nil || e.bus == nil {
		return
	}

	e.bus.Publish(&Event{
		Type:      eventType,
		Timestamp: e.now(),
		RunID:     e.runID,
		Workflow:  e.workflow,
		Data:      data,
	})
}

// WorkflowStarted emits the workflow.started event.
func (e *Emitter) WorkflowStarted(stepCount, currentIndex int) {
	e.emit(EventWorkflowStarted, &WorkflowStartedData{
		StepCount:    stepCount,
		CurrentIndex: currentIndex,
	})
}

// WorkflowCompleted emits the workflow.completed event.
func (e *Emitter) WorkflowCompleted(stepCount int, duration time.Duration) {
	e.emit(EventWorkflowCompleted, &WorkflowCompletedData{
		StepCount: stepCount,
		Duration:  duration,
	})
}

// StepChanged emits the step.changed event.
func (e *Emitter) StepChanged(from, to int, step StepRef) {
	e.emit(EventStepChanged, &StepChangedData{From: from, To: to, Step: step})
}

// StepCompleted emits the step.completed event.
func (e *Emitter) StepCompleted(step StepRef) {
	e.emit(EventStepCompleted, &StepData{Step: step})
}

// StepSkipped emits the step.skipped event.
func (e *Emitter) StepSkipped(step StepRef) {
	e.emit(EventStepSkipped, &StepData{Step: step})
}

// StepError emits the step.error event.
func (e *Emitter) StepError(step StepRef, err error) {
	e.emit(EventStepError, &StepErrorData{Step: step, Error: err, Reason: errText(err)})
}

// StepFocused emits the step.focused event.
func (e *Emitter) StepFocused(step StepRef) {
	e.emit(EventStepFocused, &StepData{Step: step})
}

// ContentFocused emits the content.focused event.
func (e *Emitter) ContentFocused(step StepRef) {
	e.emit(EventContentFocused, &StepData{Step: step})
}

// ValidationStarted emits the validation.started event.
func (e *Emitter) ValidationStarted(step StepRef) {
	e.emit(EventValidationStarted, &ValidationData{Step: step})
}

// ValidationPassed emits the validation.passed event.
func (e *Emitter) ValidationPassed(step StepRef, duration time.Duration) {
	e.emit(EventValidationPassed, &ValidationData{Step: step, Duration: duration})
}

// ValidationFailed emits the validation.failed event.
func (e *Emitter) ValidationFailed(step StepRef, err error, duration time.Duration) {
	e.emit(EventValidationFailed, &ValidationData{
		Step:     step,
		Duration: duration,
		Error:    err,
		Reason:   errText(err),
	})
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
