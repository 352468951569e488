package events

import "time"

// EventType identifies the type of event emitted by a workflow navigator.
type EventType string

const (
	// EventWorkflowStarted marks a freshly initialized (or reset) run.
	EventWorkflowStarted EventType = "workflow.started"
	// EventWorkflowCompleted marks the terminal completion of the last step.
	EventWorkflowCompleted EventType = "workflow.completed"

	// EventStepChanged marks a committed navigation between two steps.
	EventStepChanged EventType = "step.changed"
	// EventStepCompleted marks a step transitioning to completed.
	EventStepCompleted EventType = "step.completed"
	// EventStepSkipped marks a skippable step being skipped.
	EventStepSkipped EventType = "step.skipped"
	// EventStepError marks a step whose validation failed.
	EventStepError EventType = "step.error"

	// EventStepFocused marks a keyboard focus move between step headers.
	EventStepFocused EventType = "step.focused"
	// EventContentFocused marks focus being forced into incomplete step content.
	EventContentFocused EventType = "content.focused"

	// EventValidationStarted marks a step validator being invoked.
	EventValidationStarted EventType = "validation.started"
	// EventValidationPassed marks a step validator accepting the step.
	EventValidationPassed EventType = "validation.passed"
	// EventValidationFailed marks a step validator rejecting the step or failing.
	EventValidationFailed EventType = "validation.failed"
)

// EventData is a marker interface for event payloads.
type EventData interface {
	eventData()
}

// Event represents a workflow event delivered to listeners.
type Event struct {
	Type      EventType
	Timestamp time.Time
	RunID     string
	Workflow  string
	Data      EventData
}

// baseEventData provides a shared marker implementation for all event payloads.
type baseEventData struct{}

func (baseEventData) eventData() {}

// StepRef identifies a step by position and id.
type StepRef struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// WorkflowStartedData contains data for workflow.started events.
type WorkflowStartedData struct {
	baseEventData
	StepCount    int `json:"step_count"`
	CurrentIndex int `json:"current_index"`
}

// WorkflowCompletedData contains data for workflow.completed events.
type WorkflowCompletedData struct {
	baseEventData
	StepCount int           `json:"step_count"`
	Duration  time.Duration `json:"duration"`
}

// StepChangedData contains data for step.changed events.
type StepChangedData struct {
	baseEventData
	From int     `json:"from"`
	To   int     `json:"to"`
	Step StepRef `json:"step"`
}

// StepData is the payload shared by step.completed, step.skipped,
// step.focused and content.focused.
type StepData struct {
	baseEventData
	Step StepRef `json:"step"`
}

// StepErrorData contains data for step.error events.
type StepErrorData struct {
	baseEventData
	Step  StepRef `json:"step"`
	Error error   `json:"-"`
	// Reason is Error rendered as text so the payload survives serialization.
	Reason string `json:"reason"`
}

// ValidationData is the payload shared by the validation.* events.
type ValidationData struct {
	baseEventData
	Step     StepRef       `json:"step"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    error         `json:"-"`
	Reason   string        `json:"reason,omitempty"`
}
