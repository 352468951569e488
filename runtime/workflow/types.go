// Package workflow implements the step navigation engine behind multi-step
// "stepper" interfaces.
//
// A Navigator owns an ordered list of StepDefinitions and the State of one
// run through them. Every transition goes through guards (range, disabled,
// click policy, linear mode), an optional per-step validator and a commit
// that updates statuses and publishes events. Keyboard focus traversal
// reuses the same guards without mutating workflow state. Presentation is
// reached only through the FocusPort and Announcer ports and the event bus.
package workflow

import (
	"context"
	"fmt"
)

// StepStatus is the display status of a single step.
type StepStatus string

// StepStatus values.
const (
	StatusUpcoming  StepStatus = "upcoming"
	StatusCurrent   StepStatus = "current"
	StatusCompleted StepStatus = "completed"
	StatusError     StepStatus = "error"
	StatusSkipped   StepStatus = "skipped"
)

// ValidationStatus is the engine-wide validation state.
type ValidationStatus string

// ValidationStatus values.
const (
	ValidationIdle    ValidationStatus = "idle"
	ValidationPending ValidationStatus = "pending"
	ValidationValid   ValidationStatus = "valid"
	ValidationInvalid ValidationStatus = "invalid"
)

// Validator decides whether a step may be left going forward. It may block.
// Returning false, a non-nil error, or panicking all fail the step.
type Validator func(ctx context.Context) (bool, error)

// CompletionCheck reports whether a step's content is complete. The engine
// uses it to choose between focusing step content and advancing.
type CompletionCheck func() bool

// StepDefinition describes one step. The engine never mutates it.
type StepDefinition struct {
	ID          string
	Label       string
	Description string
	Optional    bool
	Skippable   bool
	Disabled    bool
	Validator   Validator
	IsComplete  CompletionCheck
}

// Title returns the label, falling back to the id.
func (s *StepDefinition) Title() string {
	if s.Label != "" {
		return s.Label
	}
	return s.ID
}

// Policy holds the navigation policy flags.
type Policy struct {
	// Linear forbids forward jumps beyond the next step and restricts
	// keyboard focus to already reached steps.
	Linear bool `json:"linear" yaml:"linear"`
	// AllowStepClick permits RequestNavigation to non-adjacent steps.
	AllowStepClick bool `json:"allowStepClick" yaml:"allowStepClick"`
	// ValidateOnNext runs the current step's validator before moving forward.
	ValidateOnNext bool `json:"validateOnNext" yaml:"validateOnNext"`
	// AutoAdvanceOnComplete advances when ContentCompleted reports the current step.
	AutoAdvanceOnComplete bool `json:"autoAdvanceOnComplete" yaml:"autoAdvanceOnComplete"`
}

// DefaultPolicy is non-linear, clickable and validating.
func DefaultPolicy() Policy {
	return Policy{AllowStepClick: true, ValidateOnNext: true}
}

// Outcome classifies the result of a navigation command.
type Outcome int

// Outcome values.
const (
	// OutcomeNoop means nothing happened: same-index request, empty workflow,
	// already completed, or auto-advance not applicable.
	OutcomeNoop Outcome = iota
	// OutcomeCommitted means the current step changed.
	OutcomeCommitted
	// OutcomeCompleted means the terminal completion ran on the last step.
	OutcomeCompleted
	// OutcomeRejected means a guard refused the transition.
	OutcomeRejected
	// OutcomeInvalid means the step validator failed.
	OutcomeInvalid
	// OutcomeBusy means another navigation was in flight; the request was dropped.
	OutcomeBusy
	// OutcomeContentFocused means focus was sent into incomplete step content.
	OutcomeContentFocused
)

var outcomeNames = [...]string{
	OutcomeNoop:           "noop",
	OutcomeCommitted:      "committed",
	OutcomeCompleted:      "completed",
	OutcomeRejected:       "rejected",
	OutcomeInvalid:        "invalid",
	OutcomeBusy:           "busy",
	OutcomeContentFocused: "content_focused",
}

// String returns the outcome name.
func (o Outcome) String() string {
	if o >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// TransitionKind records which command produced a transition.
type TransitionKind string

// TransitionKind values.
const (
	KindAdvance  TransitionKind = "advance"
	KindRetreat  TransitionKind = "retreat"
	KindJump     TransitionKind = "jump"
	KindSkip     TransitionKind = "skip"
	KindComplete TransitionKind = "complete"
)
