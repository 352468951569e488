package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNavigationRejected wraps every guard rejection.
	ErrNavigationRejected = errors.New("navigation rejected")
	// ErrStepOutOfRange is returned when the target index does not exist.
	ErrStepOutOfRange = errors.New("target step out of range")
	// ErrStepDisabled is returned when the target step is disabled.
	ErrStepDisabled = errors.New("target step is disabled")
	// ErrStepClickDisabled is returned for non-adjacent jumps when step clicks are off.
	ErrStepClickDisabled = errors.New("jumping to non-adjacent steps is disabled")
	// ErrLinearSkipAhead is returned when linear mode forbids the forward jump.
	ErrLinearSkipAhead = errors.New("linear mode forbids skipping ahead")
	// ErrStepNotSkippable is returned by Skip on a step without the skippable flag.
	ErrStepNotSkippable = errors.New("current step is not skippable")

	// ErrNavigationInProgress is returned while another navigation holds the gate.
	ErrNavigationInProgress = errors.New("navigation already in progress")

	// ErrValidationFailed is the cause recorded when a validator returns false.
	ErrValidationFailed = errors.New("step validation failed")
	// ErrValidatorPanicked is the cause recorded when a validator panics.
	ErrValidatorPanicked = errors.New("step validator panicked")

	// ErrInvalidSteps is returned when step definitions have blocking errors.
	ErrInvalidSteps = errors.New("invalid step definitions")
	// ErrSnapshotMismatch is returned when a snapshot was taken over different steps.
	ErrSnapshotMismatch = errors.New("snapshot does not match step definitions")
)

// StepError reports a failed validation of one step.
type StepError struct {
	StepID string
	Index  int
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q (index %d): %v", e.StepID, e.Index, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func rejected(reason error, from, to int) error {
	return fmt.Errorf("%w: %w (from %d to %d)", ErrNavigationRejected, reason, from, to)
}
