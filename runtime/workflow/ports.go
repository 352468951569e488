package workflow

import (
	"fmt"
	"strings"
)

// FocusPort moves input focus in the presentation layer.
type FocusPort interface {
	// FocusStep focuses the header of step index.
	FocusStep(index int)
	// FocusContent focuses the first interactive element inside step index.
	FocusContent(index int)
}

// Announcer delivers text to assistive technology, e.g. a polite live region.
type Announcer interface {
	Announce(message string)
}

// AnnouncerFunc adapts a function to the Announcer interface.
type AnnouncerFunc func(message string)

// Announce calls f(message).
func (f AnnouncerFunc) Announce(message string) {
	f(message)
}

// MessageFormatter renders announcement text. Replace it to localize.
type MessageFormatter interface {
	StepChanged(step *StepDefinition, index, total int, status StepStatus) string
	StepFocused(step *StepDefinition, index, total int, status StepStatus) string
	StepError(step *StepDefinition, index, total int, err error) string
	Completed(total int) string
}

// DefaultMessages is the English MessageFormatter.
type DefaultMessages struct{}

// StepChanged announces the newly current step.
func (DefaultMessages) StepChanged(step *StepDefinition, index, total int, status StepStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Step %d of %d: %s, %s", index+1, total, step.Title(), status)
	if step.Optional {
		b.WriteString(", optional")
	}
	if step.Description != "" {
		b.WriteString(". ")
		b.WriteString(step.Description)
	}
	return b.String()
}

// StepFocused describes the focused step's position without implying a change.
func (DefaultMessages) StepFocused(step *StepDefinition, index, total int, status StepStatus) string {
	msg := fmt.Sprintf("%s, step %d of %d, %s", step.Title(), index+1, total, status)
	if step.Disabled {
		msg += ", unavailable"
	}
	return msg
}

// StepError announces a failed validation.
func (DefaultMessages) StepError(step *StepDefinition, _, _ int, err error) string {
	if err == nil {
		return fmt.Sprintf("%s has errors", step.Title())
	}
	return fmt.Sprintf("%s has errors: %v", step.Title(), err)
}

// Completed announces terminal completion.
func (DefaultMessages) Completed(total int) string {
	return fmt.Sprintf("All %d steps completed", total)
}
