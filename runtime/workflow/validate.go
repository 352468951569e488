package workflow

import (
	"fmt"
	"regexp"
)

var stepIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ValidationResult holds blocking errors and advisory warnings found in a
// step list.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// HasErrors returns true if the result contains blocking errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r *ValidationResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateSteps checks a step list for structural problems.
//
// Errors: empty or duplicate step ids.
// Warnings: missing labels, ids that are not lowercase slugs, disabled steps
// marked skippable, and lists where every step is disabled.
func ValidateSteps(steps []StepDefinition) *ValidationResult {
	result := &ValidationResult{}
	seen := make(map[string]int, len(steps))
	disabled := 0

	for i := range steps {
		step := &steps[i]
		if step.ID == "" {
			result.addError("step %d has an empty id", i)
			continue
		}
		if prev, dup := seen[step.ID]; dup {
			result.addError("step %d reuses id %q of step %d", i, step.ID, prev)
			continue
		}
		seen[step.ID] = i

		if !stepIDPattern.MatchString(step.ID) {
			result.addWarning("step %q: id is not a lowercase slug", step.ID)
		}
		if step.Label == "" {
			result.addWarning("step %q has no label", step.ID)
		}
		if step.Disabled {
			disabled++
			if step.Skippable {
				result.addWarning("step %q is disabled and skippable", step.ID)
			}
		}
	}

	if len(steps) > 0 && disabled == len(steps) {
		result.addWarning("every step is disabled")
	}
	return result
}
