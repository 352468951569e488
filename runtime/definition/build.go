package definition

import (
	"fmt"

	"github.com/AltairaLabs/stepflow/runtime/validators"
	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

// Steps compiles the declared steps. Validators and completion checks
// evaluate over store; rules are resolved in reg, or the default registry
// when reg is nil.
func (w *Workflow) Steps(store *validators.DataStore, reg *validators.Registry) ([]workflow.StepDefinition, error) {
	if reg == nil {
		reg = validators.DefaultRegistry
	}

	steps := make([]workflow.StepDefinition, len(w.Spec.Steps))
	for i := range w.Spec.Steps {
		spec := &w.Spec.Steps[i]
		step := workflow.StepDefinition{
			ID:          spec.ID,
			Label:       spec.Label,
			Description: spec.Description,
			Optional:    spec.Optional,
			Skippable:   spec.Skippable,
			Disabled:    spec.Disabled,
		}

		if len(spec.Validate) > 0 {
			rules, err := reg.Build(spec.Validate)
			if err != nil {
				return nil, fmt.Errorf("step %q validate: %w", spec.ID, err)
			}
			step.Validator = validators.StepValidator(store, spec.ID, rules)
		}
		if len(spec.Complete) > 0 {
			rules, err := reg.Build(spec.Complete)
			if err != nil {
				return nil, fmt.Errorf("step %q complete: %w", spec.ID, err)
			}
			step.IsComplete = validators.CompletionCheck(store, spec.ID, rules)
		}
		steps[i] = step
	}

	if res := workflow.ValidateSteps(steps); res.HasErrors() {
		return nil, fmt.Errorf("%w: %v", workflow.ErrInvalidSteps, res.Errors)
	}
	return steps, nil
}

// Options returns the navigator options the resource declares. Caller
// options passed to Build are applied after these.
func (w *Workflow) Options() []workflow.Option {
	return append([]workflow.Option{
		workflow.WithName(w.Name()),
		workflow.WithStartIndex(w.Spec.StartIndex),
	}, w.policyOptions()...)
}

func (w *Workflow) policyOptions() []workflow.Option {
	opts := []workflow.Option{workflow.WithPolicy(w.ResolvePolicy())}
	if d := w.ValidationTimeout(); d > 0 {
		opts = append(opts, workflow.WithValidationTimeout(d))
	}
	return opts
}

// Build creates a navigator for a fresh run of the workflow.
func (w *Workflow) Build(store *validators.DataStore, reg *validators.Registry, opts ...workflow.Option) (*workflow.Navigator, error) {
	steps, err := w.Steps(store, reg)
	if err != nil {
		return nil, err
	}
	return workflow.NewNavigator(steps, append(w.Options(), opts...)...)
}

// Restore rebuilds a navigator for a persisted run of the workflow.
func (w *Workflow) Restore(
	snap *workflow.Snapshot,
	store *validators.DataStore,
	reg *validators.Registry,
	opts ...workflow.Option,
) (*workflow.Navigator, error) {
	steps, err := w.Steps(store, reg)
	if err != nil {
		return nil, err
	}
	return workflow.NewNavigatorFromSnapshot(steps, snap, append(w.policyOptions(), opts...)...)
}
