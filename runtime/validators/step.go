package validators

import (
	"context"

	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

// StepValidator adapts a RuleSet into a workflow.Validator evaluated over the
// step's data in store. An empty rule set always passes.
func StepValidator(store *DataStore, stepID string, rules RuleSet) workflow.Validator {
	return func(ctx context.Context) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if err := rules.Check(store.Get(stepID)); err != nil {
			return false, err
		}
		return true, nil
	}
}

// CompletionCheck adapts a RuleSet into a workflow.CompletionCheck.
func CompletionCheck(store *DataStore, stepID string, rules RuleSet) workflow.CompletionCheck {
	return func() bool {
		return rules.Check(store.Get(stepID)) == nil
	}
}
