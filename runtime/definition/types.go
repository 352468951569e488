// Package definition loads workflow resources: Kubernetes-style YAML
// documents that declare the steps, policy and validation rules of a
// workflow, and builds navigators from them.
package definition

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/AltairaLabs/stepflow/runtime/validators"
	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

// Resource identity.
const (
	APIVersion = "stepflow.altairalabs.ai/v1alpha1"
	Kind       = "Workflow"
)

// Workflow is a workflow resource.
type Workflow struct {
	APIVersion string            `yaml:"apiVersion" json:"apiVersion"`
	Kind       string            `yaml:"kind" json:"kind"`
	Metadata   metav1.ObjectMeta `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Spec       WorkflowSpec      `yaml:"spec" json:"spec"`
}

// Name returns metadata.name.
func (w *Workflow) Name() string {
	return w.Metadata.Name
}

// WorkflowSpec declares the steps and navigation policy.
type WorkflowSpec struct {
	Version     string      `yaml:"version" json:"version"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	StartIndex  int         `yaml:"startIndex,omitempty" json:"startIndex,omitempty"`
	Policy      *PolicySpec `yaml:"policy,omitempty" json:"policy,omitempty"`
	Steps       []StepSpec  `yaml:"steps" json:"steps"`
}

// PolicySpec is the declarative policy. Unset flags take the defaults of
// workflow.DefaultPolicy.
type PolicySpec struct {
	Linear                *bool  `yaml:"linear,omitempty" json:"linear,omitempty"`
	AllowStepClick        *bool  `yaml:"allowStepClick,omitempty" json:"allowStepClick,omitempty"`
	ValidateOnNext        *bool  `yaml:"validateOnNext,omitempty" json:"validateOnNext,omitempty"`
	AutoAdvanceOnComplete *bool  `yaml:"autoAdvanceOnComplete,omitempty" json:"autoAdvanceOnComplete,omitempty"`
	ValidationTimeout     string `yaml:"validationTimeout,omitempty" json:"validationTimeout,omitempty"`
}

// StepSpec declares one step.
type StepSpec struct {
	ID          string                  `yaml:"id" json:"id"`
	Label       string                  `yaml:"label,omitempty" json:"label,omitempty"`
	Description string                  `yaml:"description,omitempty" json:"description,omitempty"`
	Optional    bool                    `yaml:"optional,omitempty" json:"optional,omitempty"`
	Skippable   bool                    `yaml:"skippable,omitempty" json:"skippable,omitempty"`
	Disabled    bool                    `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	Validate    []validators.RuleConfig `yaml:"validate,omitempty" json:"validate,omitempty"`
	Complete    []validators.RuleConfig `yaml:"complete,omitempty" json:"complete,omitempty"`
}

// ResolvePolicy applies the declared flags over workflow.DefaultPolicy.
func (w *Workflow) ResolvePolicy() workflow.Policy {
	p := workflow.DefaultPolicy()
	spec := w.Spec.Policy
	if spec == nil {
		return p
	}
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.Linear, spec.Linear)
	set(&p.AllowStepClick, spec.AllowStepClick)
	set(&p.ValidateOnNext, spec.ValidateOnNext)
	set(&p.AutoAdvanceOnComplete, spec.AutoAdvanceOnComplete)
	return p
}

// ValidationTimeout returns the parsed policy.validationTimeout, zero if unset.
// Parse has already rejected malformed values.
func (w *Workflow) ValidationTimeout() time.Duration {
	if w.Spec.Policy == nil || w.Spec.Policy.ValidationTimeout == "" {
		return 0
	}
	d, _ := time.ParseDuration(w.Spec.Policy.ValidationTimeout)
	return d
}
