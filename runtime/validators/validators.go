// Package validators builds step validators and completion checks from
// declarative rules.
//
// Rules are evaluated over the data a presentation layer collected for a
// step (see DataStore). Built-in rule types:
//   - required: listed fields are present and non-empty
//   - jmespath: an expression evaluates truthy
//   - jsonschema: the data validates against an inline schema
//   - semver: a field holds a strict semantic version, optionally within a constraint
package validators

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownRule is returned when a rule type is not registered.
	ErrUnknownRule = errors.New("unknown rule type")
	// ErrInvalidRule is returned when a rule's configuration cannot be compiled.
	ErrInvalidRule = errors.New("invalid rule")
)

// RuleConfig is the declarative form of a rule as it appears in a workflow resource.
type RuleConfig struct {
	Type       string         `json:"type" yaml:"type"`
	Fields     []string       `json:"fields,omitempty" yaml:"fields,omitempty"`
	Field      string         `json:"field,omitempty" yaml:"field,omitempty"`
	Expression string         `json:"expression,omitempty" yaml:"expression,omitempty"`
	Schema     map[string]any `json:"schema,omitempty" yaml:"schema,omitempty"`
	Constraint string         `json:"constraint,omitempty" yaml:"constraint,omitempty"`
	Message    string         `json:"message,omitempty" yaml:"message,omitempty"`
}

// Rule checks a step's data.
type Rule interface {
	// Type returns the rule type name.
	Type() string
	// Check returns nil when data satisfies the rule, otherwise a *Violation.
	Check(data map[string]any) error
}

// Violation describes why data failed a rule.
type Violation struct {
	Rule    string
	Message string
}

func (v *Violation) Error() string {
	return v.Message
}

func violation(cfg *RuleConfig, format string, args ...any) *Violation {
	msg := cfg.Message
	if msg == "" {
		msg = fmt.Sprintf(format, args...)
	}
	return &Violation{Rule: cfg.Type, Message: msg}
}

// RuleSet is an ordered list of rules.
type RuleSet []Rule

// Check runs every rule and joins the violations.
func (rs RuleSet) Check(data map[string]any) error {
	var errs []error
	for _, r := range rs {
		if err := r.Check(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Violations unpacks the violations in an error returned by RuleSet.Check.
func Violations(err error) []*Violation {
	if err == nil {
		return nil
	}
	var out []*Violation
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, Violations(e)...)
		}
		return out
	}
	var v *Violation
	if errors.As(err, &v) {
		out = append(out, v)
	}
	return out
}
