package validators

import (
	"fmt"
	"sort"
	"sync"
)

// RuleFactory compiles a rule from configuration. Expressions, schemas and
// constraints are compiled once at build time.
type RuleFactory func(cfg RuleConfig) (Rule, error)

// Registry maps rule type names to factory functions.
type Registry struct {
	factories map[string]RuleFactory
	mu        sync.RWMutex
}

// NewRegistry creates a new registry with the built-in rules.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]RuleFactory),
	}

	r.Register("required", NewRequiredRule)
	r.Register("jmespath", NewJMESPathRule)
	r.Register("jsonschema", NewJSONSchemaRule)
	r.Register("json_schema", NewJSONSchemaRule) // Alias
	r.Register("semver", NewSemverRule)

	return r
}

// Register adds a rule factory to the registry.
func (r *Registry) Register(ruleType string, factory RuleFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[ruleType] = factory
}

// Get retrieves a rule factory by type.
func (r *Registry) Get(ruleType string) (RuleFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[ruleType]
	return factory, ok
}

// Types returns the registered rule types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Build compiles a list of rule configs into a RuleSet.
func (r *Registry) Build(cfgs []RuleConfig) (RuleSet, error) {
	set := make(RuleSet, 0, len(cfgs))
	for i := range cfgs {
		factory, ok := r.Get(cfgs[i].Type)
		if !ok {
			return nil, fmt.Errorf("rule %d: %w: %q", i, ErrUnknownRule, cfgs[i].Type)
		}
		rule, err := factory(cfgs[i])
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		set = append(set, rule)
	}
	return set, nil
}

// DefaultRegistry is the global rule registry.
var DefaultRegistry = NewRegistry()
