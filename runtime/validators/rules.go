package validators

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/jmespath/go-jmespath"
	"github.com/xeipuuv/gojsonschema"
)

// RequiredRule checks that fields are present and non-empty. Dotted field
// names address nested objects.
type RequiredRule struct {
	cfg RuleConfig
}

// NewRequiredRule creates a required rule.
func NewRequiredRule(cfg RuleConfig) (Rule, error) {
	if len(cfg.Fields) == 0 && cfg.Field != "" {
		cfg.Fields = []string{cfg.Field}
	}
	if len(cfg.Fields) == 0 {
		return nil, fmt.Errorf("%w: required needs at least one field", ErrInvalidRule)
	}
	return &RequiredRule{cfg: cfg}, nil
}

// Type returns "required".
func (r *RequiredRule) Type() string { return "required" }

// Check implements Rule.
func (r *RequiredRule) Check(data map[string]any) error {
	var missing []string
	for _, field := range r.cfg.Fields {
		if v, ok := lookup(data, field); !ok || isEmpty(v) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return violation(&r.cfg, "missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// JMESPathRule checks that an expression evaluates truthy over the data.
type JMESPathRule struct {
	cfg  RuleConfig
	expr *jmespath.JMESPath
}

// NewJMESPathRule compiles a jmespath rule.
func NewJMESPathRule(cfg RuleConfig) (Rule, error) {
	if cfg.Expression == "" {
		return nil, fmt.Errorf("%w: jmespath needs an expression", ErrInvalidRule)
	}
	expr, err := jmespath.Compile(cfg.Expression)
	if err != nil {
		return nil, fmt.Errorf("%w: jmespath %q: %w", ErrInvalidRule, cfg.Expression, err)
	}
	return &JMESPathRule{cfg: cfg, expr: expr}, nil
}

// Type returns "jmespath".
func (r *JMESPathRule) Type() string { return "jmespath" }

// Check implements Rule.
func (r *JMESPathRule) Check(data map[string]any) error {
	result, err := r.expr.Search(asJSONObject(data))
	if err != nil {
		return violation(&r.cfg, "expression %q failed: %v", r.cfg.Expression, err)
	}
	if !truthy(result) {
		return violation(&r.cfg, "expression %q is not satisfied", r.cfg.Expression)
	}
	return nil
}

// JSONSchemaRule validates the data against an inline JSON schema.
type JSONSchemaRule struct {
	cfg    RuleConfig
	schema *gojsonschema.Schema
}

var (
	schemaCacheMu sync.Mutex
	schemaCache   = make(map[string]*gojsonschema.Schema)
)

// NewJSONSchemaRule compiles a jsonschema rule. Identical schemas share one
// compiled instance.
func NewJSONSchemaRule(cfg RuleConfig) (Rule, error) {
	if len(cfg.Schema) == 0 {
		return nil, fmt.Errorf("%w: jsonschema needs a schema", ErrInvalidRule)
	}
	raw, err := json.Marshal(cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("%w: encode schema: %w", ErrInvalidRule, err)
	}
	schema, err := compileSchema(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: compile schema: %w", ErrInvalidRule, err)
	}
	return &JSONSchemaRule{cfg: cfg, schema: schema}, nil
}

func compileSchema(raw string) (*gojsonschema.Schema, error) {
	schemaCacheMu.Lock()
	defer schemaCacheMu.Unlock()

	if schema, ok := schemaCache[raw]; ok {
		return schema, nil
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, err
	}
	schemaCache[raw] = schema
	return schema, nil
}

// Type returns "jsonschema".
func (r *JSONSchemaRule) Type() string { return "jsonschema" }

// Check implements Rule.
func (r *JSONSchemaRule) Check(data map[string]any) error {
	result, err := r.schema.Validate(gojsonschema.NewGoLoader(asJSONObject(data)))
	if err != nil {
		return violation(&r.cfg, "schema validation error: %v", err)
	}
	if result.Valid() {
		return nil
	}
	details := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		details[i] = desc.String()
	}
	return violation(&r.cfg, "schema validation failed: %s", strings.Join(details, "; "))
}

// SemverRule checks that a field holds a strict semantic version.
type SemverRule struct {
	cfg        RuleConfig
	constraint *semver.Constraints
}

// NewSemverRule creates a semver rule.
func NewSemverRule(cfg RuleConfig) (Rule, error) {
	if cfg.Field == "" {
		return nil, fmt.Errorf("%w: semver needs a field", ErrInvalidRule)
	}
	r := &SemverRule{cfg: cfg}
	if cfg.Constraint != "" {
		c, err := semver.NewConstraint(cfg.Constraint)
		if err != nil {
			return nil, fmt.Errorf("%w: semver constraint %q: %w", ErrInvalidRule, cfg.Constraint, err)
		}
		r.constraint = c
	}
	return r, nil
}

// Type returns "semver".
func (r *SemverRule) Type() string { return "semver" }

// Check implements Rule.
func (r *SemverRule) Check(data map[string]any) error {
	v, ok := lookup(data, r.cfg.Field)
	s, isString := v.(string)
	if !ok || !isString || s == "" {
		return violation(&r.cfg, "%s must be a semantic version", r.cfg.Field)
	}
	version, err := semver.StrictNewVersion(strings.TrimPrefix(s, "v"))
	if err != nil {
		return violation(&r.cfg, "%s: invalid semantic version %q", r.cfg.Field, s)
	}
	if r.constraint != nil && !r.constraint.Check(version) {
		return violation(&r.cfg, "%s: version %s does not satisfy %s", r.cfg.Field, s, r.cfg.Constraint)
	}
	return nil
}

func lookup(data map[string]any, path string) (any, bool) {
	var cur any = data
	for part := range strings.SplitSeq(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// truthy applies JMESPath truthiness: false, null, and empty strings,
// arrays and objects are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	return !isEmpty(v)
}

// asJSONObject guarantees a non-nil object so empty step data evaluates
// like {} rather than null.
func asJSONObject(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return data
}
