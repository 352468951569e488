package definition

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema/workflow.json
var workflowSchema string

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

// SchemaViolation is a single JSON schema failure.
type SchemaViolation struct {
	Field       string
	Description string
	Value       any
}

func (v SchemaViolation) String() string {
	if v.Value != nil {
		return fmt.Sprintf("%s: %s (value: %v)", v.Field, v.Description, v.Value)
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Description)
}

// SchemaError is returned when a document does not match the workflow schema.
type SchemaError struct {
	Violations []SchemaViolation
}

func (e *SchemaError) Error() string {
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = "  - " + v.String()
	}
	return "workflow schema validation failed:\n" + strings.Join(lines, "\n")
}

// Schema returns the embedded workflow JSON schema.
func Schema() string {
	return workflowSchema
}

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(workflowSchema))
	})
	return compiledSchema, schemaErr
}

// ValidateSchema checks a YAML document against the workflow schema. It
// returns a *SchemaError when the document is well-formed YAML but invalid.
func ValidateSchema(yamlData []byte) error {
	var doc any
	if err := yaml.Unmarshal(yamlData, &doc); err != nil {
		return fmt.Errorf("parse YAML: %w", err)
	}
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert to JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("compile workflow schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return fmt.Errorf("validate workflow schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	schemaErr := &SchemaError{}
	for _, desc := range result.Errors() {
		schemaErr.Violations = append(schemaErr.Violations, SchemaViolation{
			Field:       desc.Field(),
			Description: desc.Description(),
			Value:       desc.Value(),
		})
	}
	return schemaErr
}
