package definition

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/stepflow/runtime/validators"
	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

const minimal = `apiVersion: stepflow.altairalabs.ai/v1alpha1
kind: Workflow
metadata:
  name: onboarding
spec:
  version: 0.1.0
  steps:
    - id: profile
      label: Profile
    - id: done
      label: Done
`

func TestLoadFile(t *testing.T) {
	w, err := LoadFile(filepath.Join("testdata", "checkout.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "checkout", w.Name())
	assert.Equal(t, "storefront", w.Metadata.Labels["team"])
	assert.Equal(t, "1.2.0", w.Spec.Version)
	require.Len(t, w.Spec.Steps, 4)
	assert.True(t, w.Spec.Steps[2].Skippable)
	assert.Len(t, w.Spec.Steps[0].Validate, 2)

	policy := w.ResolvePolicy()
	assert.True(t, policy.Linear)
	assert.True(t, policy.AllowStepClick)
	assert.True(t, policy.ValidateOnNext)
	assert.False(t, policy.AutoAdvanceOnComplete)
	assert.Equal(t, 2*time.Second, w.ValidationTimeout())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name:    "api version",
			doc:     replace(minimal, "stepflow.altairalabs.ai/v1alpha1", "stepflow.altairalabs.ai/v2"),
			wantErr: ErrUnsupportedAPIVersion,
		},
		{
			name:    "kind",
			doc:     replace(minimal, "kind: Workflow", "kind: Pipeline"),
			wantErr: ErrUnsupportedKind,
		},
		{
			name:    "version",
			doc:     replace(minimal, "version: 0.1.0", "version: \"1.0\""),
			wantErr: ErrInvalidVersion,
		},
		{
			name:    "timeout",
			doc:     replace(minimal, "  steps:", "  policy:\n    validationTimeout: soon\n  steps:"),
			wantErr: ErrInvalidPolicy,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParse_SchemaViolations(t *testing.T) {
	doc := replace(minimal, "    - id: done\n", "    - label: Missing id\n      colour: red\n")

	_, err := Parse([]byte(doc))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.GreaterOrEqual(t, len(schemaErr.Violations), 2)
	assert.Contains(t, err.Error(), "workflow schema validation failed")
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("spec: [unclosed"))
	require.Error(t, err)
	var schemaErr *SchemaError
	assert.NotErrorAs(t, err, &schemaErr)
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("v2.3.4-rc.1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v.Major())
	assert.Equal(t, "rc.1", v.Prerelease())

	_, err = ParseVersion("")
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestBuild_DeclaredRulesDriveNavigation(t *testing.T) {
	ctx := context.Background()
	w, err := LoadFile(filepath.Join("testdata", "checkout.yaml"))
	require.NoError(t, err)

	store := validators.NewDataStore()
	nav, err := w.Build(store, nil, workflow.WithRunID("run-1"))
	require.NoError(t, err)
	assert.Equal(t, "checkout", nav.Name())
	assert.Equal(t, "run-1", nav.RunID())
	assert.True(t, nav.Policy().Linear)

	out, err := nav.Advance(ctx)
	assert.Equal(t, workflow.OutcomeInvalid, out)
	assert.ErrorContains(t, err, "missing required fields: email")

	out, err = nav.Activate(ctx)
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeContentFocused, out)

	require.NoError(t, store.Set("account", "email", "guest"))
	_, err = nav.Advance(ctx)
	assert.ErrorContains(t, err, "email must contain @")

	require.NoError(t, store.Set("account", "email", "guest@example.com"))
	out, err = nav.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeCommitted, out)

	require.NoError(t, store.Set("shipping", "zip", "0150"))
	_, err = nav.Advance(ctx)
	require.NoError(t, err)

	out, err = nav.Skip(ctx)
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeCommitted, out)
	assert.Equal(t, 3, nav.CurrentIndex())
}

func TestBuild_UnknownRule(t *testing.T) {
	doc := replace(minimal, "      label: Profile\n", "      label: Profile\n      validate:\n        - type: regex\n")
	w, err := Parse([]byte(doc))
	require.NoError(t, err)

	_, err = w.Build(validators.NewDataStore(), nil)
	assert.ErrorIs(t, err, validators.ErrUnknownRule)
}

func TestBuild_DuplicateStepIDs(t *testing.T) {
	doc := replace(minimal, "id: done", "id: profile")
	w, err := Parse([]byte(doc))
	require.NoError(t, err)

	_, err = w.Build(validators.NewDataStore(), nil)
	assert.ErrorIs(t, err, workflow.ErrInvalidSteps)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	w, err := Parse([]byte(minimal))
	require.NoError(t, err)

	nav, err := w.Build(validators.NewDataStore(), nil)
	require.NoError(t, err)
	_, err = nav.Advance(ctx)
	require.NoError(t, err)

	restored, err := w.Restore(nav.Snapshot(), validators.NewDataStore(), nil)
	require.NoError(t, err)
	assert.Equal(t, nav.RunID(), restored.RunID())
	assert.Equal(t, "onboarding", restored.Name())
	assert.Equal(t, 1, restored.CurrentIndex())
}

func TestLoadPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "onboarding.yaml"), []byte(minimal), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	c, err := LoadPaths(dir, filepath.Join("testdata", "checkout.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"checkout", "onboarding"}, c.Names())
	assert.Equal(t, 2, c.Len())

	w, err := c.Get("onboarding")
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", w.Spec.Version)

	_, err = c.Get("missing")
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestLoadPaths_CollectsErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yml"), []byte("kind: Workflow\n"), 0o600))

	c, err := LoadPaths(dir, filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.Zero(t, c.Len())
}

func TestSchemaIsEmbedded(t *testing.T) {
	assert.Contains(t, Schema(), `"title": "stepflow Workflow"`)
}

func replace(doc, old, repl string) string {
	if !strings.Contains(doc, old) {
		panic("replace: " + old + " not found")
	}
	return strings.Replace(doc, old, repl, 1)
}
