package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/stepflow/runtime/events"
	"github.com/AltairaLabs/stepflow/runtime/statestore"
	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

const validWorkflow = `apiVersion: stepflow.altairalabs.ai/v1alpha1
kind: Workflow
metadata:
  name: onboarding
spec:
  version: 1.0.0
  steps:
    - id: profile
      label: Profile
      validate:
        - type: required
          fields: [name]
    - id: done
      label: Done
`

const unlabeledWorkflow = `apiVersion: stepflow.altairalabs.ai/v1alpha1
kind: Workflow
metadata:
  name: bare
spec:
  version: 1.0.0
  steps:
    - id: only
`

const invalidWorkflow = `apiVersion: stepflow.altairalabs.ai/v1alpha1
kind: Workflow
metadata:
  name: broken
spec:
  version: 1.0.0
  steps:
    - label: Missing id
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// execute runs stepctl with args in dir and returns its output.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(dir)

	var out bytes.Buffer
	root := newRootCmd(viper.New())
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "onboarding.yaml", validWorkflow)
	bad := writeFile(t, dir, "broken.yaml", invalidWorkflow)

	out, err := execute(t, dir, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, `✅ onboarding.yaml: workflow "onboarding" v1.0.0, 2 steps`)

	out, err = execute(t, dir, "validate", good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 workflow file(s) failed validation")
	assert.Contains(t, out, "❌ broken.yaml: schema validation failed")
}

func TestValidate_Strict(t *testing.T) {
	dir := t.TempDir()
	bare := writeFile(t, dir, "bare.yaml", unlabeledWorkflow)

	out, err := execute(t, dir, "validate", bare)
	require.NoError(t, err)
	assert.Contains(t, out, `step "only" has no label`)

	_, err = execute(t, dir, "validate", "--strict", bare)
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "stepctl version dev")
}

func TestInitConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "stepctl.yaml", `
listen: ":9000"
workflows: [flows]
redis:
  addr: localhost:6379
  ttl: 2h
log:
  level: debug
  format: json
`)
	t.Chdir(dir)
	t.Setenv("STEPCTL_METRICS_ADDR", ":9191")

	v := viper.New()
	require.NoError(t, initConfig(v))
	s, err := loadSettings(v)
	require.NoError(t, err)

	assert.Equal(t, ":9000", s.Listen)
	assert.Equal(t, ":9191", s.MetricsAddr)
	assert.Equal(t, []string{"flows"}, s.Workflows)
	assert.Equal(t, "localhost:6379", s.Redis.Addr)
	assert.Equal(t, "stepflow", s.Redis.Prefix)
	assert.Equal(t, 2*time.Hour, s.Redis.TTL)
	assert.Equal(t, "debug", s.Log.DefaultLevel)
	assert.Equal(t, "json", s.Log.Format)
	assert.Equal(t, "stepctl", s.OTLP.Service)
	assert.InDelta(t, 20.0, s.Commands.Rate, 0.001)
}

func TestInitConfig_MissingExplicitFile(t *testing.T) {
	v := viper.New()
	v.Set(flagConfig, filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, initConfig(v))
}

func seedRuns(t *testing.T) (*miniredis.Miniredis, *statestore.RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := statestore.NewRedisStore(client)

	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b"} {
		require.NoError(t, store.Save(context.Background(), &workflow.Snapshot{
			RunID:        id,
			Workflow:     "onboarding",
			StepOrder:    []string{"profile", "done"},
			CurrentIndex: i,
			Statuses: map[string]workflow.StepStatus{
				"profile": workflow.StatusCompleted,
				"done":    workflow.StatusCurrent,
			},
			Completed: i == 1,
			StartedAt: base,
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	return mr, store
}

func TestInspect_List(t *testing.T) {
	mr, _ := seedRuns(t)

	out, err := execute(t, t.TempDir(), "inspect", "--redis", mr.Addr())
	require.NoError(t, err)
	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, "run-a")
	assert.Contains(t, out, "run-b")
	assert.Contains(t, out, "2/2 done")
	assert.Contains(t, out, "completed")
}

func TestInspect_ShowRun(t *testing.T) {
	mr, _ := seedRuns(t)
	dir := t.TempDir()

	journalDir := filepath.Join(dir, "journal")
	journal, err := events.NewFileEventStore(journalDir)
	require.NoError(t, err)
	require.NoError(t, journal.Append(context.Background(), &events.Event{
		Type:      events.EventWorkflowStarted,
		Timestamp: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		RunID:     "run-a",
		Workflow:  "onboarding",
		Data:      &events.WorkflowStartedData{StepCount: 2},
	}))
	require.NoError(t, journal.Close())

	out, err := execute(t, dir, "inspect", "run-a", "--redis", mr.Addr(), "--journal", journalDir, "--events")
	require.NoError(t, err)
	assert.Contains(t, out, "Run:       run-a")
	assert.Contains(t, out, "Status:    in progress")
	assert.Contains(t, out, "› 1. profile")
	assert.Contains(t, out, "Events: 1")
	assert.Contains(t, out, "workflow.started")

	out, err = execute(t, dir, "inspect", "run-b", "--redis", mr.Addr(), "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"run_id": "run-b"`)
	assert.Contains(t, out, `"completed": true`)

	out, err = execute(t, dir, "inspect", "run-b", "--redis", mr.Addr(), "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "run_id: run-b")
}

func TestInspect_Errors(t *testing.T) {
	_, err := execute(t, t.TempDir(), "inspect")
	require.ErrorIs(t, err, errNoStore)

	mr, _ := seedRuns(t)
	_, err = execute(t, t.TempDir(), "inspect", "missing", "--redis", mr.Addr())
	require.ErrorIs(t, err, statestore.ErrNotFound)
}

func TestStoreHealth(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, storeHealth(statestore.NewMemoryStore())(ctx))

	mr, store := seedRuns(t)
	check := storeHealth(store)
	assert.NoError(t, check(ctx))

	mr.Close()
	assert.Error(t, check(ctx))
}
