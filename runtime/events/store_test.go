package events

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/stepflow/runtime/logger"
)

func TestNewFileEventStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "journal")

	store, err := NewFileEventStore(dir)
	require.NoError(t, err)
	defer store.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileEventStore_AppendRequiresRunID(t *testing.T) {
	store, err := NewFileEventStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	err = store.Append(context.Background(), &Event{Type: EventStepChanged})
	assert.ErrorIs(t, err, ErrMissingRunID)
}

func TestFileEventStore_AppendAndQuery(t *testing.T) {
	store, err := NewFileEventStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, &Event{
		Type: EventWorkflowStarted, Timestamp: base, RunID: "run-a", Workflow: "checkout",
		Data: &WorkflowStartedData{StepCount: 3},
	}))
	require.NoError(t, store.Append(ctx, &Event{
		Type: EventStepChanged, Timestamp: base.Add(time.Second), RunID: "run-a", Workflow: "checkout",
		Data: &StepChangedData{From: 0, To: 1, Step: StepRef{Index: 1, ID: "shipping"}},
	}))
	require.NoError(t, store.Append(ctx, &Event{
		Type: EventStepChanged, Timestamp: base, RunID: "run-b", Workflow: "checkout",
	}))

	all, err := store.Query(ctx, &EventFilter{RunID: "run-a"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, EventWorkflowStarted, all[0].Type)
	assert.Less(t, all[0].Sequence, all[1].Sequence)

	var changed StepChangedData
	require.NoError(t, json.Unmarshal(all[1].Data, &changed))
	assert.Equal(t, "shipping", changed.Step.ID)

	onlyChanges, err := store.Query(ctx, &EventFilter{RunID: "run-a", Types: []EventType{EventStepChanged}})
	require.NoError(t, err)
	assert.Len(t, onlyChanges, 1)

	since, err := store.Query(ctx, &EventFilter{RunID: "run-a", Since: base.Add(500 * time.Millisecond)})
	require.NoError(t, err)
	assert.Len(t, since, 1)

	limited, err := store.Query(ctx, &EventFilter{RunID: "run-a", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestFileEventStore_QueryUnknownRun(t *testing.T) {
	store, err := NewFileEventStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Query(context.Background(), &EventFilter{RunID: "missing"})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = store.Query(context.Background(), &EventFilter{})
	assert.ErrorIs(t, err, ErrMissingRunID)
}

func TestFileEventStore_ListenerJournalsBusEvents(t *testing.T) {
	store, err := NewFileEventStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	bus := NewEventBus()
	bus.SubscribeAll(store.Listener())
	emitter := NewEmitter(bus, "run-c", "signup")

	emitter.WorkflowStarted(2, 0)
	emitter.StepCompleted(StepRef{Index: 0, ID: "account"})

	got, err := store.Query(context.Background(), &EventFilter{RunID: "run-c"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "signup", got[1].Workflow)
}

func TestFileEventStore_SequenceContinuesAfterReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileEventStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Append(ctx, &Event{Type: EventWorkflowStarted, RunID: "run-d"}))
	require.NoError(t, first.Append(ctx, &Event{Type: EventStepChanged, RunID: "run-d"}))
	require.NoError(t, first.Append(ctx, &Event{Type: EventWorkflowStarted, RunID: "run-e"}))
	require.NoError(t, first.Close())

	second, err := NewFileEventStore(dir)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.Append(ctx, &Event{Type: EventStepCompleted, RunID: "run-d"}))

	got, err := second.Query(ctx, &EventFilter{RunID: "run-d"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, e := range got {
		assert.Equal(t, int64(i+1), e.Sequence)
	}

	other, err := second.Query(ctx, &EventFilter{RunID: "run-e"})
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, int64(1), other[0].Sequence)
}

func TestFileEventStore_ListenerLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	store, err := NewFileEventStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	store.Listener()(&Event{Type: EventStepChanged, Workflow: "signup"})

	assert.Contains(t, buf.String(), "event journal append failed")
	assert.Contains(t, buf.String(), ErrMissingRunID.Error())
}
