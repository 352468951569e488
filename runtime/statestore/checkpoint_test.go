package statestore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/stepflow/runtime/events"
	"github.com/AltairaLabs/stepflow/runtime/logger"
	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

func newCheckpointedNavigator(t *testing.T, store Store) (*workflow.Navigator, *events.EventBus) {
	t.Helper()
	bus := events.NewEventBus()
	nav, err := workflow.NewNavigator([]workflow.StepDefinition{
		{ID: "account", Label: "Account"},
		{ID: "shipping", Label: "Shipping", Skippable: true},
		{ID: "review", Label: "Review"},
	}, workflow.WithEventBus(bus), workflow.WithName("checkout"), workflow.WithRunID("run-1"))
	require.NoError(t, err)

	cp := NewCheckpointer(store, nav)
	cp.Attach(bus)
	require.NoError(t, cp.Save(context.Background()))
	return nav, bus
}

func TestCheckpointer_SavesAfterNavigation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	nav, _ := newCheckpointedNavigator(t, store)

	snap, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.CurrentIndex)

	_, err = nav.Advance(ctx)
	require.NoError(t, err)
	snap, err = store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CurrentIndex)
	assert.Equal(t, workflow.StatusCompleted, snap.Statuses["account"])

	_, err = nav.Skip(ctx)
	require.NoError(t, err)
	_, err = nav.Advance(ctx)
	require.NoError(t, err)

	snap, err = store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, snap.Completed)
	assert.Equal(t, workflow.StatusSkipped, snap.Statuses["shipping"])

	restored, err := workflow.NewNavigatorFromSnapshot(nav.Steps(), snap)
	require.NoError(t, err)
	assert.True(t, restored.IsCompleted())
}

func TestCheckpointer_IgnoresOtherRuns(t *testing.T) {
	store := NewMemoryStore()
	_, bus := newCheckpointedNavigator(t, store)

	bus.Publish(&events.Event{Type: events.EventStepChanged, RunID: "run-other"})
	assert.Equal(t, 1, store.Len())
}

type failingStore struct {
	*MemoryStore
}

func (failingStore) Save(context.Context, *workflow.Snapshot) error {
	return errors.New("disk full")
}

func TestCheckpointer_SaveFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	bus := events.NewEventBus()
	nav, err := workflow.NewNavigator([]workflow.StepDefinition{{ID: "a"}, {ID: "b"}},
		workflow.WithEventBus(bus), workflow.WithRunID("run-2"))
	require.NoError(t, err)
	NewCheckpointer(failingStore{NewMemoryStore()}, nav).Attach(bus)

	out, err := nav.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeCommitted, out)
	assert.Contains(t, buf.String(), "checkpoint save failed")
	assert.Contains(t, buf.String(), "disk full")
}
