package statestore

import (
	"context"
	"time"

	"github.com/AltairaLabs/stepflow/runtime/events"
	"github.com/AltairaLabs/stepflow/runtime/logger"
	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

const defaultSaveTimeout = 5 * time.Second

// SnapshotSource is satisfied by *workflow.Navigator.
type SnapshotSource interface {
	RunID() string
	Snapshot() *workflow.Snapshot
}

// Checkpointer saves a run's snapshot after every state-changing event.
// Save failures are logged and never interrupt navigation.
type Checkpointer struct {
	store   Store
	source  SnapshotSource
	timeout time.Duration
}

// NewCheckpointer creates a checkpointer for source.
func NewCheckpointer(store Store, source SnapshotSource) *Checkpointer {
	return &Checkpointer{store: store, source: source, timeout: defaultSaveTimeout}
}

// WithSaveTimeout bounds each save. Zero disables the bound.
func (c *Checkpointer) WithSaveTimeout(d time.Duration) *Checkpointer {
	c.timeout = d
	return c
}

// Attach subscribes the checkpointer to the events that change run state.
// Events of other runs sharing the bus are ignored.
func (c *Checkpointer) Attach(bus *events.EventBus) {
	for _, t := range []events.EventType{
		events.EventWorkflowStarted,
		events.EventStepChanged,
		events.EventStepSkipped,
		events.EventStepError,
		events.EventWorkflowCompleted,
	} {
		bus.Subscribe(t, c.onEvent)
	}
}

func (c *Checkpointer) onEvent(e *events.Event) {
	if e.RunID != c.source.RunID() {
		return
	}
	if err := c.Save(context.Background()); err != nil {
		logger.Warn("checkpoint save failed",
			"run_id", e.RunID,
			"workflow", e.Workflow,
			"event", e.Type,
			"error", err,
		)
	}
}

// Save writes the current snapshot.
func (c *Checkpointer) Save(ctx context.Context) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.store.Save(ctx, c.source.Snapshot())
}
