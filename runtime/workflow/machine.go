package workflow

import (
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/AltairaLabs/stepflow/runtime/events"
)

// Navigator drives one run through an ordered list of steps.
//
// Commands are admitted one at a time; a command arriving while another is
// in flight returns OutcomeBusy. Queries and focus moves may be called from
// any goroutine, including while a validator is running. Events are
// published synchronously after the state lock is released and before the
// command returns, so listeners can query the navigator.
type Navigator struct {
	mu   sync.Mutex
	gate *semaphore.Weighted

	steps []StepDefinition
	index map[string]int

	policy     Policy
	startIndex int
	state      *State
	focused    int
	completed  bool
	history    []Transition
	metadata   map[string]any
	startedAt  time.Time
	updatedAt  time.Time

	runID             string
	name              string
	bus               *events.EventBus
	emitter           *events.Emitter
	announcer         Announcer
	focusPort         FocusPort
	messages          MessageFormatter
	now               TimeFunc
	validationTimeout time.Duration
}

// NewNavigator creates a Navigator over steps and publishes workflow.started
// when the list is non-empty.
func NewNavigator(steps []StepDefinition, opts ...Option) (*Navigator, error) {
	if err := checkSteps(steps); err != nil {
		return nil, err
	}

	n := newNavigator(steps, opts)
	n.state = NewState(n.steps, n.startIndex)
	n.focused = n.state.CurrentIndex
	n.startedAt = n.now()
	n.updatedAt = n.startedAt

	if len(n.steps) > 0 {
		n.emitter.WorkflowStarted(len(n.steps), n.state.CurrentIndex)
	}
	return n, nil
}

// NewNavigatorFromSnapshot rebuilds a Navigator positioned where snap left
// off. The snapshot's run id and workflow name are reused unless overridden
// by opts. No workflow.started event is published.
func NewNavigatorFromSnapshot(steps []StepDefinition, snap *Snapshot, opts ...Option) (*Navigator, error) {
	if err := checkSteps(steps); err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrSnapshotMismatch)
	}
	if err := matchSnapshot(steps, snap); err != nil {
		return nil, err
	}

	base := []Option{WithRunID(snap.RunID), WithName(snap.Workflow)}
	n := newNavigator(steps, append(base, opts...))

	n.state = &State{
		CurrentIndex: clampIndex(snap.CurrentIndex, len(n.steps)),
		Statuses:     make(map[string]StepStatus, len(n.steps)),
		Validation:   snap.Validation,
	}
	for i := range n.steps {
		status, ok := snap.Statuses[n.steps[i].ID]
		if !ok {
			status = StatusUpcoming
		}
		n.state.Statuses[n.steps[i].ID] = status
	}
	n.state.settleCurrent(n.steps, snap.Completed)
	switch n.state.Validation {
	case ValidationPending, "":
		n.state.Validation = ValidationIdle
	}

	n.focused = n.state.CurrentIndex
	n.completed = snap.Completed
	n.history = append([]Transition(nil), snap.History...)
	if snap.Metadata != nil && n.metadata == nil {
		n.metadata = make(map[string]any, len(snap.Metadata))
		maps.Copy(n.metadata, snap.Metadata)
	}
	n.startedAt = snap.StartedAt
	n.updatedAt = snap.UpdatedAt
	return n, nil
}

func newNavigator(steps []StepDefinition, opts []Option) *Navigator {
	n := &Navigator{
		gate:     semaphore.NewWeighted(1),
		steps:    append([]StepDefinition(nil), steps...),
		index:    make(map[string]int, len(steps)),
		policy:   DefaultPolicy(),
		runID:    uuid.NewString(),
		messages: DefaultMessages{},
		now:      time.Now,
	}
	for i := range n.steps {
		n.index[n.steps[i].ID] = i
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.emitter == nil {
		n.emitter = events.NewEmitter(n.bus, n.runID, n.name).WithClock(n.now)
	}
	return n
}

func checkSteps(steps []StepDefinition) error {
	if res := ValidateSteps(steps); res.HasErrors() {
		return fmt.Errorf("%w: %s", ErrInvalidSteps, strings.Join(res.Errors, "; "))
	}
	return nil
}

func matchSnapshot(steps []StepDefinition, snap *Snapshot) error {
	if len(snap.StepOrder) > 0 {
		if len(snap.StepOrder) != len(steps) {
			return fmt.Errorf("%w: snapshot has %d steps, workflow has %d",
				ErrSnapshotMismatch, len(snap.StepOrder), len(steps))
		}
		for i, id := range snap.StepOrder {
			if steps[i].ID != id {
				return fmt.Errorf("%w: step %d is %q, snapshot has %q",
					ErrSnapshotMismatch, i, steps[i].ID, id)
			}
		}
		return nil
	}

	known := make(map[string]struct{}, len(steps))
	for i := range steps {
		known[steps[i].ID] = struct{}{}
	}
	for id := range snap.Statuses {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w: unknown step %q", ErrSnapshotMismatch, id)
		}
	}
	return nil
}

// RunID returns the run id.
func (n *Navigator) RunID() string {
	return n.runID
}

// Name returns the workflow name.
func (n *Navigator) Name() string {
	return n.name
}

// Policy returns the navigation policy.
func (n *Navigator) Policy() Policy {
	return n.policy
}

// EventBus returns the bus events are published to, or nil.
func (n *Navigator) EventBus() *events.EventBus {
	return n.emitter.Bus()
}

// Len returns the number of steps.
func (n *Navigator) Len() int {
	return len(n.steps)
}

// Steps returns a copy of the step definitions.
func (n *Navigator) Steps() []StepDefinition {
	return append([]StepDefinition(nil), n.steps...)
}

// Step returns the definition at index.
func (n *Navigator) Step(index int) (StepDefinition, bool) {
	if index < 0 || index >= len(n.steps) {
		return StepDefinition{}, false
	}
	return n.steps[index], true
}

// IndexOf returns the index of the step with the given id.
func (n *Navigator) IndexOf(stepID string) (int, bool) {
	i, ok := n.index[stepID]
	return i, ok
}

// CurrentIndex returns the index of the current step, 0 for an empty workflow.
func (n *Navigator) CurrentIndex() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.CurrentIndex
}

// CurrentStep returns the current step definition, false for an empty workflow.
func (n *Navigator) CurrentStep() (StepDefinition, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.steps) == 0 {
		return StepDefinition{}, false
	}
	return n.steps[n.state.CurrentIndex], true
}

// StatusOf returns the status of step index. Out of range indexes report
// upcoming and false.
func (n *Navigator) StatusOf(index int) (StepStatus, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if index < 0 || index >= len(n.steps) {
		return StatusUpcoming, false
	}
	return n.state.Statuses[n.steps[index].ID], true
}

// StatusOfStep returns the status of the step with the given id.
func (n *Navigator) StatusOfStep(stepID string) (StepStatus, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.StatusOf(stepID)
}

// ValidationStatus returns the engine-wide validation status.
func (n *Navigator) ValidationStatus() ValidationStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.Validation
}

// ProgressFraction returns current/(len-1), or 0 when there is at most one step.
func (n *Navigator) ProgressFraction() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.steps) <= 1 {
		return 0
	}
	return float64(n.state.CurrentIndex) / float64(len(n.steps)-1)
}

// IsCompleted reports whether the terminal completion has run.
func (n *Navigator) IsCompleted() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.completed
}

// State returns a copy of the workflow state.
func (n *Navigator) State() *State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.Clone()
}

// Snapshot returns a persistable copy of the run.
func (n *Navigator) Snapshot() *Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()

	order := make([]string, len(n.steps))
	for i := range n.steps {
		order[i] = n.steps[i].ID
	}
	snap := &Snapshot{
		RunID:        n.runID,
		Workflow:     n.name,
		StepOrder:    order,
		CurrentIndex: n.state.CurrentIndex,
		Statuses:     n.state.Clone().Statuses,
		Validation:   n.state.Validation,
		Completed:    n.completed,
		History:      append([]Transition(nil), n.history...),
		StartedAt:    n.startedAt,
		UpdatedAt:    n.updatedAt,
	}
	if n.metadata != nil {
		snap.Metadata = make(map[string]any, len(n.metadata))
		maps.Copy(snap.Metadata, n.metadata)
	}
	return snap
}

// ref builds an event reference for step index. Caller holds n.mu or the
// index is known to be stable.
func (n *Navigator) ref(index int) events.StepRef {
	return events.StepRef{Index: index, ID: n.steps[index].ID, Label: n.steps[index].Label}
}

// record appends a transition. Caller must hold n.mu.
func (n *Navigator) record(from, to int, kind TransitionKind) {
	ts := n.now()
	n.history = append(n.history, Transition{From: from, To: to, Kind: kind, Timestamp: ts})
	n.updatedAt = ts
}

func (n *Navigator) announce(message string) {
	if n.announcer != nil && message != "" {
		n.announcer.Announce(message)
	}
}
