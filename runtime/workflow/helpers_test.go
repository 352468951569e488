package workflow

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/stepflow/runtime/events"
)

func threeSteps() []StepDefinition {
	return []StepDefinition{
		{ID: "account", Label: "Account"},
		{ID: "shipping", Label: "Shipping", Description: "Where should we ship?"},
		{ID: "review", Label: "Review"},
	}
}

type recorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func newRecorder(bus *events.EventBus) *recorder {
	r := &recorder{}
	bus.SubscribeAll(func(e *events.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	})
	return r
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recorder) count(t events.EventType) int {
	n := 0
	for _, et := range r.types() {
		if et == t {
			n++
		}
	}
	return n
}

func (r *recorder) last(t events.EventType) *events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == t {
			return r.events[i]
		}
	}
	return nil
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fakeFocus struct {
	mu      sync.Mutex
	steps   []int
	content []int
}

func (f *fakeFocus) FocusStep(index int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, index)
}

func (f *fakeFocus) FocusContent(index int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content = append(f.content, index)
}

type announcements struct {
	mu       sync.Mutex
	messages []string
}

func (a *announcements) Announce(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
}

func (a *announcements) lastMessage() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.messages) == 0 {
		return ""
	}
	return a.messages[len(a.messages)-1]
}

// newTestNavigator builds a navigator wired to a fresh bus and drops the
// construction events from the recorder.
func newTestNavigator(t *testing.T, steps []StepDefinition, opts ...Option) (*Navigator, *recorder) {
	t.Helper()
	bus := events.NewEventBus()
	rec := newRecorder(bus)
	n, err := NewNavigator(steps, append([]Option{WithEventBus(bus), WithName("checkout")}, opts...)...)
	require.NoError(t, err)
	rec.reset()
	return n, rec
}

func requireSingleCurrent(t *testing.T, n *Navigator) {
	t.Helper()
	require.Equal(t, 1, n.State().Count(StatusCurrent))
	status, ok := n.StatusOf(n.CurrentIndex())
	require.True(t, ok)
	require.Equal(t, StatusCurrent, status)
}
