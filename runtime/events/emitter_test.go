package events

import (
	"errors"
	"testing"
	"time"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
}

func TestEmitterPublishesSharedContext(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	emitter := NewEmitter(bus, "run-1", "checkout").WithClock(fixedClock)

	var got *Event
	bus.Subscribe(EventStepChanged, func(e *Event) { got = e })

	emitter.StepChanged(0, 1, StepRef{Index: 1, ID: "shipping", Label: "Shipping"})

	if got == nil {
		t.Fatal("step.changed not delivered")
	}
	if got.RunID != "run-1" || got.Workflow != "checkout" {
		t.Fatalf("unexpected context: %+v", got)
	}
	if !got.Timestamp.Equal(fixedClock()) {
		t.Fatalf("Timestamp = %v, want %v", got.Timestamp, fixedClock())
	}

	data, ok := got.Data.(*StepChangedData)
	if !ok {
		t.Fatalf("unexpected data type: %T", got.Data)
	}
	if data.From != 0 || data.To != 1 || data.Step.ID != "shipping" {
		t.Fatalf("unexpected payload: %+v", data)
	}
}

func TestEmitterPublishesVariousEvents(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	emitter := NewEmitter(bus, "run-2", "signup")

	var types []EventType
	bus.SubscribeAll(func(e *Event) { types = append(types, e.Type) })

	step := StepRef{Index: 0, ID: "account"}
	emitter.WorkflowStarted(3, 0)
	emitter.StepCompleted(step)
	emitter.StepSkipped(step)
	emitter.StepError(step, errors.New("boom"))
	emitter.StepFocused(step)
	emitter.ContentFocused(step)
	emitter.ValidationStarted(step)
	emitter.ValidationPassed(step, time.Millisecond)
	emitter.ValidationFailed(step, errors.New("nope"), time.Millisecond)
	emitter.WorkflowCompleted(3, time.Second)

	want := []EventType{
		EventWorkflowStarted,
		EventStepCompleted,
		EventStepSkipped,
		EventStepError,
		EventStepFocused,
		EventContentFocused,
		EventValidationStarted,
		EventValidationPassed,
		EventValidationFailed,
		EventWorkflowCompleted,
	}
	if len(types) != len(want) {
		t.Fatalf("got %d events, want %d: %v", len(types), len(want), types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestEmitterStepErrorCarriesReason(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	emitter := NewEmitter(bus, "run-3", "signup")

	var data *StepErrorData
	bus.Subscribe(EventStepError, func(e *Event) { data, _ = e.Data.(*StepErrorData) })

	cause := errors.New("email is required")
	emitter.StepError(StepRef{Index: 2, ID: "profile"}, cause)

	if data == nil {
		t.Fatal("step.error not delivered")
	}
	if !errors.Is(data.Error, cause) {
		t.Fatalf("Error = %v, want %v", data.Error, cause)
	}
	if data.Reason != "email is required" {
		t.Fatalf("Reason = %q", data.Reason)
	}
}

func TestEmitterNilSafe(t *testing.T) {
	t.Parallel()

	var emitter *Emitter
	emitter.StepChanged(0, 1, StepRef{})
	emitter.WorkflowCompleted(1, 0)

	if emitter.RunID() != "" || emitter.Workflow() != "" || emitter.Bus() != nil {
		t.Fatal("nil emitter accessors should return zero values")
	}

	NewEmitter(nil, "run", "wf").StepCompleted(StepRef{})
}
