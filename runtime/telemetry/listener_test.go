package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AltairaLabs/stepflow/runtime/events"
)

func newRecordingListener(t *testing.T) (*OTelEventListener, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewOTelEventListener(Tracer(tp)), rec
}

func spansNamed(spans []sdktrace.ReadOnlySpan, name string) []sdktrace.ReadOnlySpan {
	var out []sdktrace.ReadOnlySpan
	for _, s := range spans {
		if s.Name() == name {
			out = append(out, s)
		}
	}
	return out
}

func TestListener_FullRun(t *testing.T) {
	l, rec := newRecordingListener(t)
	bus := events.NewEventBus()
	bus.SubscribeAll(l.OnEvent)

	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	clock := base
	em := events.NewEmitter(bus, "run-1", "checkout").WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	account := events.StepRef{Index: 0, ID: "account"}
	review := events.StepRef{Index: 1, ID: "review"}

	em.WorkflowStarted(2, 0)
	em.ValidationStarted(account)
	em.ValidationPassed(account, 5*time.Millisecond)
	em.StepCompleted(account)
	em.StepChanged(0, 1, review)
	em.ValidationStarted(review)
	em.ValidationFailed(review, errors.New("missing consent"), time.Millisecond)
	em.StepError(review, errors.New("missing consent"))
	em.ValidationStarted(review)
	em.ValidationPassed(review, time.Millisecond)
	em.StepCompleted(review)
	em.WorkflowCompleted(2, 10*time.Second)

	spans := rec.Ended()
	roots := spansNamed(spans, spanWorkflow)
	require.Len(t, roots, 1)
	root := roots[0]
	assert.Equal(t, codes.Ok, root.Status().Code)

	steps := spansNamed(spans, spanStep)
	require.Len(t, steps, 2)
	for _, s := range steps {
		assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID())
	}

	validations := spansNamed(spans, spanValidation)
	require.Len(t, validations, 3)
	var failed int
	for _, v := range validations {
		if v.Status().Code == codes.Error {
			failed++
			assert.Equal(t, "missing consent", v.Status().Description)
		}
	}
	assert.Equal(t, 1, failed)

	l.mu.Lock()
	assert.Empty(t, l.runs)
	l.mu.Unlock()
}

func TestListener_StartRunParentsRootSpan(t *testing.T) {
	l, rec := newRecordingListener(t)
	tracer := l.tracer

	parentCtx, parent := tracer.Start(context.Background(), "http.request")
	l.StartRun(parentCtx, "run-2")

	bus := events.NewEventBus()
	bus.SubscribeAll(l.OnEvent)
	em := events.NewEmitter(bus, "run-2", "onboarding")
	em.WorkflowStarted(1, 0)
	em.WorkflowCompleted(1, time.Second)
	parent.End()

	roots := spansNamed(rec.Ended(), spanWorkflow)
	require.Len(t, roots, 1)
	assert.Equal(t, parent.SpanContext().TraceID(), roots[0].SpanContext().TraceID())
	assert.Equal(t, parent.SpanContext().SpanID(), roots[0].Parent().SpanID())
}

func TestListener_EndRunClosesAbandonedSpans(t *testing.T) {
	l, rec := newRecordingListener(t)
	bus := events.NewEventBus()
	bus.SubscribeAll(l.OnEvent)
	em := events.NewEmitter(bus, "run-3", "checkout")

	em.WorkflowStarted(3, 0)
	em.ValidationStarted(events.StepRef{ID: "account"})
	assert.Empty(t, spansNamed(rec.Ended(), spanWorkflow))

	l.EndRun("run-3")
	spans := rec.Ended()
	assert.Len(t, spansNamed(spans, spanWorkflow), 1)
	assert.Len(t, spansNamed(spans, spanStep), 1)
	assert.Len(t, spansNamed(spans, spanValidation), 1)

	l.EndRun("run-3")
	assert.Len(t, rec.Ended(), len(spans))
}

func TestListener_ResetStartsNewRoot(t *testing.T) {
	l, rec := newRecordingListener(t)
	bus := events.NewEventBus()
	bus.SubscribeAll(l.OnEvent)
	em := events.NewEmitter(bus, "run-4", "checkout")

	em.WorkflowStarted(2, 0)
	em.WorkflowStarted(2, 1)

	assert.Len(t, spansNamed(rec.Ended(), spanWorkflow), 1)
	l.EndRun("run-4")
	assert.Len(t, spansNamed(rec.Ended(), spanWorkflow), 2)
}

func TestListener_StepEventsRecordedOnStepSpan(t *testing.T) {
	l, rec := newRecordingListener(t)
	bus := events.NewEventBus()
	bus.SubscribeAll(l.OnEvent)
	em := events.NewEmitter(bus, "run-5", "checkout")

	gift := events.StepRef{Index: 0, ID: "gift"}
	em.WorkflowStarted(1, 0)
	em.ContentFocused(gift)
	em.StepSkipped(gift)
	em.WorkflowCompleted(1, time.Second)

	steps := spansNamed(rec.Ended(), spanStep)
	require.Len(t, steps, 1)
	var names []string
	for _, e := range steps[0].Events() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{string(events.EventContentFocused), string(events.EventStepSkipped)}, names)
}

func TestTracer_NilUsesGlobal(t *testing.T) {
	assert.NotNil(t, Tracer(nil))
}
