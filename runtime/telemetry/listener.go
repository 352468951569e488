package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AltairaLabs/stepflow/runtime/events"
)

// Span names.
const (
	spanWorkflow   = "stepflow.workflow"
	spanStep       = "stepflow.step"
	spanValidation = "stepflow.validation"
)

// runState tracks the open spans of one run.
type runState struct {
	root       trace.Span
	ctx        context.Context //nolint:containedctx // needed to parent child spans
	step       trace.Span
	stepIndex  int
	validation trace.Span
}

// OTelEventListener converts workflow events into OTel spans.
//
// Each run gets a root span, one child span per visit to a step, and a child
// of the step span per validator run. Skips, errors and focus moves are
// recorded as span events. It can be passed to EventBus.SubscribeAll.
type OTelEventListener struct {
	tracer trace.Tracer

	mu      sync.Mutex
	parents map[string]context.Context // run id -> parent context set by StartRun
	runs    map[string]*runState
}

// NewOTelEventListener creates a listener that creates OTel spans from workflow events.
func NewOTelEventListener(tracer trace.Tracer) *OTelEventListener {
	return &OTelEventListener{
		tracer:  tracer,
		parents: make(map[string]context.Context),
		runs:    make(map[string]*runState),
	}
}

// StartRun sets the parent context for the root span of runID, e.g. the
// span of the HTTP request that opened a bridge session. Call it before the
// run's first event.
func (l *OTelEventListener) StartRun(parentCtx context.Context, runID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.parents[runID] = parentCtx
}

// EndRun ends every open span of runID. Use it for runs abandoned before completion.
func (l *OTelEventListener) EndRun(runID string) {
	l.mu.Lock()
	rs, ok := l.runs[runID]
	delete(l.runs, runID)
	delete(l.parents, runID)
	l.mu.Unlock()

	if ok {
		rs.root.SetAttributes(attribute.Bool("workflow.abandoned", true))
		rs.end()
	}
}

// OnEvent handles a single workflow event.
func (l *OTelEventListener) OnEvent(evt *events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	//nolint:exhaustive // Only handling span-producing events
	switch evt.Type {
	case events.EventWorkflowStarted:
		l.handleStarted(evt)
	case events.EventStepChanged:
		l.handleStepChanged(evt)
	case events.EventValidationStarted:
		l.handleValidationStarted(evt)
	case events.EventValidationPassed, events.EventValidationFailed:
		l.handleValidationEnded(evt)
	case events.EventStepSkipped, events.EventStepError, events.EventStepCompleted,
		events.EventStepFocused, events.EventContentFocused:
		l.handleStepEvent(evt)
	case events.EventWorkflowCompleted:
		l.handleCompleted(evt)
	}
}

// run returns the state for evt's run, starting a root span when the run
// is unknown (e.g. restored from a snapshot). Caller holds l.mu.
func (l *OTelEventListener) run(evt *events.Event) *runState {
	if rs, ok := l.runs[evt.RunID]; ok {
		return rs
	}

	parent, ok := l.parents[evt.RunID]
	if !ok {
		parent = context.Background()
	}
	ctx, root := l.tracer.Start(parent, spanWorkflow,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(evt.Timestamp),
		trace.WithAttributes(
			attribute.String("workflow.name", evt.Workflow),
			attribute.String("workflow.run_id", evt.RunID),
		),
	)
	rs := &runState{root: root, ctx: ctx, stepIndex: -1}
	l.runs[evt.RunID] = rs
	return rs
}

func (l *OTelEventListener) handleStarted(evt *events.Event) {
	if old, ok := l.runs[evt.RunID]; ok {
		old.root.AddEvent("workflow.reset", trace.WithTimestamp(evt.Timestamp))
		old.end()
		delete(l.runs, evt.RunID)
	}
	rs := l.run(evt)
	data, ok := evt.Data.(*events.WorkflowStartedData)
	if !ok {
		return
	}
	rs.root.SetAttributes(attribute.Int("workflow.step_count", data.StepCount))
	l.openStep(rs, evt, events.StepRef{Index: data.CurrentIndex})
}

func (l *OTelEventListener) handleStepChanged(evt *events.Event) {
	data, ok := evt.Data.(*events.StepChangedData)
	if !ok {
		return
	}
	rs := l.run(evt)
	rs.closeStep(evt, "left")
	l.openStep(rs, evt, data.Step)
}

func (l *OTelEventListener) openStep(rs *runState, evt *events.Event, step events.StepRef) {
	attrs := []attribute.KeyValue{attribute.Int("step.index", step.Index)}
	if step.ID != "" {
		attrs = append(attrs, attribute.String("step.id", step.ID))
	}
	_, rs.step = l.tracer.Start(rs.ctx, spanStep,
		trace.WithTimestamp(evt.Timestamp),
		trace.WithAttributes(attrs...),
	)
	rs.stepIndex = step.Index
}

func (l *OTelEventListener) handleValidationStarted(evt *events.Event) {
	data, ok := evt.Data.(*events.ValidationData)
	if !ok {
		return
	}
	rs := l.run(evt)
	parent := rs.ctx
	if rs.step != nil {
		parent = trace.ContextWithSpan(rs.ctx, rs.step)
	}
	_, rs.validation = l.tracer.Start(parent, spanValidation,
		trace.WithTimestamp(evt.Timestamp),
		trace.WithAttributes(
			attribute.String("step.id", data.Step.ID),
			attribute.Int("step.index", data.Step.Index),
		),
	)
}

func (l *OTelEventListener) handleValidationEnded(evt *events.Event) {
	data, ok := evt.Data.(*events.ValidationData)
	rs, known := l.runs[evt.RunID]
	if !ok || !known || rs.validation == nil {
		return
	}
	span := rs.validation
	rs.validation = nil

	span.SetAttributes(attribute.Int64("validation.duration_ms", data.Duration.Milliseconds()))
	if evt.Type == events.EventValidationFailed {
		if data.Error != nil {
			span.RecordError(data.Error)
		}
		span.SetStatus(codes.Error, data.Reason)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(evt.Timestamp))
}

func (l *OTelEventListener) handleStepEvent(evt *events.Event) {
	rs := l.run(evt)
	target := rs.step
	if target == nil {
		target = rs.root
	}

	var attrs []attribute.KeyValue
	switch data := evt.Data.(type) {
	case *events.StepData:
		attrs = append(attrs, attribute.String("step.id", data.Step.ID), attribute.Int("step.index", data.Step.Index))
	case *events.StepErrorData:
		attrs = append(attrs, attribute.String("step.id", data.Step.ID), attribute.String("error.reason", data.Reason))
		if rs.step != nil && data.Step.Index == rs.stepIndex {
			rs.step.SetStatus(codes.Error, data.Reason)
		}
	}
	target.AddEvent(string(evt.Type), trace.WithTimestamp(evt.Timestamp), trace.WithAttributes(attrs...))
}

func (l *OTelEventListener) handleCompleted(evt *events.Event) {
	rs := l.run(evt)
	if data, ok := evt.Data.(*events.WorkflowCompletedData); ok {
		rs.root.SetAttributes(attribute.Int64("workflow.duration_ms", data.Duration.Milliseconds()))
	}
	rs.root.SetStatus(codes.Ok, "")
	rs.closeStep(evt, "completed")
	rs.root.End(trace.WithTimestamp(evt.Timestamp))
	delete(l.runs, evt.RunID)
	delete(l.parents, evt.RunID)
}

func (rs *runState) closeStep(evt *events.Event, exit string) {
	if rs.step == nil {
		return
	}
	rs.step.SetAttributes(attribute.String("step.exit", exit))
	rs.step.End(trace.WithTimestamp(evt.Timestamp))
	rs.step = nil
	rs.stepIndex = -1
}

func (rs *runState) end() {
	if rs.validation != nil {
		rs.validation.End()
		rs.validation = nil
	}
	if rs.step != nil {
		rs.step.End()
		rs.step = nil
	}
	rs.root.End()
}
