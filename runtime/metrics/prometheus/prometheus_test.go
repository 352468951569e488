package prometheus

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/stepflow/runtime/events"
	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

func resetMetrics() {
	workflowsStartedTotal.Reset()
	workflowsActive.Reset()
	workflowDuration.Reset()
	stepTransitionsTotal.Reset()
	stepOutcomesTotal.Reset()
	validationDuration.Reset()
	validationsTotal.Reset()
	focusMovesTotal.Reset()
}

func TestRecordTransition_Direction(t *testing.T) {
	resetMetrics()

	RecordTransition("checkout", 0, 2)
	RecordTransition("checkout", 2, 1)
	RecordTransition("checkout", 1, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(stepTransitionsTotal.WithLabelValues("checkout", "forward")))
	assert.Equal(t, 1.0, testutil.ToFloat64(stepTransitionsTotal.WithLabelValues("checkout", "backward")))
}

func TestRecordWorkflowStartEnd(t *testing.T) {
	resetMetrics()

	RecordWorkflowStart("checkout")
	RecordWorkflowStart("checkout")
	assert.Equal(t, 2.0, testutil.ToFloat64(workflowsActive.WithLabelValues("checkout")))

	RecordWorkflowEnd("checkout", 42)
	RecordWorkflowAbandoned("checkout")
	assert.Equal(t, 0.0, testutil.ToFloat64(workflowsActive.WithLabelValues("checkout")))
	assert.Equal(t, 2.0, testutil.ToFloat64(workflowsStartedTotal.WithLabelValues("checkout")))
	assert.Equal(t, 1, testutil.CollectAndCount(workflowDuration))
}

func TestMetricsListener_DrivenByNavigator(t *testing.T) {
	resetMetrics()
	ctx := context.Background()
	bus := events.NewEventBus()
	listener := NewMetricsListener()
	bus.SubscribeAll(listener.Handle)

	valid := false
	nav, err := workflow.NewNavigator([]workflow.StepDefinition{
		{ID: "account", Validator: func(context.Context) (bool, error) { return valid, nil }},
		{ID: "gift", Skippable: true},
		{ID: "review"},
	}, workflow.WithEventBus(bus), workflow.WithName("checkout"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(workflowsActive.WithLabelValues("checkout")))

	_, err = nav.Advance(ctx)
	require.Error(t, err)
	valid = true
	_, err = nav.Advance(ctx)
	require.NoError(t, err)
	_, err = nav.Skip(ctx)
	require.NoError(t, err)
	_, ok := nav.FocusPrevious()
	require.True(t, ok)
	_, err = nav.Advance(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(validationsTotal.WithLabelValues("checkout", "account", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(validationsTotal.WithLabelValues("checkout", "account", "passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(stepOutcomesTotal.WithLabelValues("checkout", "account", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(stepOutcomesTotal.WithLabelValues("checkout", "account", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(stepOutcomesTotal.WithLabelValues("checkout", "gift", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(stepOutcomesTotal.WithLabelValues("checkout", "review", "completed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(stepTransitionsTotal.WithLabelValues("checkout", "forward")))
	assert.Equal(t, 1.0, testutil.ToFloat64(focusMovesTotal.WithLabelValues("checkout", "step")))
	assert.Equal(t, 0.0, testutil.ToFloat64(workflowsActive.WithLabelValues("checkout")))
}

func TestMetricsListener_ResetDoesNotDoubleCountActive(t *testing.T) {
	resetMetrics()
	l := NewMetricsListener()
	started := &events.Event{Type: events.EventWorkflowStarted, RunID: "run-1", Workflow: "checkout",
		Data: &events.WorkflowStartedData{StepCount: 2}}

	l.Handle(started)
	l.Handle(started)
	assert.Equal(t, 1.0, testutil.ToFloat64(workflowsActive.WithLabelValues("checkout")))
	assert.Equal(t, 2.0, testutil.ToFloat64(workflowsStartedTotal.WithLabelValues("checkout")))

	l.Forget("run-1")
	l.Forget("run-1")
	assert.Equal(t, 0.0, testutil.ToFloat64(workflowsActive.WithLabelValues("checkout")))
}

func TestMetricsListener_IgnoresMismatchedPayloads(t *testing.T) {
	resetMetrics()
	l := NewMetricsListener()

	l.Handle(&events.Event{Type: events.EventStepCompleted, Workflow: "checkout"})
	l.Handle(&events.Event{Type: events.EventWorkflowCompleted, Workflow: "checkout"})
	assert.Zero(t, testutil.CollectAndCount(stepOutcomesTotal))
	assert.Zero(t, testutil.CollectAndCount(workflowDuration))
}

func TestExporter_Handler(t *testing.T) {
	resetMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(Collectors()...)
	exp := NewExporter(":0",
		WithRegistry(reg),
		WithRoute("GET /workflows", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"workflows":["checkout"]}`))
		})),
	)
	RecordFocusMove("checkout", "content")

	srv := httptest.NewServer(exp.Handler())
	defer srv.Close()

	status, body := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(body, `stepflow_focus_moves_total{target="content",workflow="checkout"} 1`))

	status, body = get(t, srv.URL+"/workflows")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"workflows":["checkout"]}`, body)
}

func TestExporter_HealthCheck(t *testing.T) {
	var down atomic.Bool
	exp := NewExporter(":0", WithRegistry(prometheus.NewRegistry()), WithHealthCheck(func(context.Context) error {
		if down.Load() {
			return errors.New("redis: connection refused")
		}
		return nil
	}))
	srv := httptest.NewServer(exp.Handler())
	defer srv.Close()

	status, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)

	down.Store(true)
	status, body = get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, "connection refused")
}

func TestExporter_StartShutdown(t *testing.T) {
	exp := NewExporter("127.0.0.1:0")

	done := make(chan error, 1)
	go func() { done <- exp.Start() }()

	require.Eventually(t, func() bool {
		exp.mu.Lock()
		defer exp.mu.Unlock()
		return exp.started
	}, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, exp.Shutdown(ctx))
	assert.ErrorIs(t, <-done, http.ErrServerClosed)
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec // test server URL
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}
