package bridge

import (
	"context"

	"github.com/AltairaLabs/stepflow/runtime/events"
	"github.com/AltairaLabs/stepflow/runtime/metrics/prometheus"
	"github.com/AltairaLabs/stepflow/runtime/telemetry"
)

// MetricsHook records Prometheus metrics for every session. Sessions that
// disconnect before completing are counted as abandoned.
func MetricsHook(l *prometheus.MetricsListener) SessionHook {
	return &metricsHook{listener: l}
}

type metricsHook struct {
	listener *prometheus.MetricsListener
}

func (h *metricsHook) Opened(_ context.Context, _ string, bus *events.EventBus) {
	bus.SubscribeAll(h.listener.Handle)
}

func (h *metricsHook) Closed(runID string) {
	h.listener.Forget(runID)
}

// TracingHook records each session as a trace parented on the upgrade request.
func TracingHook(l *telemetry.OTelEventListener) SessionHook {
	return &tracingHook{listener: l}
}

type tracingHook struct {
	listener *telemetry.OTelEventListener
}

func (h *tracingHook) Opened(ctx context.Context, runID string, bus *events.EventBus) {
	h.listener.StartRun(ctx, runID)
	bus.SubscribeAll(h.listener.OnEvent)
}

func (h *tracingHook) Closed(runID string) {
	h.listener.EndRun(runID)
}
