package logger

import "context"

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys picked up by ContextHandler.
const (
	ContextKeyWorkflow      contextKey = "workflow"
	ContextKeyRunID         contextKey = "run_id"
	ContextKeyStepID        contextKey = "step_id"
	ContextKeySessionID     contextKey = "session_id"
	ContextKeyRequestID     contextKey = "request_id"
	ContextKeyCorrelationID contextKey = "correlation_id"
	ContextKeyEnvironment   contextKey = "environment"
)

var allContextKeys = []contextKey{
	ContextKeyWorkflow,
	ContextKeyRunID,
	ContextKeyStepID,
	ContextKeySessionID,
	ContextKeyRequestID,
	ContextKeyCorrelationID,
	ContextKeyEnvironment,
}

// WithWorkflow returns a context carrying the workflow name.
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	return context.WithValue(ctx, ContextKeyWorkflow, workflow)
}

// WithRunID returns a context carrying the run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// WithStepID returns a context carrying the step id.
func WithStepID(ctx context.Context, stepID string) context.Context {
	return context.WithValue(ctx, ContextKeyStepID, stepID)
}

// WithSessionID returns a context carrying a bridge session id.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// WithRequestID returns a context carrying the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// WithCorrelationID returns a context carrying a correlation id.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationID, correlationID)
}

// WithEnvironment returns a context carrying the deployment environment.
func WithEnvironment(ctx context.Context, environment string) context.Context {
	return context.WithValue(ctx, ContextKeyEnvironment, environment)
}

// LoggingFields holds the standard logging context fields.
type LoggingFields struct {
	Workflow      string
	RunID         string
	StepID        string
	SessionID     string
	RequestID     string
	CorrelationID string
	Environment   string
}

// WithLoggingContext sets every non-empty field of fields on ctx.
func WithLoggingContext(ctx context.Context, fields *LoggingFields) context.Context {
	if fields == nil {
		return ctx
	}
	set := func(key contextKey, v string) {
		if v != "" {
			ctx = context.WithValue(ctx, key, v)
		}
	}
	set(ContextKeyWorkflow, fields.Workflow)
	set(ContextKeyRunID, fields.RunID)
	set(ContextKeyStepID, fields.StepID)
	set(ContextKeySessionID, fields.SessionID)
	set(ContextKeyRequestID, fields.RequestID)
	set(ContextKeyCorrelationID, fields.CorrelationID)
	set(ContextKeyEnvironment, fields.Environment)
	return ctx
}

// ExtractLoggingFields reads all logging fields from a context.
func ExtractLoggingFields(ctx context.Context) LoggingFields {
	get := func(key contextKey) string {
		s, _ := ctx.Value(key).(string)
		return s
	}
	return LoggingFields{
		Workflow:      get(ContextKeyWorkflow),
		RunID:         get(ContextKeyRunID),
		StepID:        get(ContextKeyStepID),
		SessionID:     get(ContextKeySessionID),
		RequestID:     get(ContextKeyRequestID),
		CorrelationID: get(ContextKeyCorrelationID),
		Environment:   get(ContextKeyEnvironment),
	}
}
