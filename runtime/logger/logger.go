// Package logger provides structured logging for stepflow components.
//
// It wraps log/slog with:
//   - a global DefaultLogger configured from the LOG_LEVEL environment variable
//   - level helpers with context variants
//   - a ContextHandler that copies workflow/run/step identifiers from a
//     context.Context onto every record
//   - navigation-specific helpers used by the workflow engine
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	// DefaultLogger is the global structured logger instance.
	// It is initialized at LevelInfo unless LOG_LEVEL says otherwise.
	DefaultLogger *slog.Logger

	mu        sync.Mutex
	logOutput io.Writer = os.Stderr
	logFormat           = FormatText
	logLevel            = new(slog.LevelVar)
	common    []slog.Attr
)

func init() {
	logLevel.Set(ParseLevel(os.Getenv("LOG_LEVEL")))
	rebuild()
}

// ParseLevel maps a level name to a slog.Level. Unknown names map to Info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// rebuild recreates DefaultLogger from the package settings. Caller holds mu or is init.
func rebuild() {
	opts := &slog.HandlerOptions{Level: logLevel}

	var base slog.Handler
	if logFormat == FormatJSON {
		base = slog.NewJSONHandler(logOutput, opts)
	} else {
		base = slog.NewTextHandler(logOutput, opts)
	}
	DefaultLogger = slog.New(NewContextHandler(base, common...))
}

// SetLevel changes the logging level for all subsequent log operations.
func SetLevel(level slog.Level) {
	logLevel.Set(level)
}

// SetVerbose enables debug-level logging when verbose is true, otherwise info-level.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

// SetOutput redirects log output, e.g. away from a terminal UI.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logOutput = w
	rebuild()
}

// Enabled reports whether records at level would be emitted.
func Enabled(level slog.Level) bool {
	return DefaultLogger.Enabled(context.Background(), level)
}

// Info logs an informational message with key-value attributes.
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs an informational message with context and attributes.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs a debug-level message with attributes.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// DebugContext logs a debug message with context and attributes.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs a warning message with attributes.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// WarnContext logs a warning message with context and attributes.
func WarnContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.WarnContext(ctx, msg, args...)
}

// Error logs an error message with attributes.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// ErrorContext logs an error message with context and attributes.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// Navigation logs a committed step transition.
func Navigation(ctx context.Context, workflow string, from, to int, stepID string, attrs ...any) {
	all := make([]any, 0, 8+len(attrs))
	all = append(all,
		"workflow", workflow,
		"from", from,
		"to", to,
		"step", stepID,
	)
	all = append(all, attrs...)
	DebugContext(ctx, "step navigation committed", all...)
}

// NavigationRejected logs a navigation attempt refused by a guard.
func NavigationRejected(ctx context.Context, workflow string, from, to int, reason error) {
	DebugContext(ctx, "step navigation rejected",
		"workflow", workflow,
		"from", from,
		"to", to,
		"reason", reason,
	)
}

// ValidationFailure logs a step validator rejecting or failing.
func ValidationFailure(ctx context.Context, workflow, stepID string, index int, err error) {
	InfoContext(ctx, "step validation failed",
		"workflow", workflow,
		"step", stepID,
		"index", index,
		"error", err,
	)
}
