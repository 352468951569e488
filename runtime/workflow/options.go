package workflow

import (
	"maps"
	"time"

	"github.com/AltairaLabs/stepflow/runtime/events"
)

// TimeFunc returns the current time.
type TimeFunc func() time.Time

// Option configures a Navigator.
type Option func(*Navigator)

// WithPolicy sets the navigation policy.
func WithPolicy(p Policy) Option {
	return func(n *Navigator) {
		n.policy = p
	}
}

// WithStartIndex sets the initial step. Out of range values are clamped.
func WithStartIndex(i int) Option {
	return func(n *Navigator) {
		n.startIndex = i
	}
}

// WithEventBus publishes events to bus through an emitter stamped with the
// navigator's run id and name.
func WithEventBus(bus *events.EventBus) Option {
	return func(n *Navigator) {
		n.bus = bus
	}
}

// WithEmitter publishes events through a caller-built emitter. It takes
// precedence over WithEventBus.
func WithEmitter(e *events.Emitter) Option {
	return func(n *Navigator) {
		n.emitter = e
	}
}

// WithAnnouncer sets the announcement port.
func WithAnnouncer(a Announcer) Option {
	return func(n *Navigator) {
		n.announcer = a
	}
}

// WithFocusPort sets the focus port.
func WithFocusPort(p FocusPort) Option {
	return func(n *Navigator) {
		n.focusPort = p
	}
}

// WithRunID sets the run id. A random UUID is used otherwise.
func WithRunID(id string) Option {
	return func(n *Navigator) {
		if id != "" {
			n.runID = id
		}
	}
}

// WithName sets the workflow name stamped on events and logs.
func WithName(name string) Option {
	return func(n *Navigator) {
		n.name = name
	}
}

// WithTimeFunc replaces the clock, for deterministic tests.
func WithTimeFunc(fn TimeFunc) Option {
	return func(n *Navigator) {
		if fn != nil {
			n.now = fn
		}
	}
}

// WithValidationTimeout bounds each validator call. Zero means no bound.
func WithValidationTimeout(d time.Duration) Option {
	return func(n *Navigator) {
		n.validationTimeout = d
	}
}

// WithMessageFormatter replaces the announcement text renderer.
func WithMessageFormatter(f MessageFormatter) Option {
	return func(n *Navigator) {
		if f != nil {
			n.messages = f
		}
	}
}

// WithMetadata attaches caller metadata carried into snapshots.
func WithMetadata(md map[string]any) Option {
	return func(n *Navigator) {
		n.metadata = make(map[string]any, len(md))
		maps.Copy(n.metadata, md)
	}
}
