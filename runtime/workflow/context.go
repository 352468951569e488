package workflow

import (
	"maps"
	"time"
)

// Transition records a single committed transition.
type Transition struct {
	From      int            `json:"from" yaml:"from"`
	To        int            `json:"to" yaml:"to"`
	Kind      TransitionKind `json:"kind" yaml:"kind"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
}

// Snapshot is a persistable copy of a run.
type Snapshot struct {
	RunID        string                `json:"run_id" yaml:"run_id"`
	Workflow     string                `json:"workflow" yaml:"workflow"`
	StepOrder    []string              `json:"step_order" yaml:"step_order"`
	CurrentIndex int                   `json:"current_index" yaml:"current_index"`
	Statuses     map[string]StepStatus `json:"statuses" yaml:"statuses"`
	Validation   ValidationStatus      `json:"validation" yaml:"validation"`
	Completed    bool                  `json:"completed" yaml:"completed"`
	History      []Transition          `json:"history" yaml:"history"`
	Metadata     map[string]any        `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	StartedAt    time.Time             `json:"started_at" yaml:"started_at"`
	UpdatedAt    time.Time             `json:"updated_at" yaml:"updated_at"`
}

// Clone returns a deep copy of the Snapshot.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	if s.StepOrder != nil {
		c.StepOrder = append([]string(nil), s.StepOrder...)
	}
	if s.Statuses != nil {
		c.Statuses = make(map[string]StepStatus, len(s.Statuses))
		maps.Copy(c.Statuses, s.Statuses)
	}
	if s.History != nil {
		c.History = append([]Transition(nil), s.History...)
	}
	if s.Metadata != nil {
		c.Metadata = make(map[string]any, len(s.Metadata))
		maps.Copy(c.Metadata, s.Metadata)
	}
	return &c
}

// TransitionCount returns the number of transitions recorded.
func (s *Snapshot) TransitionCount() int {
	return len(s.History)
}

// LastTransition returns the most recent transition, or nil if none.
func (s *Snapshot) LastTransition() *Transition {
	if len(s.History) == 0 {
		return nil
	}
	t := s.History[len(s.History)-1]
	return &t
}
