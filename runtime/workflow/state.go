package workflow

import "maps"

// State is the single source of truth for where a run is and what
// happened to each step. It is mutated only by the Navigator.
type State struct {
	CurrentIndex int                   `json:"current_index"`
	Statuses     map[string]StepStatus `json:"statuses"`
	Validation   ValidationStatus      `json:"validation"`
}

// NewState creates a State initialized over steps at startIndex.
func NewState(steps []StepDefinition, startIndex int) *State {
	s := &State{}
	s.Initialize(steps, startIndex)
	return s
}

// Initialize clamps startIndex into range, marks that step current and every
// other step upcoming. Steps before the start are not retroactively completed.
func (s *State) Initialize(steps []StepDefinition, startIndex int) {
	s.Statuses = make(map[string]StepStatus, len(steps))
	s.Validation = ValidationIdle
	s.CurrentIndex = 0
	if len(steps) == 0 {
		return
	}

	s.CurrentIndex = clampIndex(startIndex, len(steps))
	for i := range steps {
		status := StatusUpcoming
		if i == s.CurrentIndex {
			status = StatusCurrent
		}
		s.Statuses[steps[i].ID] = status
	}
}

// SetStatus records the status of a step.
func (s *State) SetStatus(stepID string, status StepStatus) {
	if s.Statuses == nil {
		s.Statuses = make(map[string]StepStatus)
	}
	s.Statuses[stepID] = status
}

// StatusOf returns the status of a step and whether the step is known.
func (s *State) StatusOf(stepID string) (StepStatus, bool) {
	status, ok := s.Statuses[stepID]
	return status, ok
}

// Count returns how many steps currently have the given status.
func (s *State) Count(status StepStatus) int {
	n := 0
	for _, st := range s.Statuses {
		if st == status {
			n++
		}
	}
	return n
}

// settleCurrent makes the step at CurrentIndex the only current one. Other
// current entries become upcoming. The step at CurrentIndex keeps an error
// status, and keeps completed or skipped once the run has completed.
func (s *State) settleCurrent(steps []StepDefinition, completed bool) {
	if len(steps) == 0 {
		return
	}
	for i := range steps {
		id := steps[i].ID
		if i != s.CurrentIndex {
			if s.Statuses[id] == StatusCurrent {
				s.Statuses[id] = StatusUpcoming
			}
			continue
		}
		switch s.Statuses[id] {
		case StatusError:
		case StatusCompleted, StatusSkipped:
			if !completed {
				s.Statuses[id] = StatusCurrent
			}
		default:
			s.Statuses[id] = StatusCurrent
		}
	}
}

// Clone returns a deep copy of the State.
func (s *State) Clone() *State {
	c := &State{
		CurrentIndex: s.CurrentIndex,
		Validation:   s.Validation,
		Statuses:     make(map[string]StepStatus, len(s.Statuses)),
	}
	maps.Copy(c.Statuses, s.Statuses)
	return c
}

func clampIndex(i, n int) int {
	switch {
	case n <= 0, i < 0:
		return 0
	case i >= n:
		return n - 1
	default:
		return i
	}
}
