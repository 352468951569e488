package bridge

import (
	"github.com/AltairaLabs/stepflow/runtime/events"
	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

// Command names accepted from clients.
const (
	CmdAdvance          = "advance"
	CmdRetreat          = "retreat"
	CmdSkip             = "skip"
	CmdNavigate         = "navigate"
	CmdFocusNext        = "focusNext"
	CmdFocusPrevious    = "focusPrevious"
	CmdFocusFirst       = "focusFirst"
	CmdFocusLast        = "focusLast"
	CmdFocusStep        = "focusStep"
	CmdActivate         = "activate"
	CmdContentCompleted = "contentCompleted"
	CmdData             = "data"
	CmdReset            = "reset"
)

// FrameType identifies a server to client frame.
type FrameType string

// Frame types sent to clients.
const (
	FrameState    FrameType = "state"
	FrameEvent    FrameType = "event"
	FrameAnnounce FrameType = "announce"
	FrameFocus    FrameType = "focus"
	FrameResult   FrameType = "result"
)

// Focus command outcomes. Navigation commands report workflow.Outcome names.
const (
	outcomeMoved = "moved"
	outcomeNoop  = "noop"
)

// Command is a client to server frame.
type Command struct {
	// ID is echoed back on the result frame for correlation.
	ID      string         `json:"id,omitempty"`
	Command string         `json:"command"`
	Index   *int           `json:"index,omitempty"`
	Step    string         `json:"step,omitempty"`
	Values  map[string]any `json:"values,omitempty"`
}

// Frame is a server to client frame. Which fields are set depends on Type.
type Frame struct {
	Type FrameType `json:"type"`

	// event
	Event events.EventType `json:"event,omitempty"`
	Data  any              `json:"data,omitempty"`

	// announce
	Message string `json:"message,omitempty"`

	// focus, and the focused index on focus command results
	Index   *int `json:"index,omitempty"`
	Content bool `json:"content,omitempty"`

	// result
	ID      string `json:"id,omitempty"`
	Command string `json:"command,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	Error   string `json:"error,omitempty"`

	// state
	State *StateView `json:"state,omitempty"`
}

// StateView is the presentation-ready view of a run.
type StateView struct {
	RunID        string                    `json:"run_id"`
	Workflow     string                    `json:"workflow"`
	CurrentIndex int                       `json:"current_index"`
	FocusedIndex int                       `json:"focused_index"`
	Progress     float64                   `json:"progress"`
	Completed    bool                      `json:"completed"`
	Validation   workflow.ValidationStatus `json:"validation"`
	Steps        []StepView                `json:"steps"`
}

// StepView describes one step header.
type StepView struct {
	ID          string              `json:"id"`
	Label       string              `json:"label"`
	Description string              `json:"description,omitempty"`
	Optional    bool                `json:"optional,omitempty"`
	Skippable   bool                `json:"skippable,omitempty"`
	Disabled    bool                `json:"disabled,omitempty"`
	Status      workflow.StepStatus `json:"status"`
	TabIndex    int                 `json:"tab_index"`
}

func stateView(nav *workflow.Navigator) *StateView {
	steps := nav.Steps()
	view := &StateView{
		RunID:        nav.RunID(),
		Workflow:     nav.Name(),
		CurrentIndex: nav.CurrentIndex(),
		FocusedIndex: nav.FocusedIndex(),
		Progress:     nav.ProgressFraction(),
		Completed:    nav.IsCompleted(),
		Validation:   nav.ValidationStatus(),
		Steps:        make([]StepView, len(steps)),
	}
	for i, s := range steps {
		status, _ := nav.StatusOf(i)
		view.Steps[i] = StepView{
			ID:          s.ID,
			Label:       s.Title(),
			Description: s.Description,
			Optional:    s.Optional,
			Skippable:   s.Skippable,
			Disabled:    s.Disabled,
			Status:      status,
			TabIndex:    nav.TabIndex(i),
		}
	}
	return view
}

func intPtr(i int) *int {
	return &i
}
