// Package tui provides an interactive terminal presentation layer for a
// workflow navigator. The model implements workflow.FocusPort and
// workflow.Announcer so the navigator drives focus and the live region.
package tui

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AltairaLabs/stepflow/runtime/validators"
	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

const (
	maxAnnouncements = 5
	maxProgressWidth = 60
	progressPadding  = 4
	noContentFocus   = -1
)

// ErrInvalidEntry is reported when an edit is not of the form key=value.
var ErrInvalidEntry = errors.New("expected key=value")

// navResultMsg reports a navigation command finishing.
type navResultMsg struct {
	action  string
	outcome workflow.Outcome
	err     error
}

// Model is the bubbletea model for one workflow run.
type Model struct {
	ctx   context.Context //nolint:containedctx // commands run outside Update
	title string
	nav   *workflow.Navigator
	data  *validators.DataStore

	keys     keyMap
	editKeys editKeyMap
	help     help.Model
	spinner  spinner.Model
	progress progress.Model
	input    textinput.Model

	editing     bool
	busy        bool
	lastAction  string
	lastOutcome workflow.Outcome
	lastErr     error
	width       int

	// Port state, written by the navigator from command goroutines.
	mu            sync.Mutex
	announcements []string
	contentFocus  int
}

// New creates a model titled title that edits step data in data.
// Attach a navigator built with the model as its FocusPort and Announcer
// before running it.
func New(ctx context.Context, title string, data *validators.DataStore) *Model {
	in := textinput.New()
	in.Placeholder = "key=value"
	in.Prompt = "› "
	_ = in.Cursor.SetMode(cursor.CursorStatic)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		ctx:          ctx,
		title:        title,
		data:         data,
		keys:         defaultKeyMap(),
		editKeys:     defaultEditKeyMap(),
		help:         help.New(),
		spinner:      sp,
		progress:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		input:        in,
		contentFocus: noContentFocus,
	}
}

// Attach sets the navigator the model drives.
func (m *Model) Attach(nav *workflow.Navigator) {
	m.nav = nav
}

// FocusStep implements workflow.FocusPort. Header focus is rendered from
// the navigator's focus cursor.
func (m *Model) FocusStep(int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contentFocus = noContentFocus
}

// FocusContent implements workflow.FocusPort.
func (m *Model) FocusContent(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contentFocus = index
}

// Announce implements workflow.Announcer.
func (m *Model) Announce(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.announcements = append(m.announcements, message)
	if len(m.announcements) > maxAnnouncements {
		m.announcements = m.announcements[len(m.announcements)-maxAnnouncements:]
	}
}

// LastAnnouncement returns the most recent announcement.
func (m *Model) LastAnnouncement() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.announcements) == 0 {
		return ""
	}
	return m.announcements[len(m.announcements)-1]
}

func (m *Model) contentFocused() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contentFocus
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.progress.Width = min(msg.Width-progressPadding, maxProgressWidth)
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case navResultMsg:
		m.busy = false
		m.lastAction = msg.action
		m.lastOutcome = msg.outcome
		m.lastErr = msg.err
		if msg.outcome == workflow.OutcomeContentFocused {
			return m, m.startEditing()
		}
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m, m.handleEditKey(msg)
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Quit) {
		return tea.Quit
	}
	if m.busy || m.nav == nil {
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Previous):
		m.nav.FocusPrevious()
	case key.Matches(msg, m.keys.Next):
		m.nav.FocusNext()
	case key.Matches(msg, m.keys.First):
		m.nav.FocusFirst()
	case key.Matches(msg, m.keys.Last):
		m.nav.FocusLast()
	case key.Matches(msg, m.keys.Activate):
		return m.run("activate", m.nav.Activate)
	case key.Matches(msg, m.keys.Advance):
		return m.run("advance", m.nav.Advance)
	case key.Matches(msg, m.keys.Retreat):
		return m.run("retreat", m.nav.Retreat)
	case key.Matches(msg, m.keys.Skip):
		return m.run("skip", m.nav.Skip)
	case key.Matches(msg, m.keys.Reset):
		return m.run("reset", func(ctx context.Context) (workflow.Outcome, error) {
			return m.nav.Reset(ctx, 0)
		})
	case key.Matches(msg, m.keys.Edit):
		return m.startEditing()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return nil
}

// run executes a navigation command off the update loop; validators may block.
func (m *Model) run(action string, fn func(context.Context) (workflow.Outcome, error)) tea.Cmd {
	m.busy = true
	ctx := m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		outcome, err := fn(ctx)
		return navResultMsg{action: action, outcome: outcome, err: err}
	})
}

func (m *Model) startEditing() tea.Cmd {
	if m.nav == nil || m.nav.IsCompleted() {
		return nil
	}
	if _, ok := m.nav.CurrentStep(); !ok {
		return nil
	}
	m.editing = true
	m.lastErr = nil
	return m.input.Focus()
}

func (m *Model) stopEditing() {
	m.editing = false
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) handleEditKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.editKeys.Cancel):
		m.stopEditing()
		return nil
	case key.Matches(msg, m.editKeys.Submit):
		return m.submitEntry()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// submitEntry stores the typed key=value on the current step. When the
// step's content becomes complete the navigator is told.
func (m *Model) submitEntry() tea.Cmd {
	step, ok := m.nav.CurrentStep()
	if !ok {
		m.stopEditing()
		return nil
	}

	k, v, err := parseEntry(m.input.Value())
	if err != nil {
		m.lastErr = err
		return nil
	}
	if err := m.data.Set(step.ID, k, v); err != nil {
		m.lastErr = err
		return nil
	}
	m.input.Reset()
	m.lastErr = nil

	if step.IsComplete == nil || !step.IsComplete() {
		return nil
	}
	m.stopEditing()
	return m.run("contentCompleted", func(ctx context.Context) (workflow.Outcome, error) {
		return m.nav.ContentCompleted(ctx, step.ID)
	})
}

// parseEntry splits "key=value". Values that parse as JSON keep their type.
func parseEntry(entry string) (string, any, error) {
	k, raw, ok := strings.Cut(entry, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return "", nil, ErrInvalidEntry
	}
	raw = strings.TrimSpace(raw)

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return k, raw, nil
	}
	return k, v, nil
}

// Run starts an interactive program for m and blocks until the user quits.
func Run(ctx context.Context, m *Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}
