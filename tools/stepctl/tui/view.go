package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AltairaLabs/stepflow/runtime/workflow"
	"github.com/AltairaLabs/stepflow/tools/stepctl/tui/theme"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.nav == nil {
		return ""
	}

	sections := []string{
		m.renderHeader(),
		m.renderSteps(),
		m.renderContent(),
		m.renderStatus(),
	}
	if msg := m.LastAnnouncement(); msg != "" {
		sections = append(sections, theme.LabelStyle.Render("» "+msg))
	}
	if m.editing {
		sections = append(sections, m.help.View(m.editKeys))
	} else {
		sections = append(sections, m.help.View(m.keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m *Model) renderHeader() string {
	title := theme.TitleStyle.Render(m.title)
	pos := theme.LabelStyle.Render(theme.FormatProgress(m.nav.CurrentIndex(), m.nav.Len()))
	return fmt.Sprintf("%s  %s\n%s", title, pos, m.progress.ViewAs(m.nav.ProgressFraction()))
}

func (m *Model) renderSteps() string {
	focused := m.nav.FocusedIndex()
	var b strings.Builder
	for i, step := range m.nav.Steps() {
		status, _ := m.nav.StatusOf(i)

		cursor := "  "
		if i == focused {
			cursor = theme.FocusStyle.Render("› ")
		}

		label := step.Title()
		if step.Optional {
			label += " (optional)"
		}
		switch {
		case step.Disabled:
			label = theme.DisabledStyle.Render(label)
		case i == focused:
			label = theme.FocusStyle.Render(label)
		}

		icon := theme.StatusStyle(status).Render(theme.StatusIcon(status))
		fmt.Fprintf(&b, "%s%s %s\n", cursor, icon, label)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderContent() string {
	if m.nav.IsCompleted() {
		return theme.SuccessStyle.Render(fmt.Sprintf("All %d steps completed", m.nav.Len()))
	}
	step, ok := m.nav.CurrentStep()
	if !ok {
		return theme.SubtleTextStyle.Render("This workflow has no steps")
	}

	lines := []string{theme.InfoStyle.Render(step.Title())}
	if step.Description != "" {
		lines = append(lines, step.Description)
	}
	values := m.data.Get(step.ID)
	for _, k := range slices.Sorted(maps.Keys(values)) {
		lines = append(lines, fmt.Sprintf("%s %v", theme.LabelStyle.Render(k+":"), values[k]))
	}
	if m.editing {
		lines = append(lines, m.input.View())
	}

	box := theme.ContentBoxStyle
	if m.editing || m.contentFocused() == m.nav.CurrentIndex() {
		box = box.BorderForeground(theme.BorderColorFocused())
	}
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderStatus() string {
	switch {
	case m.busy:
		return m.spinner.View() + " " + theme.SubtleTextStyle.Render("working…")
	case m.lastErr != nil:
		return theme.ErrorStyle.Render(m.lastErr.Error())
	case m.lastAction != "" && m.lastOutcome != workflow.OutcomeCommitted:
		return theme.SubtleTextStyle.Render(fmt.Sprintf("%s: %s", m.lastAction, m.lastOutcome))
	default:
		return ""
	}
}
