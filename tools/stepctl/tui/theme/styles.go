package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

const (
	// BoxPaddingHorizontal is the horizontal padding for bordered boxes
	BoxPaddingHorizontal = 2
	// BoxPaddingVertical is the vertical padding for bordered boxes
	BoxPaddingVertical = 0
)

var (
	// TitleStyle is used for the workflow title
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorPrimary))
	// SuccessStyle indicates successful operations
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess)).Bold(true)
	// ErrorStyle indicates error states
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Bold(true)
	// WarningStyle indicates warning states
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning))
	// InfoStyle indicates informational states
	InfoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorInfo)).Bold(true)
	// LabelStyle is used for labels
	LabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLightGray))
	// SubtleTextStyle is used for less prominent text
	SubtleTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray))
	// DisabledStyle is used for disabled steps
	DisabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)).Strikethrough(true)
	// FocusStyle marks the focused step header
	FocusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorIndigo)).Bold(true)
	// ContentBoxStyle frames the current step's content
	ContentBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColorUnfocused()).
			Padding(BoxPaddingVertical, BoxPaddingHorizontal)
)

// BorderColorFocused returns the border color for focused elements
func BorderColorFocused() lipgloss.Color { return lipgloss.Color(ColorIndigo) }

// BorderColorUnfocused returns the border color for unfocused elements
func BorderColorUnfocused() lipgloss.Color { return lipgloss.Color(ColorGray) }

// StatusStyle returns the style for a step status.
func StatusStyle(status workflow.StepStatus) lipgloss.Style {
	switch status {
	case workflow.StatusCompleted:
		return SuccessStyle
	case workflow.StatusCurrent:
		return InfoStyle
	case workflow.StatusError:
		return ErrorStyle
	case workflow.StatusSkipped:
		return WarningStyle
	default:
		return SubtleTextStyle
	}
}
