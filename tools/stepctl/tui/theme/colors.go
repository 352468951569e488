// Package theme provides centralized styling, colors, and formatting for the TUI.
package theme

// Color palette for the TUI
const (
	// ColorPrimary is the primary brand color
	ColorPrimary = "#7C3AED"
	// ColorSuccess marks completed steps
	ColorSuccess = "#10B981"
	// ColorInfo marks the current step
	ColorInfo = "#3B82F6"
	// ColorError marks steps that failed validation
	ColorError = "#EF4444"
	// ColorWarning marks skipped steps
	ColorWarning = "#F59E0B"
	// ColorGray is used for upcoming steps and hints
	ColorGray = "#6B7280"
	// ColorLightGray is used for labels
	ColorLightGray = "#9CA3AF"
	// ColorWhite is white
	ColorWhite = "#F3F4F6"
	// ColorIndigo highlights the focused step
	ColorIndigo = "#6366F1"
)
