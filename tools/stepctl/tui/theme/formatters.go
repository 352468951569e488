package theme

import (
	"fmt"
	"time"

	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

// StatusIcon returns the marker drawn before a step label.
func StatusIcon(status workflow.StepStatus) string {
	switch status {
	case workflow.StatusCompleted:
		return "✓"
	case workflow.StatusCurrent:
		return "●"
	case workflow.StatusError:
		return "✗"
	case workflow.StatusSkipped:
		return "↷"
	default:
		return "○"
	}
}

// FormatProgress renders "current/total" using one-based step numbers.
func FormatProgress(current, total int) string {
	if total == 0 {
		return "0/0"
	}
	return fmt.Sprintf("%d/%d", current+1, total)
}

// FormatDuration formats a duration for display
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
