package theme

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

func TestStatusIcon(t *testing.T) {
	tests := []struct {
		status workflow.StepStatus
		want   string
	}{
		{workflow.StatusCompleted, "✓"},
		{workflow.StatusCurrent, "●"},
		{workflow.StatusError, "✗"},
		{workflow.StatusSkipped, "↷"},
		{workflow.StatusUpcoming, "○"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusIcon(tt.status))
		})
	}
}

func TestStatusStyle(t *testing.T) {
	assert.Equal(t, SuccessStyle.GetForeground(), StatusStyle(workflow.StatusCompleted).GetForeground())
	assert.Equal(t, ErrorStyle.GetForeground(), StatusStyle(workflow.StatusError).GetForeground())
	assert.Equal(t, SubtleTextStyle.GetForeground(), StatusStyle(workflow.StatusUpcoming).GetForeground())
}

func TestFormatProgress(t *testing.T) {
	assert.Equal(t, "0/0", FormatProgress(0, 0))
	assert.Equal(t, "2/4", FormatProgress(1, 4))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m5s", FormatDuration(125*time.Second))
}
