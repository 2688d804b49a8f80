package phase_test

import (
	"testing"

	"github.com/alkime/journal/internal/tui/phase"
	"github.com/stretchr/testify/assert"
)

func TestPhase_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		phase phase.Phase
		want  string
	}{
		{phase.PhaseStarting, "Starting"},
		{phase.PhaseRecording, "Recording"},
		{phase.PhaseProcessing, "Processing"},
		{phase.PhaseReview, "Review"},
		{phase.PhaseSaving, "Saving"},
		{phase.PhaseSaved, "Saved"},
		{phase.PhaseDiscarded, "Discarded"},
		{phase.PhaseError, "Error"},
		{phase.Phase(99), "Unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.phase.String())
	}
}
