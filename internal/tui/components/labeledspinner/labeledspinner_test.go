package labeledspinner_test

import (
	"testing"

	"github.com/alkime/journal/internal/tui/components/labeledspinner"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

//nolint:gochecknoinits // recommend for CI by bubbletea folks
func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestLabeledSpinner_View(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		hint     string
		contains []string
		excludes []string
	}{
		{
			name:     "with hint",
			hint:     "Waiting for the last words",
			contains: []string{"Processing", "Resolving transcript", "Waiting for the last words"},
		},
		{
			name:     "without hint",
			contains: []string{"Processing", "Resolving transcript"},
			excludes: []string{"\n\n\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			view := labeledspinner.New(spinner.Dot, "Processing", "Resolving transcript", tt.hint).View()
			for _, s := range tt.contains {
				assert.Contains(t, view, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, view, s)
			}
			assert.Contains(t, view, spinner.Dot.Frames[0])
		})
	}
}

func TestLabeledSpinner_Ticks(t *testing.T) {
	t.Parallel()

	m := labeledspinner.New(spinner.Dot, "Saving", "Uploading audio", "")
	assert.NotNil(t, m.Init())

	m, cmd := m.Update(spinner.TickMsg{})
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), spinner.Dot.Frames[1])

	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd, "keys are ignored")
	assert.Contains(t, m.View(), spinner.Dot.Frames[1])
}

func TestLabeledSpinner_WithSubtitle(t *testing.T) {
	t.Parallel()

	m := labeledspinner.New(spinner.Dot, "Processing", "Resolving transcript", "")
	saving := m.WithSubtitle("Saving entry")

	assert.Equal(t, "Saving entry", saving.Subtitle())
	assert.Contains(t, saving.View(), "Saving entry")
	assert.Equal(t, "Resolving transcript", m.Subtitle(), "original is unchanged")
}
