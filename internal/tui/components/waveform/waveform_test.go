package waveform_test

import (
	"strings"
	"testing"

	"github.com/alkime/journal/internal/audio"
	"github.com/alkime/journal/internal/tui/components/waveform"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:gochecknoinits // recommend for CI by bubbletea folks
func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func ring(samples ...int16) *audio.SampleRing {
	r := audio.NewSampleRing(audio.DefaultLevelWindow)
	r.Write(samples)

	return r
}

func TestWaveform_View(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ring     *audio.SampleRing
		width    int
		contains string
	}{
		{name: "empty ring shows baseline", ring: ring(), width: 5, contains: "▁▁▁▁▁"},
		{name: "silence", ring: ring(0, 0, 0, 0, 0), width: 5, contains: "     "},
		{name: "max amplitude", ring: ring(32767, 32767, 32767, 32767, 32767), width: 5, contains: "█████"},
		{name: "max negative amplitude", ring: ring(-32768, -32768, -32768), width: 3, contains: "███"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			view := waveform.New(tt.ring, tt.width, 1).View()
			assert.Contains(t, view, tt.contains)
		})
	}
}

func TestWaveform_NilLevels(t *testing.T) {
	t.Parallel()

	assert.Contains(t, waveform.New(nil, 5, 1).View(), "▁▁▁▁▁")
}

func TestWaveform_VaryingAmplitude(t *testing.T) {
	t.Parallel()

	view := waveform.New(ring(0, 8000, 32767, 8000, 0), 5, 1).View()

	runes := []rune(view)
	require.GreaterOrEqual(t, len(runes), 5)
	assert.NotEqual(t, runes[0], runes[2], "middle should be different from edges")
}

func TestWaveform_FillsWidth(t *testing.T) {
	t.Parallel()

	loud := make([]int16, 100)
	for i := range loud {
		loud[i] = 20000
	}

	tests := []struct {
		name    string
		samples []int16
		width   int
	}{
		{name: "aggregates samples", samples: loud, width: 10},
		{name: "fewer samples than width", samples: []int16{32767, 32767, 32767}, width: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			view := waveform.New(ring(tt.samples...), tt.width, 1).View()
			assert.GreaterOrEqual(t, len([]rune(view)), tt.width)
		})
	}
}

func TestWaveform_MultiRow(t *testing.T) {
	t.Parallel()

	view := waveform.New(ring(32767, 16000, 8000, 4000, 0), 5, 3).View()

	assert.Len(t, strings.Split(view, "\n"), 3, "should have 3 rows")
}

func TestWaveform_Dimensions(t *testing.T) {
	t.Parallel()

	m := waveform.New(ring(32767), 5, 0)
	assert.NotContains(t, m.View(), "\n", "height defaults to one row")

	m.SetWidth(12)
	assert.Equal(t, 12, m.Width())

	m.SetWidth(0)
	assert.Equal(t, 1, m.Width())
}

func TestWaveform_Ticks(t *testing.T) {
	t.Parallel()

	m := waveform.New(ring(1000), 5, 1)
	assert.NotNil(t, m.Init())

	_, cmd := m.Update(waveform.TickMsg{})
	assert.NotNil(t, cmd)
}
