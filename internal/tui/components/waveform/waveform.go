// Package waveform draws the recording level meter: one bar per column,
// oldest samples on the left.
package waveform

import (
	"math"
	"strings"
	"time"

	"github.com/alkime/journal/internal/tui/style"
	"github.com/alkime/journal/pkg/uictl"
	tea "github.com/charmbracelet/bubbletea"
)

// Eighth blocks, empty to full.
var blocks = []rune(" ▁▂▃▄▅▆▇█")

const (
	stepsPerRow = 8
	frameRate   = 50 * time.Millisecond
	fullScale   = 32768.0
)

// TickMsg triggers a redraw.
type TickMsg struct{}

// Model renders recent capture loudness.
type Model struct {
	levels uictl.Levels[int16]
	width  int
	height int
}

// New creates a meter width columns wide and height rows tall.
func New(levels uictl.Levels[int16], width, height int) Model {
	return Model{
		levels: levels,
		width:  max(1, width),
		height: max(1, height),
	}
}

// SetWidth resizes the meter.
func (m *Model) SetWidth(width int) {
	m.width = max(1, width)
}

// Width returns the number of rendered columns.
func (m Model) Width() int {
	return m.width
}

// Init starts the redraw ticker.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update keeps the ticker running.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(TickMsg); ok {
		return m, tick()
	}

	return m, nil
}

// View renders the meter. With no samples a flat baseline is shown.
func (m Model) View() string {
	var samples []int16
	if m.levels != nil {
		samples = m.levels.Read()
	}

	if len(samples) == 0 {
		return m.baseline()
	}

	heights := m.columnHeights(samples)
	rows := make([]string, m.height)

	for row := range rows {
		// rows are drawn top first; floor is the fill level below this row
		floor := (m.height - 1 - row) * stepsPerRow

		var sb strings.Builder
		for _, h := range heights {
			sb.WriteRune(blocks[min(max(h-floor, 0), stepsPerRow)])
		}

		rows[row] = style.Progress.Render(sb.String())
	}

	return strings.Join(rows, "\n")
}

func (m Model) baseline() string {
	rows := make([]string, m.height)
	for row := range rows {
		fill := " "
		if row == m.height-1 {
			fill = string(blocks[1])
		}

		rows[row] = style.Muted.Render(strings.Repeat(fill, m.width))
	}

	return strings.Join(rows, "\n")
}

// columnHeights splits samples evenly across columns and maps each slice's
// loudness to 0..height*stepsPerRow.
func (m Model) columnHeights(samples []int16) []int {
	heights := make([]int, m.width)
	top := m.height * stepsPerRow

	for col := range heights {
		start := col * len(samples) / m.width
		end := (col + 1) * len(samples) / m.width

		if end <= start {
			continue
		}

		heights[col] = scale(rms(samples[start:end]), top)
	}

	return heights
}

// rms returns the root mean square of samples normalised to 0..1.
func rms(samples []int16) float64 {
	var sum float64
	for _, s := range samples {
		v := float64(s) / fullScale
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// scale applies a square-root curve so quiet speech still registers.
func scale(loudness float64, top int) int {
	if loudness <= 0 {
		return 0
	}

	return min(int(math.Ceil(math.Sqrt(loudness)*float64(top))), top)
}

func tick() tea.Cmd {
	return tea.Tick(frameRate, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}
