// Package recording provides the TUI model for the recording phase.
package recording

import (
	"fmt"
	"strings"
	"time"

	"github.com/alkime/journal/internal/tui/components/waveform"
	"github.com/alkime/journal/internal/tui/phase/msg"
	"github.com/alkime/journal/internal/tui/style"
	"github.com/alkime/journal/pkg/uictl"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	waveformHeight = 3
	// previewTail is how much of the live preview fits on screen.
	previewTail = 240
)

// Controls are the live readings of an active recording.
type Controls struct {
	Elapsed uictl.Dial[time.Duration]
	Bytes   uictl.Dial[int64]
	Levels  uictl.Levels[int16]
	// Preview returns the live transcript so far.
	Preview func() string
}

// Model represents the recording phase UI state.
type Model struct {
	controls Controls
	keys     KeyMap
	spinner  spinner.Model
	waveform waveform.Model
	width    int
}

// New creates a new recording phase model.
func New(controls Controls, width int) Model {
	s := spinner.New()
	s.Spinner = spinner.Points

	return Model{
		controls: controls,
		keys:     DefaultKeyMap(),
		spinner:  s,
		waveform: waveform.New(controls.Levels, meterWidth(width), waveformHeight),
		width:    width,
	}
}

// Init returns the initial command for the recording phase.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.waveform.Init(),
	)
}

// Update handles messages for the recording phase.
func (m Model) Update(teaMsg tea.Msg) (Model, tea.Cmd) {
	switch teaMsg := teaMsg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(teaMsg, m.keys.Stop):
			return m, func() tea.Msg { return msg.StopMsg{} }
		case key.Matches(teaMsg, m.keys.Discard):
			return m, func() tea.Msg { return msg.DiscardMsg{} }
		}

	case tea.WindowSizeMsg:
		m.width = teaMsg.Width
		m.waveform.SetWidth(meterWidth(teaMsg.Width))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(teaMsg)

		return m, cmd

	case waveform.TickMsg:
		var cmd tea.Cmd
		m.waveform, cmd = m.waveform.Update(teaMsg)

		return m, cmd
	}

	return m, nil
}

// View renders the recording phase UI.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.spinner.View() + " ")
	sb.WriteString(style.Recording.Render("Recording") + " ")
	sb.WriteString(style.Subtitle.Render(formatElapsed(m.read(m.controls.Elapsed))))
	sb.WriteString("\n\n")

	sb.WriteString(m.waveform.View())
	sb.WriteString("\n")
	sb.WriteString(style.Subtitle.Render(formatBytes(m.readBytes())))
	sb.WriteString("\n\n")

	preview := ""
	if m.controls.Preview != nil {
		preview = tail(m.controls.Preview(), previewTail)
	}

	if preview == "" {
		preview = style.Muted.Render("Listening...")
	}

	sb.WriteString(style.Box.Width(meterWidth(m.width)).Render(preview))
	sb.WriteString("\n\n")

	sb.WriteString(helpLine(m.keys.ShortHelp()...))

	return sb.String()
}

func (m Model) read(d uictl.Dial[time.Duration]) time.Duration {
	if d == nil {
		return 0
	}

	return d.Read()
}

func (m Model) readBytes() int64 {
	if m.controls.Bytes == nil {
		return 0
	}

	return m.controls.Bytes.Read()
}

func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts,
			style.Help.Render("[")+style.Key.Render(b.Help().Key)+style.Help.Render("] "+b.Help().Desc))
	}

	return strings.Join(parts, "  ")
}

func meterWidth(width int) int {
	return max(20, width-4)
}

// formatElapsed renders a duration as mm:ss.
func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)

	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// formatBytes formats captured PCM as a human-readable size.
func formatBytes(n int64) string {
	return fmt.Sprintf("%.1f MB captured", float64(n)/(1024*1024))
}

// tail keeps the last n runes of s, starting at a word boundary.
func tail(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}

	cut := string(runes[len(runes)-n:])
	if i := strings.IndexByte(cut, ' '); i >= 0 {
		cut = cut[i+1:]
	}

	return "..." + cut
}
