// Package review provides the TUI model for reviewing and editing a draft.
package review

import (
	"fmt"
	"strings"
	"time"

	"github.com/alkime/journal/internal/journal"
	"github.com/alkime/journal/internal/tui/phase/msg"
	"github.com/alkime/journal/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	// chromeHeight is the rows taken by the header, footer, and borders.
	chromeHeight = 9
	minEditorRows = 5
)

// Summary describes where the draft came from.
type Summary struct {
	Source      journal.TranscriptSource
	Corrections int
	Duration    time.Duration
}

// Model represents the review phase UI state.
type Model struct {
	keys    KeyMap
	editor  textarea.Model
	summary Summary
	locked  bool
	notice  string
}

// New creates a review model editing draft.
func New(draft string, summary Summary, width, height int) Model {
	editor := textarea.New()
	editor.Placeholder = "No transcript. Type one, or save the recording on its own."
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.SetValue(draft)
	editor.Focus()

	m := Model{
		keys:    DefaultKeyMap(),
		editor:  editor,
		summary: summary,
	}
	m.resize(width, height)

	return m
}

// WithNotice returns a copy showing an error banner, e.g. after a failed save.
func (m Model) WithNotice(notice string) Model {
	m.notice = notice

	return m
}

// Draft returns the edited text.
func (m Model) Draft() string {
	return m.editor.Value()
}

// Locked reports whether the entry will be locked on save.
func (m Model) Locked() bool {
	return m.locked
}

// Init returns the initial command for the review phase.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages for the review phase.
func (m Model) Update(teaMsg tea.Msg) (Model, tea.Cmd) {
	switch teaMsg := teaMsg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(teaMsg, m.keys.Save):
			save := msg.SaveMsg{Draft: m.editor.Value(), Locked: m.locked}
			return m, func() tea.Msg { return save }
		case key.Matches(teaMsg, m.keys.ToggleLock):
			m.locked = !m.locked
			return m, nil
		case key.Matches(teaMsg, m.keys.RecordAgain):
			return m, func() tea.Msg { return msg.RecordAgainMsg{} }
		case key.Matches(teaMsg, m.keys.Discard):
			return m, func() tea.Msg { return msg.DiscardMsg{} }
		}

	case tea.WindowSizeMsg:
		m.resize(teaMsg.Width, teaMsg.Height)
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(teaMsg)

	return m, cmd
}

// View renders the review phase UI.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(style.Title.Render("Review"))
	sb.WriteString("  ")
	sb.WriteString(style.Label.Render("Source: "))
	sb.WriteString(style.Subtitle.Render(describe(m.summary)))
	sb.WriteString("\n\n")

	if m.notice != "" {
		sb.WriteString(style.Error.Render(m.notice))
		sb.WriteString("\n\n")
	}

	sb.WriteString(style.Box.Render(m.editor.View()))
	sb.WriteString("\n")

	if m.locked {
		sb.WriteString(style.Warning.Render("Will be locked on save"))
	} else {
		sb.WriteString(style.Muted.Render("Unlocked"))
	}
	sb.WriteString("\n\n")

	parts := make([]string, 0, len(m.keys.ShortHelp()))
	for _, b := range m.keys.ShortHelp() {
		parts = append(parts,
			style.Help.Render("[")+style.Key.Render(b.Help().Key)+style.Help.Render("] "+b.Help().Desc))
	}
	sb.WriteString(strings.Join(parts, "  "))

	return sb.String()
}

func (m *Model) resize(width, height int) {
	m.editor.SetWidth(max(20, width-6))
	m.editor.SetHeight(max(minEditorRows, height-chromeHeight))
}

func describe(s Summary) string {
	var source string

	switch s.Source {
	case journal.SourceLive:
		source = "live transcript"
	case journal.SourceFallback:
		source = "server transcription"
	default:
		source = "no transcript"
	}

	if s.Duration > 0 {
		source += fmt.Sprintf(", %s recording", s.Duration.Round(time.Second))
	}

	switch s.Corrections {
	case 0:
	case 1:
		source += ", 1 correction"
	default:
		source += fmt.Sprintf(", %d corrections", s.Corrections)
	}

	return source
}
