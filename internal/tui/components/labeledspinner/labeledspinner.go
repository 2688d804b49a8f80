// Package labeledspinner renders a busy indicator for pipeline steps the
// user waits on.
package labeledspinner

import (
	"strings"

	"github.com/alkime/journal/internal/tui/style"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Model is a spinner with a title, the current step, and a hint.
type Model struct {
	spinner  spinner.Model
	title    string
	subtitle string
	hint     string
}

// New creates a labeled spinner.
func New(s spinner.Spinner, title, subtitle, hint string) Model {
	return Model{
		spinner:  spinner.New(spinner.WithSpinner(s)),
		title:    title,
		subtitle: subtitle,
		hint:     hint,
	}
}

// Subtitle returns the step being shown.
func (ls Model) Subtitle() string {
	return ls.subtitle
}

// WithSubtitle returns a copy showing a different step.
func (ls Model) WithSubtitle(subtitle string) Model {
	ls.subtitle = subtitle
	return ls
}

// Init starts the spinner.
func (ls Model) Init() tea.Cmd {
	return ls.spinner.Tick
}

// Update advances the spinner. Other messages are ignored.
func (ls Model) Update(teaMsg tea.Msg) (Model, tea.Cmd) {
	tickMsg, ok := teaMsg.(spinner.TickMsg)
	if !ok {
		return ls, nil
	}

	var cmd tea.Cmd
	ls.spinner, cmd = ls.spinner.Update(tickMsg)

	return ls, cmd
}

// View renders the spinner, the step, and the hint.
func (ls Model) View() string {
	var sb strings.Builder

	sb.WriteString(ls.spinner.View())
	sb.WriteString(" ")
	sb.WriteString(style.Title.Render(ls.title))
	sb.WriteString("\n\n")
	sb.WriteString(style.Subtitle.Render(ls.subtitle))

	if ls.hint != "" {
		sb.WriteString("\n\n")
		sb.WriteString(style.Help.Render(ls.hint))
	}

	return sb.String()
}
