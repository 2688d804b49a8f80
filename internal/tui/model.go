// Package tui is the recorder's terminal UI: record, review, then save or
// discard the entry.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alkime/journal/internal/journal"
	"github.com/alkime/journal/internal/session"
	"github.com/alkime/journal/internal/tui/components/labeledspinner"
	"github.com/alkime/journal/internal/tui/phase"
	"github.com/alkime/journal/internal/tui/phase/msg"
	"github.com/alkime/journal/internal/tui/phase/recording"
	"github.com/alkime/journal/internal/tui/phase/review"
	"github.com/alkime/journal/internal/tui/style"
	"github.com/alkime/journal/pkg/uictl"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Session is the recording the UI drives.
type Session interface {
	Stop(ctx context.Context) error
	Wait(ctx context.Context) error
	Edit(text string) error
	Save(ctx context.Context, locked bool) (journal.Entry, error)
	Discard(ctx context.Context)

	Elapsed() time.Duration
	BytesCaptured() int64
	Preview() string
	Levels() uictl.Levels[int16]

	Transcript() journal.TranscriptResult
	Processing() journal.ProcessingResult
	Draft() string
}

// Config wires the UI to the recorder.
type Config struct {
	// Start opens and starts a new recording session.
	Start func(ctx context.Context) (Session, error)
	// Cancel is called when the user quits.
	Cancel context.CancelFunc
}

type startedMsg struct {
	session Session
	err     error
}

// Model is the top-level recorder model.
type Model struct {
	ctx    context.Context
	config Config
	keys   KeyMap

	phase   phase.Phase
	session Session
	err     error
	saved   journal.Entry

	recording  recording.Model
	processing labeledspinner.Model
	review     review.Model

	width  int
	height int
}

// New creates the recorder UI. ctx bounds every session operation.
func New(ctx context.Context, config Config) Model {
	return Model{
		ctx:    ctx,
		config: config,
		keys:   DefaultKeyMap(),
		phase:  phase.PhaseStarting,
		processing: labeledspinner.New(
			spinner.Dot,
			"Processing",
			"Resolving transcript",
			"Waiting for the last words and cleaning up the text",
		),
		width:  80,
		height: 24,
	}
}

// Phase returns the current phase.
func (m Model) Phase() phase.Phase {
	return m.phase
}

// Init starts the first recording.
func (m Model) Init() tea.Cmd {
	return m.startCmd()
}

// Update handles all messages.
func (m Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch teaMsg := teaMsg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = teaMsg.Width, teaMsg.Height

	case tea.KeyMsg:
		if key.Matches(teaMsg, m.keys.ForceQuit) {
			return m.quit()
		}

		if m.idle() {
			switch {
			case key.Matches(teaMsg, m.keys.Quit):
				return m.quit()
			case key.Matches(teaMsg, m.keys.Again):
				m.discard()
				m.phase = phase.PhaseStarting

				return m, m.startCmd()
			case key.Matches(teaMsg, m.keys.Discard) && m.session != nil:
				m.discard()
				m.phase = phase.PhaseDiscarded

				return m, nil
			}

			return m, nil
		}

	case startedMsg:
		return m.started(teaMsg)

	case msg.StopMsg:
		if m.phase != phase.PhaseRecording {
			return m, nil
		}

		m.phase = phase.PhaseProcessing
		m.processing = m.processing.WithSubtitle("Resolving transcript")

		return m, tea.Batch(m.processing.Init(), m.stopCmd())

	case msg.ProcessedMsg:
		return m.processed(teaMsg)

	case msg.SaveMsg:
		return m.save(teaMsg)

	case msg.SavedMsg:
		if teaMsg.Err != nil {
			m.phase = phase.PhaseReview
			m.review = m.review.WithNotice("Save failed: " + teaMsg.Err.Error() + ". Press ctrl+s to retry.")

			return m, nil
		}

		m.phase = phase.PhaseSaved
		m.saved = teaMsg.Entry
		m.session = nil

		return m, nil

	case msg.DiscardMsg:
		m.discard()
		m.phase = phase.PhaseDiscarded

		return m, nil

	case msg.RecordAgainMsg:
		m.discard()
		m.phase = phase.PhaseStarting

		return m, m.startCmd()
	}

	return m.delegate(teaMsg)
}

// delegate forwards a message to the current phase's model.
func (m Model) delegate(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.phase {
	case phase.PhaseRecording:
		m.recording, cmd = m.recording.Update(teaMsg)
	case phase.PhaseProcessing, phase.PhaseSaving:
		m.processing, cmd = m.processing.Update(teaMsg)
	case phase.PhaseReview:
		m.review, cmd = m.review.Update(teaMsg)
	}

	return m, cmd
}

func (m Model) started(started startedMsg) (tea.Model, tea.Cmd) {
	if started.err != nil {
		m.phase = phase.PhaseError
		m.err = started.err

		return m, nil
	}

	s := started.session
	m.session = s
	m.err = nil
	m.phase = phase.PhaseRecording
	m.recording = recording.New(recording.Controls{
		Elapsed: uictl.DialFunc[time.Duration](s.Elapsed),
		Bytes:   uictl.DialFunc[int64](s.BytesCaptured),
		Levels:  s.Levels(),
		Preview: s.Preview,
	}, m.width)

	return m, m.recording.Init()
}

func (m Model) processed(processed msg.ProcessedMsg) (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, nil
	}

	// the session is kept until the user discards it or records again
	if processed.Err != nil {
		m.phase = phase.PhaseError
		m.err = processed.Err

		return m, nil
	}

	s := m.session
	m.phase = phase.PhaseReview
	m.review = review.New(s.Draft(), review.Summary{
		Source:      s.Transcript().Source,
		Corrections: len(s.Processing().Corrections),
		Duration:    s.Elapsed(),
	}, m.width, m.height)

	return m, m.review.Init()
}

func (m Model) save(save msg.SaveMsg) (tea.Model, tea.Cmd) {
	if m.phase != phase.PhaseReview || m.session == nil {
		return m, nil
	}

	if err := m.session.Edit(save.Draft); err != nil {
		m.review = m.review.WithNotice("Save failed: " + err.Error())
		return m, nil
	}

	m.phase = phase.PhaseSaving
	m.processing = m.processing.WithSubtitle("Saving entry")

	s := m.session
	ctx := m.ctx

	return m, tea.Batch(m.processing.Init(), func() tea.Msg {
		e, err := s.Save(ctx, save.Locked)
		return msg.SavedMsg{Entry: e, Err: err}
	})
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.discard()

	if m.config.Cancel != nil {
		m.config.Cancel()
	}

	return m, tea.Quit
}

// discard drops the active session. The device is released by the session.
func (m *Model) discard() {
	if m.session == nil {
		return
	}

	m.session.Discard(context.WithoutCancel(m.ctx))
	m.session = nil
}

// idle reports whether no session is in flight, so plain keys are global.
func (m Model) idle() bool {
	switch m.phase {
	case phase.PhaseSaved, phase.PhaseDiscarded, phase.PhaseError:
		return true
	default:
		return false
	}
}

func (m Model) startCmd() tea.Cmd {
	ctx := m.ctx
	start := m.config.Start

	return func() tea.Msg {
		s, err := start(ctx)
		return startedMsg{session: s, err: err}
	}
}

func (m Model) stopCmd() tea.Cmd {
	ctx := m.ctx
	s := m.session

	return func() tea.Msg {
		if err := s.Stop(ctx); err != nil {
			return msg.ProcessedMsg{Err: err}
		}

		return msg.ProcessedMsg{Err: s.Wait(ctx)}
	}
}

// View renders the current UI.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(style.Subtitle.Render("Voice Journal · " + m.phase.String()))
	sb.WriteString("\n\n")

	switch m.phase {
	case phase.PhaseStarting:
		sb.WriteString(style.Muted.Render("Opening microphone..."))
	case phase.PhaseRecording:
		sb.WriteString(m.recording.View())
	case phase.PhaseProcessing, phase.PhaseSaving:
		sb.WriteString(m.processing.View())
	case phase.PhaseReview:
		sb.WriteString(m.review.View())
	case phase.PhaseSaved:
		sb.WriteString(style.Success.Render("Saved entry " + m.saved.ID))
		if m.saved.Locked {
			sb.WriteString(style.Warning.Render(" (locked)"))
		}
		sb.WriteString("\n\n")
		sb.WriteString(m.idleHelp())
	case phase.PhaseDiscarded:
		sb.WriteString(style.Warning.Render("Recording discarded"))
		sb.WriteString("\n\n")
		sb.WriteString(m.idleHelp())
	case phase.PhaseError:
		sb.WriteString(style.Error.Render(describeError(m.err)))
		if m.session != nil {
			sb.WriteString("\n")
			sb.WriteString(style.Muted.Render("The recording is kept until you discard it or record again."))
		}
		sb.WriteString("\n\n")
		sb.WriteString(m.idleHelp())
	}

	return sb.String()
}

func (m Model) idleHelp() string {
	help := style.Help.Render("[") + style.Key.Render("r") + style.Help.Render("] record  ")
	if m.session != nil {
		help += style.Help.Render("[") + style.Key.Render("d") + style.Help.Render("] discard  ")
	}

	return help + style.Help.Render("[") + style.Key.Render("q") + style.Help.Render("] quit")
}

// describeError turns a failure into something the user can act on.
func describeError(err error) string {
	switch {
	case err == nil:
		return "Unknown error"
	case errors.Is(err, session.ErrDeviceUnavailable):
		return "No microphone available. Check your input device, then press r to try again.\n" + err.Error()
	case errors.Is(err, session.ErrSessionAlreadyActive):
		return "Another recording is still in progress."
	default:
		return "Something went wrong: " + err.Error()
	}
}
