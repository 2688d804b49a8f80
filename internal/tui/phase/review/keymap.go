package review

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the review phase. Plain keys belong to
// the editor, so every action uses a modifier.
type KeyMap struct {
	Save        key.Binding
	ToggleLock  key.Binding
	RecordAgain key.Binding
	Discard     key.Binding
}

// DefaultKeyMap returns the default key bindings for the review phase.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		ToggleLock: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "lock on save"),
		),
		RecordAgain: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "record again"),
		),
		Discard: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "discard"),
		),
	}
}

// ShortHelp returns the short help bindings for the review phase.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Save, k.ToggleLock, k.RecordAgain, k.Discard}
}

// FullHelp returns the full help bindings for the review phase.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Save, k.ToggleLock},
		{k.RecordAgain, k.Discard},
	}
}
