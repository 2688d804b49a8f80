package recording

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the recording phase.
type KeyMap struct {
	Stop    key.Binding
	Discard key.Binding
}

// DefaultKeyMap returns the default key bindings for the recording phase.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Stop: key.NewBinding(
			key.WithKeys("enter", "space"),
			key.WithHelp("enter", "stop"),
		),
		Discard: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "discard"),
		),
	}
}

// ShortHelp returns the short help bindings for the recording phase.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Stop, k.Discard}
}

// FullHelp returns the full help bindings for the recording phase.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Stop, k.Discard},
	}
}
