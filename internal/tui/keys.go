package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the bindings handled outside any single phase.
type KeyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
	Again     key.Binding
	Discard   key.Binding
}

// DefaultKeyMap returns the default global key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Again: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "record"),
		),
		Discard: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "discard"),
		),
	}
}
