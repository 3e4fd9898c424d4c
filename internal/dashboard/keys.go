package dashboard

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the list key bindings.
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Delete  key.Binding
	Refetch key.Binding
	Quit    key.Binding
}

// ShortHelp returns the bindings for the help bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Delete, k.Refetch, k.Quit}
}

// FullHelp returns the bindings grouped for expanded help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Delete, k.Refetch, k.Quit},
	}
}

// KeyMap returns the default key bindings.
func KeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete", "x"),
			key.WithHelp("d", "delete"),
		),
		Refetch: key.NewBinding(
			key.WithKeys("f", "enter"),
			key.WithHelp("f", "fetch again"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}
