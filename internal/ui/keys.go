package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds all key bindings for the application.
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Top       key.Binding
	Bottom    key.Binding
	Open      key.Binding
	Back      key.Binding
	Export    key.Binding
	Rescan    key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
	Help      key.Binding

	ViewGroups      key.Binding
	ViewFileTypes   key.Binding
	ViewDiagnostics key.Binding

	SortWasted key.Binding
	SortSize   key.Binding
	SortCount  key.Binding
	SortPath   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Top: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "first"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "last"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter", "right", "l"),
			key.WithHelp("enter", "open group"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace", "left", "h"),
			key.WithHelp("esc", "back"),
		),
		Export: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "export"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		ViewGroups: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "groups"),
		),
		ViewFileTypes: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "file types"),
		),
		ViewDiagnostics: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "unreadable"),
		),
		SortWasted: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "sort: wasted"),
		),
		SortSize: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sort: size"),
		),
		SortCount: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "sort: count"),
		),
		SortPath: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "sort: path"),
		),
	}
}
