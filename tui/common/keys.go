package common

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines shared key bindings across all views.
type KeyMap struct {
	Quit        key.Binding
	ForceQuit   key.Binding
	Refresh     key.Binding
	Up          key.Binding
	Down        key.Binding
	Top         key.Binding
	Bottom      key.Binding
	Enter       key.Binding // open detail
	Back        key.Binding
	Open        key.Binding // o: open item in browser
	ToggleCW    key.Binding // w: reveal or hide content behind a warning
	ToggleCWAll key.Binding // W: default for every item
	Filter      key.Binding // f: cycle feed filter
	ToggleHints key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "bottom"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "detail"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open"),
		),
		ToggleCW: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "content warning"),
		),
		ToggleCWAll: key.NewBinding(
			key.WithKeys("W"),
			key.WithHelp("W", "all warnings"),
		),
		Filter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "feed filter"),
		),
		ToggleHints: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "all keys"),
		),
	}
}

// Help lists the bindings shown in the key dialog, in display order.
func (k KeyMap) Help() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Top, k.Bottom, k.Enter, k.Back,
		k.Open, k.ToggleCW, k.ToggleCWAll, k.Filter, k.Refresh, k.ToggleHints, k.Quit,
	}
}
