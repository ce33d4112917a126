package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	EarlierRange key.Binding
	LaterRange   key.Binding
	StartEarlier key.Binding
	StartLater   key.Binding
	EndEarlier   key.Binding
	EndLater     key.Binding
	NextSeat     key.Binding
	PrevSeat     key.Binding
	Submit       key.Binding
	Outlet       key.Binding
	Window       key.Binding
	Refresh      key.Binding
	Section      key.Binding
	Date         key.Binding
	Quit         key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		EarlierRange: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/→", "move time")),
		LaterRange:   key.NewBinding(key.WithKeys("right", "l")),
		StartEarlier: key.NewBinding(key.WithKeys("["), key.WithHelp("[/]", "start")),
		StartLater:   key.NewBinding(key.WithKeys("]")),
		EndEarlier:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-/+", "end")),
		EndLater:     key.NewBinding(key.WithKeys("+", "=")),
		NextSeat:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next seat")),
		PrevSeat:     key.NewBinding(key.WithKeys("shift+tab")),
		Submit:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "book")),
		Outlet:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "outlet")),
		Window:       key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "window")),
		Refresh:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Section:      key.NewBinding(key.WithKeys("s", "esc"), key.WithHelp("s", "section")),
		Date:         key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "date")),
		Quit:         key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.EarlierRange, k.StartEarlier, k.EndEarlier, k.NextSeat, k.Submit, k.Outlet, k.Window, k.Refresh, k.Section, k.Date, k.Quit}
}
