package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Log      key.Binding
	MealType key.Binding
	More     key.Binding
	Retry    key.Binding
	Undo     key.Binding
	Clear    key.Binding
	Debug    key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "down")),
		Log:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "log")),
		MealType: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "meal")),
		More:     key.NewBinding(key.WithKeys("pgdown", "ctrl+l"), key.WithHelp("pgdn", "more")),
		Retry:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "retry")),
		Undo:     key.NewBinding(key.WithKeys("ctrl+z"), key.WithHelp("ctrl+z", "undo")),
		Clear:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		Debug:    key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "debug")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// shortHelp is the order hints appear in the status bar.
func (k keyMap) shortHelp() []key.Binding {
	return []key.Binding{k.Log, k.MealType, k.More, k.Retry, k.Undo, k.Debug, k.Quit}
}
