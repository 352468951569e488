package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Previous key.Binding
	Next     key.Binding
	First    key.Binding
	Last     key.Binding
	Activate key.Binding
	Advance  key.Binding
	Retreat  key.Binding
	Skip     key.Binding
	Edit     key.Binding
	Reset    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Previous: key.NewBinding(key.WithKeys("left", "up", "h", "k"), key.WithHelp("←/↑", "prev step")),
		Next:     key.NewBinding(key.WithKeys("right", "down", "l", "j"), key.WithHelp("→/↓", "next step")),
		First:    key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("home", "first")),
		Last:     key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("end", "last")),
		Activate: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "open")),
		Advance:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		Retreat:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "back")),
		Skip:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "skip")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit data")),
		Reset:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Advance, k.Retreat, k.Activate, k.Edit, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Previous, k.Next, k.First, k.Last},
		{k.Activate, k.Advance, k.Retreat, k.Skip},
		{k.Edit, k.Reset, k.Help, k.Quit},
	}
}

type editKeyMap struct {
	Submit key.Binding
	Cancel key.Binding
}

func defaultEditKeyMap() editKeyMap {
	return editKeyMap{
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "set")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "done")),
	}
}

// ShortHelp implements help.KeyMap.
func (k editKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel}
}

// FullHelp implements help.KeyMap.
func (k editKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
