package update

import "github.com/charmbracelet/bubbles/key"

// KeyMap lists every binding the control surface reacts to
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Switch  key.Binding
	Select  key.Binding
	Toggle  key.Binding
	Assign  key.Binding
	Revoke  key.Binding
	Reload  key.Binding
	Tokens  key.Binding
	Dismiss key.Binding
	Yes     key.Binding
	No      key.Binding
	Quit    key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Switch:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		Select:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select token")),
		Toggle:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "toggle permissions")),
		Assign:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "assign role")),
		Revoke:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "revoke role")),
		Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Tokens:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "reload tokens")),
		Dismiss: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),
		Yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		No:      key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp is rendered in the status bar
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Switch, k.Select, k.Toggle, k.Assign, k.Revoke, k.Reload, k.Quit}
}
