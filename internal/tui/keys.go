package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Tab       key.Binding
	Up        key.Binding
	Down      key.Binding
	Add       key.Binding
	Done      key.Binding
	Reopen    key.Binding
	Start     key.Binding
	Pause     key.Binding
	Interrupt key.Binding
	Cancel    key.Binding
	SkipBreak key.Binding
	Words     key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Tab:       key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch view")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add task")),
		Done:      key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "mark done")),
		Reopen:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reopen")),
		Start:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start pomodoro")),
		Pause:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause/resume")),
		Interrupt: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "interrupt")),
		Cancel:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cancel")),
		SkipBreak: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "skip break")),
		Words:     key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "log words")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Start, k.Pause, k.Add, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Up, k.Down, k.Help, k.Quit},
		{k.Add, k.Done, k.Reopen, k.Words},
		{k.Start, k.Pause, k.Interrupt, k.Cancel, k.SkipBreak},
	}
}
