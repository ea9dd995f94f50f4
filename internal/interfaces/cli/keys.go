package cli

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// pickerKeys are the bindings of the interactive picker
type pickerKeys struct {
	Up       key.Binding
	Down     key.Binding
	Open     key.Binding
	Toggle   key.Binding
	Parent   key.Binding
	Search   key.Binding
	Cancel   key.Binding
	More     key.Binding
	Config   key.Binding
	Clear    key.Binding
	Reload   key.Binding
	Confirm  key.Binding
	Quit     key.Binding
	Help     key.Binding
	Submit   key.Binding
	Abandon  key.Binding
	Previous key.Binding
}

func defaultPickerKeys() pickerKeys {
	return pickerKeys{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:     key.NewBinding(key.WithKeys("enter", "l", "right"), key.WithHelp("enter", "open/select")),
		Toggle:   key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "select")),
		Parent:   key.NewBinding(key.WithKeys("backspace", "h", "left"), key.WithHelp("h", "parent")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "leave search")),
		More:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "load more")),
		Config:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next config")),
		Previous: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous config")),
		Clear:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear selection")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Confirm:  key.NewBinding(key.WithKeys("c", "ctrl+s"), key.WithHelp("c", "confirm")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
		Abandon:  key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel")),
	}
}

// ShortHelp implements help.KeyMap
func (k pickerKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Toggle, k.Parent, k.Search, k.Confirm, k.Quit, k.Help}
}

// FullHelp implements help.KeyMap
func (k pickerKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Parent},
		{k.Toggle, k.Clear, k.Confirm},
		{k.Search, k.Cancel, k.More},
		{k.Config, k.Previous, k.Reload, k.Quit},
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	crumbStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	cursorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("240"))

	folderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	disabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)
