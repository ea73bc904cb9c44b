package tui

import "github.com/charmbracelet/bubbles/key"

// KeyBindings defines all keyboard shortcuts for the TUI.
type KeyBindings struct {
	// Global keys
	Quit       key.Binding
	Interrupt  key.Binding
	CycleMode  key.Binding
	NewAgent   key.Binding
	CloseAgent key.Binding
	NextAgent  key.Binding
	PrevAgent  key.Binding

	// Scrolling
	PageUp   key.Binding
	PageDown key.Binding

	// Permission prompt keys
	Allow        key.Binding
	Deny         key.Binding
	AllowSession key.Binding
	AllowAll     key.Binding
	DenyWithMsg  key.Binding

	// Input keys
	Submit  key.Binding
	Newline key.Binding
	Cancel  key.Binding
}

// DefaultKeyBindings returns the default key bindings.
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Interrupt: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "interrupt"),
		),
		CycleMode: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "mode"),
		),
		NewAgent: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "new agent"),
		),
		CloseAgent: key.NewBinding(
			key.WithKeys("ctrl+w"),
			key.WithHelp("ctrl+w", "close agent"),
		),
		NextAgent: key.NewBinding(
			key.WithKeys("ctrl+right", "alt+]"),
			key.WithHelp("ctrl+→", "next agent"),
		),
		PrevAgent: key.NewBinding(
			key.WithKeys("ctrl+left", "alt+["),
			key.WithHelp("ctrl+←", "prev agent"),
		),

		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "page down"),
		),

		Allow: key.NewBinding(
			key.WithKeys("y", "1"),
			key.WithHelp("y", "allow"),
		),
		Deny: key.NewBinding(
			key.WithKeys("n", "2"),
			key.WithHelp("n", "deny"),
		),
		AllowSession: key.NewBinding(
			key.WithKeys("s", "3"),
			key.WithHelp("s", "allow for session"),
		),
		AllowAll: key.NewBinding(
			key.WithKeys("a", "4"),
			key.WithHelp("a", "allow all queued"),
		),
		DenyWithMsg: key.NewBinding(
			key.WithKeys("m", "5"),
			key.WithHelp("m", "deny with message"),
		),

		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("shift+enter", "alt+enter"),
			key.WithHelp("shift+enter", "newline"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}
