package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/Strob0t/patchpal/internal/service"
)

// KeyMap defines the reviewer's key bindings.
type KeyMap struct {
	Accept    key.Binding
	Reject    key.Binding
	AcceptAll key.Binding
	RejectAll key.Binding
	Up        key.Binding
	Down      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Home      key.Binding
	Quit      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Accept: key.NewBinding(
			key.WithKeys("y", "a"),
			key.WithHelp("y", "accept"),
		),
		Reject: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "reject"),
		),
		AcceptAll: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "accept all"),
		),
		RejectAll: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "reject all"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("home", "top"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Accept, k.Reject, k.AcceptAll, k.RejectAll, k.Up, k.Down, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Accept, k.Reject, k.AcceptAll, k.RejectAll},
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home},
		{k.Quit},
	}
}

// commands pairs each binding with the loop key it forwards.
func (k KeyMap) commands() []struct {
	binding key.Binding
	key     service.Key
} {
	return []struct {
		binding key.Binding
		key     service.Key
	}{
		{k.Quit, service.KeyQuit},
		{k.Accept, service.KeyAccept},
		{k.Reject, service.KeyReject},
		{k.AcceptAll, service.KeyAcceptAll},
		{k.RejectAll, service.KeyRejectAll},
		{k.Up, service.KeyScrollUp},
		{k.Down, service.KeyScrollDown},
		{k.PageUp, service.KeyPageUp},
		{k.PageDown, service.KeyPageDown},
		{k.Home, service.KeyHome},
	}
}
