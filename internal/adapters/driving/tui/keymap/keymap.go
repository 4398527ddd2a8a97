// Package keymap defines keybindings for the TUI.
package keymap

import (
	"slices"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the TUI.
type KeyMap struct {
	Quit key.Binding
	Help key.Binding

	// Back returns to the previous view.
	Back key.Binding

	// Send submits the question in the chat prompt.
	Send key.Binding

	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Cancel key.Binding

	// Ask returns focus to the chat prompt.
	Ask key.Binding

	// ClearHistory deletes the current chat session.
	ClearHistory key.Binding

	// Actions opens the action menu on a document.
	Actions key.Binding

	// Refresh reloads the document list.
	Refresh key.Binding

	// ClearIndex deindexes every document.
	ClearIndex key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Ask: key.NewBinding(
			key.WithKeys("i", "/"),
			key.WithHelp("i", "ask"),
		),
		ClearHistory: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear history"),
		),
		Actions: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "actions"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		ClearIndex: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "clear index"),
		),
	}
}

// ShortHelp returns a short list of keybindings for the help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Help}
}

// ChatHelp returns keybindings for browsing a conversation.
func (k *KeyMap) ChatHelp() []key.Binding {
	return []key.Binding{k.Ask, k.Up, k.Select, k.ClearHistory, k.Back}
}

// DocumentsHelp returns keybindings for the document list.
func (k *KeyMap) DocumentsHelp() []key.Binding {
	return []key.Binding{k.Actions, k.Refresh, k.ClearIndex, k.Back}
}

// FullHelp returns the full list of keybindings for the help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Send, k.Ask, k.ClearHistory},
		{k.Actions, k.Refresh, k.ClearIndex},
		{k.Back, k.Help, k.Quit},
	}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	return slices.Contains(binding.Keys(), keyStr)
}
