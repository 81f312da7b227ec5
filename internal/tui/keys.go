package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the TUI.
type KeyMap struct {
	// Table
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding // Open task in the labeling pane
	Stream  key.Binding // Start the label stream
	Refresh key.Binding // Refresh task table

	// Labeling
	Choice      key.Binding // Toggle the numbered choice of the focused group
	NextGroup   key.Binding // Focus the next choice group
	Submit      key.Binding // Submit or update the selected annotation
	Skip        key.Binding // Skip the task
	Delete      key.Binding // Delete the selected annotation
	New         key.Binding // Add an empty annotation
	Cycle       key.Binding // Select the next annotation
	GroundTruth key.Binding // Toggle ground truth on the selected annotation
	Back        key.Binding // Previous task of the label stream
	Forward     key.Binding // Next task of the label stream
	ScrollUp    key.Binding // Scroll the labeling pane up
	ScrollDown  key.Binding // Scroll the labeling pane down

	// General
	Help    key.Binding
	Quit    key.Binding
	Escape  key.Binding // Cancel/back
	Confirm key.Binding // Confirm action (in confirm mode)
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "label task"),
		),
		Stream: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "label stream"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Choice: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "toggle choice"),
		),
		NextGroup: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next group"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter", "ctrl+s"),
			key.WithHelp("enter", "submit"),
		),
		Skip: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "skip"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new annotation"),
		),
		Cycle: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "next annotation"),
		),
		GroundTruth: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "ground truth"),
		),
		Back: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "back"),
		),
		Forward: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "forward"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "confirm"),
		),
	}
}

// ShortHelp returns keybindings to show in the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.Stream, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Stream, k.Refresh},   // Table
		{k.Choice, k.NextGroup, k.New, k.Cycle},       // Editing
		{k.Submit, k.Skip, k.Delete, k.GroundTruth},   // Persisting
		{k.Back, k.Forward, k.ScrollUp, k.ScrollDown}, // Navigation
		{k.Escape, k.Help, k.Quit},                    // General
	}
}

// labelKeys is the help shown under the labeling pane.
type labelKeys KeyMap

func (k labelKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Choice, k.NextGroup, k.Submit, k.Skip, k.New, k.Cycle, k.Back, k.Forward, k.Escape}
}

func (k labelKeys) FullHelp() [][]key.Binding {
	return KeyMap(k).FullHelp()
}
