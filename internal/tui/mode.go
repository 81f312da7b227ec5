// Package tui provides the terminal user interface for labelcrew.
package tui

// Mode represents the current UI mode.
type Mode int

const (
	ModeTable   Mode = iota // Task table (explorer)
	ModeLabel               // Labeling pane
	ModeConfirm             // Confirmation dialog mode
	ModeHelp                // Help overlay mode
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeTable:
		return "table"
	case ModeLabel:
		return "label"
	case ModeConfirm:
		return "confirm"
	case ModeHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ConfirmAction represents the type of action requiring confirmation.
type ConfirmAction int

const (
	ConfirmNone   ConfirmAction = iota
	ConfirmDelete               // Delete annotation
	ConfirmSkip                 // Skip task
)

// String returns a human-readable description of the action.
func (a ConfirmAction) String() string {
	switch a {
	case ConfirmNone:
		return ""
	case ConfirmDelete:
		return "delete this annotation"
	case ConfirmSkip:
		return "skip this task"
	}
	return ""
}
