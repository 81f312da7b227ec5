package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/runoshun/label-crew/internal/domain"
)

// Colors defines the color palette for the TUI.
var Colors = struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Error      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Background lipgloss.Color
	Text       lipgloss.Color
	Highlight  lipgloss.Color

	// Status colors
	New     lipgloss.Color
	Labeled lipgloss.Color
	Skipped lipgloss.Color
}{
	Primary:    lipgloss.Color("#6C5CE7"), // Purple
	Secondary:  lipgloss.Color("#A29BFE"), // Lavender
	Muted:      lipgloss.Color("#636E72"), // Gray
	Error:      lipgloss.Color("#D63031"), // Red
	Success:    lipgloss.Color("#00B894"), // Green
	Warning:    lipgloss.Color("#FDCB6E"), // Yellow
	Background: lipgloss.Color("#2D3436"), // Dark gray
	Text:       lipgloss.Color("#DFE6E9"), // Light gray
	Highlight:  lipgloss.Color("#FFEAA7"), // Yellow (selected)

	New:     lipgloss.Color("#74B9FF"), // Light blue
	Labeled: lipgloss.Color("#00B894"), // Green
	Skipped: lipgloss.Color("#636E72"), // Gray
}

// Styles contains all the lipgloss styles for the TUI.
type Styles struct {
	App        lipgloss.Style
	Header     lipgloss.Style
	HeaderText lipgloss.Style

	// Labeling pane
	Pane          lipgloss.Style
	Section       lipgloss.Style
	FieldName     lipgloss.Style
	FieldValue    lipgloss.Style
	Choice        lipgloss.Style
	ChoiceChecked lipgloss.Style
	GroupFocused  lipgloss.Style
	Group         lipgloss.Style
	Annotation    lipgloss.Style
	AnnotationSel lipgloss.Style
	Badge         lipgloss.Style
	Instruction   lipgloss.Style

	// Status badges
	StatusNew     lipgloss.Style
	StatusLabeled lipgloss.Style
	StatusSkipped lipgloss.Style

	// Footer and messages
	Footer     lipgloss.Style
	ErrorMsg   lipgloss.Style
	Info       lipgloss.Style
	Dialog     lipgloss.Style
	DialogText lipgloss.Style
	Spinner    lipgloss.Style
}

// DefaultStyles returns the default styles.
func DefaultStyles() Styles {
	return Styles{
		App: lipgloss.NewStyle().
			Padding(1, 2),
		Header: lipgloss.NewStyle().
			MarginBottom(1),
		HeaderText: lipgloss.NewStyle().
			Bold(true).
			Foreground(Colors.Primary),

		Pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Colors.Muted).
			Padding(0, 1),
		Section: lipgloss.NewStyle().
			Bold(true).
			Foreground(Colors.Secondary).
			MarginTop(1),
		FieldName: lipgloss.NewStyle().
			Foreground(Colors.Muted).
			Width(12),
		FieldValue: lipgloss.NewStyle().
			Foreground(Colors.Text),
		Choice: lipgloss.NewStyle().
			Foreground(Colors.Text),
		ChoiceChecked: lipgloss.NewStyle().
			Foreground(Colors.Success).
			Bold(true),
		GroupFocused: lipgloss.NewStyle().
			Foreground(Colors.Highlight).
			Bold(true),
		Group: lipgloss.NewStyle().
			Foreground(Colors.Secondary),
		Annotation: lipgloss.NewStyle().
			Foreground(Colors.Muted),
		AnnotationSel: lipgloss.NewStyle().
			Foreground(Colors.Highlight).
			Bold(true),
		Badge: lipgloss.NewStyle().
			Foreground(Colors.Warning),
		Instruction: lipgloss.NewStyle().
			Foreground(Colors.Muted).
			Italic(true),

		StatusNew: lipgloss.NewStyle().
			Foreground(Colors.New),
		StatusLabeled: lipgloss.NewStyle().
			Foreground(Colors.Labeled),
		StatusSkipped: lipgloss.NewStyle().
			Foreground(Colors.Skipped),

		Footer: lipgloss.NewStyle().
			Foreground(Colors.Muted).
			MarginTop(1),
		ErrorMsg: lipgloss.NewStyle().
			Foreground(Colors.Error).
			Bold(true),
		Info: lipgloss.NewStyle().
			Foreground(Colors.Success),
		Dialog: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Colors.Warning).
			Padding(0, 2),
		DialogText: lipgloss.NewStyle().
			Foreground(Colors.Warning).
			Bold(true),
		Spinner: lipgloss.NewStyle().
			Foreground(Colors.Primary),
	}
}

// StatusStyle returns the style for a task status.
func (s Styles) StatusStyle(status domain.TaskStatus) lipgloss.Style {
	switch status {
	case domain.TaskStatusNew:
		return s.StatusNew
	case domain.TaskStatusLabeled:
		return s.StatusLabeled
	case domain.TaskStatusSkipped:
		return s.StatusSkipped
	}
	return s.StatusNew
}

// tableStyles returns the task table styles.
func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Colors.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(Colors.Secondary)
	s.Selected = s.Selected.
		Foreground(Colors.Highlight).
		Background(Colors.Primary).
		Bold(false)
	return s
}
