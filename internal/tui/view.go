package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/runoshun/label-crew/internal/domain"
	"github.com/runoshun/label-crew/internal/widget"
)

// View renders the TUI.
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	mode := m.mode
	if mode == ModeConfirm || mode == ModeHelp {
		mode = m.prevMode
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n")
	b.WriteString(m.viewStatusLine())

	if m.mode == ModeHelp {
		b.WriteString(m.viewHelp())
		return m.styles.App.Render(b.String())
	}

	switch mode {
	case ModeLabel:
		b.WriteString(m.viewLabeling())
	case ModeTable, ModeConfirm, ModeHelp:
		b.WriteString(m.viewTable())
	}

	if m.mode == ModeConfirm {
		b.WriteString("\n")
		b.WriteString(m.viewConfirmDialog())
	}

	b.WriteString("\n")
	b.WriteString(m.viewFooter(mode))
	return m.styles.App.Render(b.String())
}

// viewHeader renders the project title on the left and the mode on the right.
func (m *Model) viewHeader() string {
	name := m.project.Title
	if name == "" {
		name = "labelcrew"
	}
	title := m.styles.HeaderText.Render(name)

	right := fmt.Sprintf("%s · %d tasks", m.dm.Mode(), len(m.tasks))
	if m.busy {
		right = m.spinner.View() + " " + right
	}
	rightText := lipgloss.NewStyle().Foreground(Colors.Muted).Render(right)

	headerWidth := m.width - 6 // padding
	if headerWidth < 40 {
		headerWidth = 40
	}
	spacing := headerWidth - lipgloss.Width(title) - lipgloss.Width(rightText)
	if spacing < 1 {
		spacing = 1
	}
	return m.styles.Header.Render(title + strings.Repeat(" ", spacing) + rightText)
}

// viewStatusLine renders the current error or info message.
func (m *Model) viewStatusLine() string {
	switch {
	case m.err != nil:
		return m.styles.ErrorMsg.Render("Error: "+m.err.Error()) + "\n\n"
	case m.info != "":
		return m.styles.Info.Render(m.info) + "\n\n"
	}
	return ""
}

// viewTable renders the task table.
func (m *Model) viewTable() string {
	if len(m.tasks) == 0 {
		return m.styles.Instruction.Render("No tasks. Import some with 'labelcrew import FILE'.") + "\n"
	}
	return m.table.View() + "\n"
}

// viewLabeling renders the labeling pane for the widget's current task.
func (m *Model) viewLabeling() string {
	w := m.pane.terminal()
	if w == nil {
		return m.styles.Pane.Render(m.spinner.View() + " loading task...")
	}
	v := w.Snapshot()

	if v.NoTask {
		return m.styles.Pane.Render(m.styles.Info.Render("All tasks are labeled. Nothing left in the stream."))
	}
	if v.Task == nil {
		return m.styles.Pane.Render(m.spinner.View() + " loading task...")
	}

	var b strings.Builder
	title := fmt.Sprintf("Task #%d", v.Task.ID)
	if pos := m.historyPosition(); pos != "" {
		title += "  " + m.styles.Badge.Render(pos)
	}
	if v.Loading {
		title += "  " + m.spinner.View()
	}
	b.WriteString(m.styles.HeaderText.Render(title))
	b.WriteString("\n")

	if instr := m.project.Instructions(); instr != "" {
		b.WriteString(m.styles.Instruction.Render(instr))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Section.Render("Data"))
	b.WriteString("\n")
	b.WriteString(m.viewData(v))

	b.WriteString(m.styles.Section.Render("Choices"))
	b.WriteString("\n")
	b.WriteString(m.viewChoices(v))

	b.WriteString(m.styles.Section.Render("Annotations"))
	b.WriteString("\n")
	b.WriteString(m.viewAnnotations(v))

	if w.Enabled(domain.InterfacePredictions) && len(v.Predictions) > 0 {
		b.WriteString(m.styles.Instruction.Render(fmt.Sprintf("%d prediction(s) available", len(v.Predictions))))
		b.WriteString("\n")
	}

	m.detail.SetContent(strings.TrimRight(b.String(), "\n"))
	return m.styles.Pane.Render(m.detail.View())
}

// historyPosition renders the cursor of the label-stream history.
func (m *Model) historyPosition() string {
	ctrl := m.dm.Controller()
	if ctrl == nil || ctrl.History() == nil {
		return ""
	}
	h := ctrl.History()
	n, cursor := h.Len(), h.Cursor()
	if n == 0 {
		return ""
	}
	if cursor >= n {
		return fmt.Sprintf("live · %d labeled", n)
	}
	return fmt.Sprintf("%d/%d", cursor+1, n)
}

// viewData renders the task data named by the label config fields,
// or every data key when the config names none.
func (m *Model) viewData(v widget.View) string {
	fields := v.Config.Fields
	if len(fields) == 0 {
		for _, k := range slices.Sorted(maps.Keys(v.Task.Data)) {
			fields = append(fields, widget.Field{Name: k, Key: k})
		}
	}

	var b strings.Builder
	for _, f := range fields {
		value, ok := v.Task.Data[f.Key]
		text := "-"
		if ok {
			text = fmt.Sprint(value)
		}
		b.WriteString(m.styles.FieldName.Render(f.Name))
		b.WriteString(m.styles.FieldValue.Render(text))
		b.WriteString("\n")
	}
	return b.String()
}

// viewChoices renders every choice group with numbered values.
func (m *Model) viewChoices(v widget.View) string {
	var b strings.Builder
	for gi, g := range v.Config.Choices {
		style := m.styles.Group
		marker := "  "
		if gi == m.group {
			style = m.styles.GroupFocused
			marker = "> "
		}
		b.WriteString(style.Render(marker + g.Name))
		if g.Multiple {
			b.WriteString(m.styles.Instruction.Render(" (multiple)"))
		}
		b.WriteString("\n")

		var checked []string
		if v.Selected != nil {
			checked = widget.ResultChoices(v.Selected.Result, g.Name)
		}
		for i, value := range g.Values {
			if slices.Contains(checked, value) {
				b.WriteString(m.styles.ChoiceChecked.Render(fmt.Sprintf("    %d [x] %s", i+1, value)))
			} else {
				b.WriteString(m.styles.Choice.Render(fmt.Sprintf("    %d [ ] %s", i+1, value)))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// viewAnnotations lists the task's annotations and marks the selected one.
func (m *Model) viewAnnotations(v widget.View) string {
	if len(v.Annotations) == 0 {
		return m.styles.Instruction.Render("  none") + "\n"
	}

	var b strings.Builder
	for i, a := range v.Annotations {
		label := fmt.Sprintf("#%d", i+1)
		if a.PK != "" {
			label += " id:" + a.PK
		} else {
			label += " draft"
		}
		if a.CreatedBy != "" {
			label += " by " + a.CreatedBy
		}
		if a.WasCancelled {
			label += " (skipped)"
		}
		if a.GroundTruth {
			label += " ★"
		}

		if v.Selected != nil && v.Selected.ID == a.ID {
			b.WriteString(m.styles.AnnotationSel.Render("> " + label))
		} else {
			b.WriteString(m.styles.Annotation.Render("  " + label))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// viewConfirmDialog renders the confirmation dialog.
func (m *Model) viewConfirmDialog() string {
	if m.confirmAction == ConfirmNone {
		return ""
	}

	color := Colors.Warning
	if m.confirmAction == ConfirmDelete {
		color = Colors.Error
	}

	title := m.styles.DialogText.Foreground(color).Render(
		strings.ToUpper(m.confirmAction.String()[:1]) + m.confirmAction.String()[1:] + "?")
	buttons := lipgloss.JoinHorizontal(lipgloss.Left,
		m.styles.Badge.Render("[ y ] Confirm"), "  ", m.styles.Footer.Render("[ any ] Cancel"))

	content := lipgloss.JoinVertical(lipgloss.Left, title, "", buttons)
	return m.styles.Dialog.BorderForeground(color).Render(content)
}

// viewFooter renders the short key help for mode.
func (m *Model) viewFooter(mode Mode) string {
	h := m.help
	h.ShowAll = false
	var keys help.KeyMap = m.keys
	if mode == ModeLabel {
		keys = labelKeys(m.keys)
	}
	return m.styles.Footer.Render(h.View(keys))
}

// viewHelp renders the full key help.
func (m *Model) viewHelp() string {
	h := m.help
	h.ShowAll = true
	title := m.styles.HeaderText.Render("KEYBOARD SHORTCUTS")
	return title + "\n\n" + h.View(m.keys) + "\n\n" +
		m.styles.Footer.Render("Press any key to close")
}
