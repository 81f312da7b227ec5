package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runoshun/label-crew/internal/domain"
	"github.com/runoshun/label-crew/internal/session"
	"github.com/runoshun/label-crew/internal/widget"
)

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayoutSizes()
		return m, nil

	case spinner.TickMsg:
		if !m.busy && !m.loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case MsgProjectLoaded:
		m.project = msg.Project
		cmds := []tea.Cmd{m.loadTasks()}
		switch {
		case m.opts.Stream:
			cmds = append(cmds, m.startStream())
		case m.opts.Task > 0:
			var annotation *domain.Annotation
			if m.opts.Annotation != "" {
				annotation = &domain.Annotation{PK: m.opts.Annotation}
			}
			cmds = append(cmds, m.openTask(domain.Task{ID: m.opts.Task}, annotation))
		}
		return m, tea.Batch(cmds...)

	case MsgTasksLoaded:
		m.tasks = msg.Tasks
		m.updateTable()
		return m, nil

	case MsgLabelingStarted:
		m.busy = false
		m.detail.GotoTop()
		if msg.Err != nil {
			m.err = msg.Err
		}
		m.bindHistory()
		return m, nil

	case MsgActionDone:
		m.busy = false
		if msg.Err != nil {
			m.err = actionError(msg.Action, msg.Err)
			return m, nil
		}
		m.info = msg.Action + " done"
		return m, nil

	case MsgHostEvent:
		return m, tea.Batch(m.loadTasks(), m.waitForEvent())

	case MsgHistoryChanged:
		m.detail.GotoTop()
		return m, m.waitForEvent()

	case MsgError:
		m.err = msg.Err
		m.busy = false
		if m.mode == ModeConfirm {
			m.mode = m.prevMode
		}
		m.confirmAction = ConfirmNone
		return m, nil

	case MsgClearError:
		m.err = nil
		return m, nil
	}

	return m, nil
}

// handleKeyMsg handles keyboard input.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.mode {
	case ModeHelp:
		m.mode = m.prevMode
		return m, nil
	case ModeConfirm:
		return m.handleConfirmMode(msg)
	case ModeTable, ModeLabel:
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.prevMode = m.mode
		m.mode = ModeHelp
		return m, nil
	}

	if m.mode == ModeLabel {
		return m.handleLabelMode(msg)
	}
	return m.handleTableMode(msg)
}

func (m *Model) handleTableMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Open):
		task := m.SelectedTask()
		if task == nil {
			return m, nil
		}
		return m, m.openTask(*task, nil)

	case key.Matches(msg, m.keys.Stream):
		return m, m.startStream()

	case key.Matches(msg, m.keys.Refresh):
		m.err = nil
		return m, m.loadTasks()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) handleLabelMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Escape) {
		if m.busy {
			return m, nil
		}
		m.mode = ModeTable
		m.info = ""
		return m, m.loadTasks()
	}
	switch {
	case key.Matches(msg, m.keys.ScrollUp):
		m.detail.HalfPageUp()
		return m, nil
	case key.Matches(msg, m.keys.ScrollDown):
		m.detail.HalfPageDown()
		return m, nil
	}
	if m.busy {
		return m, nil
	}

	w := m.pane.terminal()
	if w == nil {
		m.err = domain.ErrWidgetNotReady
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Choice):
		n, _ := strconv.Atoi(msg.String())
		m.setErr(m.toggleChoice(w, n-1))
		return m, nil

	case key.Matches(msg, m.keys.NextGroup):
		if groups := w.Config().Choices; len(groups) > 0 {
			m.group = (m.group + 1) % len(groups)
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m, m.runAction("submit", func(ctx context.Context, w *widget.Terminal) error {
			return w.Submit(ctx)
		})

	case key.Matches(msg, m.keys.Skip):
		return m.confirm(ConfirmSkip)

	case key.Matches(msg, m.keys.Delete):
		return m.confirm(ConfirmDelete)

	case key.Matches(msg, m.keys.New):
		_, err := w.NewAnnotation()
		m.setErr(err)
		return m, nil

	case key.Matches(msg, m.keys.Cycle):
		m.setErr(cycleAnnotation(w))
		return m, nil

	case key.Matches(msg, m.keys.GroundTruth):
		selected := w.Snapshot().Selected
		if selected == nil {
			m.err = domain.ErrNoAnnotationSelected
			return m, nil
		}
		value := !selected.GroundTruth
		return m, m.runAction("ground truth", func(ctx context.Context, w *widget.Terminal) error {
			return w.SetGroundTruth(ctx, value)
		})

	case key.Matches(msg, m.keys.Back):
		return m, m.navigate("back", func(ctx context.Context, h historyNavigator) error {
			return h.GoBackward(ctx)
		})

	case key.Matches(msg, m.keys.Forward):
		return m, m.navigate("forward", func(ctx context.Context, h historyNavigator) error {
			return h.GoForward(ctx)
		})
	}
	return m, nil
}

func (m *Model) handleConfirmMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := m.confirmAction
	m.mode = m.prevMode
	m.confirmAction = ConfirmNone

	if !key.Matches(msg, m.keys.Confirm) {
		return m, nil
	}

	switch action {
	case ConfirmSkip:
		return m, m.runAction("skip", func(ctx context.Context, w *widget.Terminal) error {
			return w.Skip(ctx)
		})
	case ConfirmDelete:
		return m, m.runAction("delete", func(ctx context.Context, w *widget.Terminal) error {
			return w.Delete(ctx)
		})
	case ConfirmNone:
	}
	return m, nil
}

func (m *Model) confirm(action ConfirmAction) (tea.Model, tea.Cmd) {
	m.prevMode = m.mode
	m.mode = ModeConfirm
	m.confirmAction = action
	return m, nil
}

func (m *Model) setErr(err error) {
	m.err = err
	if err != nil {
		m.info = ""
	}
}

// historyNavigator moves through the label-stream history.
type historyNavigator interface {
	GoBackward(ctx context.Context) error
	GoForward(ctx context.Context) error
}

func (m *Model) navigate(name string, fn func(ctx context.Context, h historyNavigator) error) tea.Cmd {
	ctrl := m.dm.Controller()
	if ctrl == nil || ctrl.History() == nil {
		m.info = "history is only kept in the label stream"
		return nil
	}
	h := ctrl.History()
	return m.runAction(name, func(ctx context.Context, _ *widget.Terminal) error {
		return fn(ctx, h)
	})
}

// toggleChoice toggles the i-th value of the focused choice group.
func (m *Model) toggleChoice(w *widget.Terminal, i int) error {
	groups := w.Config().Choices
	if m.group >= len(groups) {
		return fmt.Errorf("%w: no choice group", domain.ErrUnknownChoice)
	}
	g := groups[m.group]
	if i < 0 || i >= len(g.Values) {
		return fmt.Errorf("%w: %s has no choice %d", domain.ErrUnknownChoice, g.Name, i+1)
	}
	return w.ToggleChoice(g.Name, g.Values[i])
}

// cycleAnnotation selects the annotation after the selected one.
func cycleAnnotation(w *widget.Terminal) error {
	v := w.Snapshot()
	if len(v.Annotations) == 0 {
		return domain.ErrNoAnnotationSelected
	}
	next := 0
	if v.Selected != nil {
		for i, a := range v.Annotations {
			if a.ID == v.Selected.ID {
				next = (i + 1) % len(v.Annotations)
				break
			}
		}
	}
	return w.Select(v.Annotations[next].Key())
}

// actionError labels a failed action for the status line.
func actionError(action string, err error) error {
	if session.IsTimeout(err) {
		return fmt.Errorf("%s: task service timed out: %w", action, err)
	}
	return fmt.Errorf("%s: %w", action, err)
}
