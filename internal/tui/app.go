package tui

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runoshun/label-crew/internal/datamanager"
	"github.com/runoshun/label-crew/internal/domain"
	"github.com/runoshun/label-crew/internal/widget"
)

// refreshEvents are the host events after which the task table is reloaded.
var refreshEvents = []string{
	domain.EventSubmitAnnotation,
	domain.EventUpdateAnnotation,
	domain.EventDeleteAnnotation,
	domain.EventSkipTask,
	domain.EventGroundTruth,
}

const (
	idColWidth          = 6
	statusColWidth      = 10
	annotationsColWidth = 12
	createdColWidth     = 18
	minTableHeight      = 5
)

// Options selects what the TUI shows first.
type Options struct {
	Annotation string // Annotation to select in Task
	Task       int    // Task to open on start (0 = none)
	Stream     bool   // Start in label-stream mode
}

// pane is the mount target of the labeling widget.
type pane struct {
	w  *widget.Terminal
	mu sync.Mutex
}

var _ domain.MountTarget = (*pane)(nil)

// Attach keeps the widget for rendering. Widgets other than the terminal
// widget cannot be drawn and are dropped.
func (p *pane) Attach(w domain.Widget) {
	t, _ := w.(*widget.Terminal)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.w = t
}

func (p *pane) terminal() *widget.Terminal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w
}

// Model is the main bubbletea model for the TUI.
type Model struct {
	// Dependencies (pointers first for alignment)
	ctx    context.Context
	dm     *datamanager.DataManager
	pane   *pane
	events chan tea.Msg
	err    error

	// State
	tasks       []domain.Task
	unsubscribe []func()
	info        string
	project     domain.Project

	// Components
	keys    KeyMap
	styles  Styles
	help    help.Model
	table   table.Model
	spinner spinner.Model
	detail  viewport.Model // Scrollable body of the labeling pane

	opts Options

	// Numeric state (smaller types last)
	mode          Mode
	prevMode      Mode
	confirmAction ConfirmAction
	width         int
	height        int
	group         int // Focused choice group in the labeling pane
	busy          bool
	historyBound  bool
}

// New creates a new TUI Model driving dm.
func New(ctx context.Context, dm *datamanager.DataManager, opts Options) *Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: idColWidth},
			{Title: "Status", Width: statusColWidth},
			{Title: "Annotations", Width: annotationsColWidth},
			{Title: "Created", Width: createdColWidth},
		}),
		table.WithFocused(true),
		table.WithHeight(minTableHeight),
	)
	t.SetStyles(tableStyles())

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	styles := DefaultStyles()
	sp.Style = styles.Spinner

	m := &Model{
		ctx:     ctx,
		dm:      dm,
		pane:    &pane{},
		events:  make(chan tea.Msg, 32),
		keys:    DefaultKeyMap(),
		styles:  styles,
		help:    help.New(),
		table:   t,
		spinner: sp,
		detail:  viewport.New(0, 0),
		opts:    opts,
		mode:    ModeTable,
	}
	for _, event := range refreshEvents {
		m.unsubscribe = append(m.unsubscribe, dm.On(event, func(...any) {
			m.notify(MsgHostEvent{Event: event})
		}))
	}
	return m
}

// Close unsubscribes the model from host events.
func (m *Model) Close() {
	for _, off := range m.unsubscribe {
		off()
	}
	m.unsubscribe = nil
}

// Run starts the TUI and blocks until the user quits.
func Run(ctx context.Context, dm *datamanager.DataManager, opts Options) error {
	m := New(ctx, dm, opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// Init initializes the model and returns the initial command.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadProject(),
		m.waitForEvent(),
	)
}

// notify queues msg for the event loop without blocking the caller.
// It is called from controller goroutines.
func (m *Model) notify(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
	}
}

// waitForEvent returns a command that delivers the next queued event.
func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.events:
			return msg
		case <-m.ctx.Done():
			return nil
		}
	}
}

// loadProject returns a command that fetches the project.
func (m *Model) loadProject() tea.Cmd {
	return func() tea.Msg {
		p, err := m.dm.FetchProject(m.ctx)
		if err != nil {
			return MsgError{Err: err}
		}
		return MsgProjectLoaded{Project: p}
	}
}

// loadTasks returns a command that loads tasks from the task service.
func (m *Model) loadTasks() tea.Cmd {
	return func() tea.Msg {
		tasks, err := m.dm.FetchTasks(m.ctx)
		if err != nil {
			return MsgError{Err: err}
		}
		return MsgTasksLoaded{Tasks: tasks}
	}
}

// startLabeling opens sel in the labeling pane. Operations run one at a time.
func (m *Model) startLabeling(sel datamanager.Selection) tea.Cmd {
	if m.busy {
		return nil
	}
	m.busy = true
	m.mode = ModeLabel
	m.group = 0
	m.err = nil
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return MsgLabelingStarted{Err: m.dm.StartLabeling(m.ctx, m.pane, sel)}
	})
}

// startStream switches the host to label-stream mode and pulls the next task.
func (m *Model) startStream() tea.Cmd {
	if m.busy {
		return nil
	}
	if !m.dm.IsLabelStream() {
		m.dm.DestroyLabeling()
		m.pane.Attach(nil)
		m.dm.SetMode(domain.ModeLabelStream)
		m.historyBound = false
	}
	return m.startLabeling(datamanager.Selection{})
}

// openTask opens task in explorer mode.
func (m *Model) openTask(task domain.Task, annotation *domain.Annotation) tea.Cmd {
	if m.busy {
		return nil
	}
	if !m.dm.IsExplorer() {
		m.dm.DestroyLabeling()
		m.pane.Attach(nil)
		m.dm.SetMode(domain.ModeExplorer)
		m.historyBound = false
	}
	return m.startLabeling(datamanager.Selection{Task: &task, Annotation: annotation})
}

// runAction runs a blocking widget action as a command.
func (m *Model) runAction(name string, fn func(ctx context.Context, w *widget.Terminal) error) tea.Cmd {
	if m.busy {
		return nil
	}
	w := m.pane.terminal()
	if w == nil {
		m.err = domain.ErrWidgetNotReady
		return nil
	}
	m.busy = true
	m.err = nil
	m.info = ""
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return MsgActionDone{Action: name, Err: fn(m.ctx, w)}
	})
}

// bindHistory subscribes to the label-stream history once per controller.
func (m *Model) bindHistory() {
	if m.historyBound {
		return
	}
	ctrl := m.dm.Controller()
	if ctrl == nil || ctrl.History() == nil {
		return
	}
	ctrl.History().OnChange(func() {
		m.notify(MsgHistoryChanged{})
	})
	m.historyBound = true
}

// SelectedTask returns the task under the table cursor, or nil if none.
func (m *Model) SelectedTask() *domain.Task {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.tasks) {
		return nil
	}
	return &m.tasks[i]
}

// updateTable rebuilds the table rows from tasks.
func (m *Model) updateTable() {
	rows := make([]table.Row, 0, len(m.tasks))
	for _, t := range m.tasks {
		created := "-"
		if !t.Created.IsZero() {
			created = t.Created.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("#%d", t.ID),
			string(t.Status()),
			fmt.Sprintf("%d", len(t.Annotations)),
			created,
		})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

// updateLayoutSizes adapts components to the window size.
func (m *Model) updateLayoutSizes() {
	m.help.Width = m.width
	h := m.height - 10
	if h < minTableHeight {
		h = minTableHeight
	}
	m.table.SetHeight(h)

	m.detail.Width = m.width - 6
	m.detail.Height = h
}

// loading reports whether the widget shows its loading state.
func (m *Model) loading() bool {
	if w := m.pane.terminal(); w != nil {
		return w.Snapshot().Loading
	}
	return false
}
