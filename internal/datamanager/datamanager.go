// Package datamanager is the host application of labeling sessions.
// It owns the session mode, the task service connection and the event
// handlers other parts of the UI subscribe to.
package datamanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/runoshun/label-crew/internal/domain"
	"github.com/runoshun/label-crew/internal/session"
)

const logCategory = "datamanager"

// Handler receives the arguments of an event.
type Handler func(args ...any)

type handlerEntry struct {
	fn Handler
	id int
}

// LabelOptions are passed to every labeling session.
type LabelOptions struct {
	User       domain.User
	Widget     string
	Interfaces []string
	Timeout    time.Duration
}

// Options configures a DataManager.
// Fields are ordered to minimize memory padding.
type Options struct {
	API      domain.APICaller
	Registry domain.WidgetRegistry
	Logger   domain.Logger
	Clock    domain.Clock
	Mode     domain.Mode
	Label    LabelOptions
}

// Selection is the task and annotation the user picked in the table.
type Selection struct {
	Task       *domain.Task
	Annotation *domain.Annotation
}

// DataManager implements domain.Host.
type DataManager struct {
	api      domain.APICaller
	registry domain.WidgetRegistry
	logger   domain.Logger
	clock    domain.Clock
	handlers map[string][]handlerEntry
	project  *domain.Project
	ctrl     *session.Controller
	mode     domain.Mode
	label    LabelOptions
	nextID   int
	mu       sync.RWMutex
}

var _ domain.Host = (*DataManager)(nil)

// New creates a DataManager.
func New(opts Options) *DataManager {
	dm := &DataManager{
		api:      opts.API,
		registry: opts.Registry,
		logger:   opts.Logger,
		clock:    opts.Clock,
		mode:     opts.Mode,
		label:    opts.Label,
		handlers: make(map[string][]handlerEntry),
	}
	if dm.mode == "" {
		dm.mode = domain.ModeExplorer
	}
	if dm.logger == nil {
		dm.logger = domain.NopLogger{}
	}
	if dm.clock == nil {
		dm.clock = domain.RealClock{}
	}
	return dm
}

// Mode returns the current mode.
func (dm *DataManager) Mode() domain.Mode {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.mode
}

// SetMode switches between explorer and label stream.
func (dm *DataManager) SetMode(mode domain.Mode) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.mode = mode
}

// IsExplorer reports whether the user picks tasks from the table.
func (dm *DataManager) IsExplorer() bool {
	return dm.Mode() == domain.ModeExplorer
}

// IsLabelStream reports whether tasks are pulled one after another.
func (dm *DataManager) IsLabelStream() bool {
	return dm.Mode() == domain.ModeLabelStream
}

// On subscribes fn to event. The returned function unsubscribes it.
func (dm *DataManager) On(event string, fn Handler) func() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.nextID++
	id := dm.nextID
	dm.handlers[event] = append(dm.handlers[event], handlerEntry{id: id, fn: fn})

	return func() {
		dm.mu.Lock()
		defer dm.mu.Unlock()
		entries := dm.handlers[event]
		for i, e := range entries {
			if e.id == id {
				dm.handlers[event] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Off removes every handler of event.
func (dm *DataManager) Off(event string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	delete(dm.handlers, event)
}

// Invoke calls the handlers of event in subscription order.
// A panicking handler is logged and does not stop the others.
func (dm *DataManager) Invoke(event string, args ...any) {
	dm.mu.RLock()
	entries := append([]handlerEntry(nil), dm.handlers[event]...)
	dm.mu.RUnlock()

	for _, e := range entries {
		dm.call(event, e.fn, args)
	}
}

func (dm *DataManager) call(event string, fn Handler, args []any) {
	defer func() {
		if r := recover(); r != nil {
			dm.logger.Error(0, logCategory, fmt.Sprintf("handler for %s panicked: %v", event, r))
		}
	}()
	fn(args...)
}

// APICall forwards an action to the task service.
func (dm *DataManager) APICall(ctx context.Context, action domain.Action, params domain.Params, body any) (*domain.APIResponse, error) {
	dm.logger.Debug(0, logCategory, fmt.Sprintf("api %s %v", action, params))
	resp, err := dm.api.Call(ctx, action, params, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	return resp, nil
}

// FetchProject loads the project from the task service.
func (dm *DataManager) FetchProject(ctx context.Context) (domain.Project, error) {
	resp, err := dm.APICall(ctx, domain.ActionProject, domain.Params{}, nil)
	if err != nil {
		return domain.Project{}, err
	}
	if resp == nil || resp.Project == nil {
		return domain.Project{}, fmt.Errorf("fetch project: %w", domain.ErrNotInitialized)
	}
	p := *resp.Project

	dm.mu.Lock()
	dm.project = &p
	dm.mu.Unlock()
	return p, nil
}

// FetchTasks lists the tasks of the project.
func (dm *DataManager) FetchTasks(ctx context.Context) ([]domain.Task, error) {
	resp, err := dm.APICall(ctx, domain.ActionTasks, domain.Params{}, nil)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return resp.Tasks, nil
}

// Project returns the last fetched project.
func (dm *DataManager) Project() domain.Project {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	if dm.project == nil {
		return domain.Project{}
	}
	return *dm.project
}

// Controller returns the live session controller, if any.
func (dm *DataManager) Controller() *session.Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.ctrl
}

// StartLabeling opens the selected task in the labeling widget.
// With nothing selected the session pulls tasks as a label stream.
// The controller is created once and reused for later selections.
func (dm *DataManager) StartLabeling(ctx context.Context, target domain.MountTarget, sel Selection) error {
	ctrl := dm.Controller()

	if ctrl != nil && sel.Task != nil {
		if current, ok := ctrl.Task(); ok && current.ID == sel.Task.ID && sel.Annotation == nil {
			return nil
		}
	}

	if ctrl == nil {
		ctrl = session.New(ctx, dm, dm.registry, target, session.Options{
			Task:        sel.Task,
			Annotation:  sel.Annotation,
			LabelStream: sel.Task == nil,
			User:        dm.label.User,
			Interfaces:  dm.label.Interfaces,
			Widget:      dm.label.Widget,
			Timeout:     dm.label.Timeout,
			Logger:      dm.logger,
			Clock:       dm.clock,
		})
		dm.mu.Lock()
		dm.ctrl = ctrl
		dm.mu.Unlock()
		return nil
	}

	if sel.Task == nil {
		return ctrl.LoadNextTask(ctx)
	}

	annotationID := ""
	switch {
	case sel.Annotation != nil:
		annotationID = sel.Annotation.Key()
	default:
		if last, ok := sel.Task.LastAnnotation(); ok {
			annotationID = last.Key()
		}
	}
	return ctrl.LoadTask(ctx, sel.Task.ID, annotationID)
}

// DestroyLabeling drops the session controller.
func (dm *DataManager) DestroyLabeling() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.ctrl = nil
}
