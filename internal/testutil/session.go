package testutil

import (
	"context"
	"sync"

	"github.com/runoshun/label-crew/internal/domain"
	"github.com/runoshun/label-crew/internal/widget"
)

// APICall is a task service call recorded by MockHost.
type APICall struct {
	Params domain.Params
	Body   any
	Action domain.Action
}

// HostEvent is an event recorded by MockHost.
type HostEvent struct {
	Name string
	Args []any
}

// Responder answers a task service call.
type Responder func(ctx context.Context, action domain.Action, params domain.Params, body any) (*domain.APIResponse, error)

// MockHost is a test double for domain.Host.
// Calls and events are recorded in order.
type MockHost struct {
	Respond     Responder
	ProjectData domain.Project
	ModeValue   domain.Mode
	Calls       []APICall
	Events      []HostEvent
	mu          sync.Mutex
}

var _ domain.Host = (*MockHost)(nil)

// NewMockHost creates a host in the given mode with the default label config.
func NewMockHost(mode domain.Mode) *MockHost {
	return &MockHost{
		ModeValue:   mode,
		ProjectData: domain.Project{Title: "test", LabelConfig: domain.DefaultLabelConfig},
	}
}

// Mode returns the configured mode.
func (m *MockHost) Mode() domain.Mode {
	return m.ModeValue
}

// Project returns the configured project.
func (m *MockHost) Project() domain.Project {
	return m.ProjectData
}

// APICall records the call and answers it with Respond.
// Without a responder every call succeeds with an empty response.
func (m *MockHost) APICall(ctx context.Context, action domain.Action, params domain.Params, body any) (*domain.APIResponse, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, APICall{Action: action, Params: params, Body: body})
	respond := m.Respond
	m.mu.Unlock()

	if respond == nil {
		return &domain.APIResponse{OK: true}, nil
	}
	return respond(ctx, action, params, body)
}

// Invoke records the event.
func (m *MockHost) Invoke(event string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, HostEvent{Name: event, Args: args})
}

// CallsFor returns the recorded calls of action.
func (m *MockHost) CallsFor(action domain.Action) []APICall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []APICall
	for _, c := range m.Calls {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

// LastCall returns the most recent call.
func (m *MockHost) LastCall() (APICall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return APICall{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}

// EventsNamed returns the recorded events called name.
func (m *MockHost) EventsNamed(name string) []HostEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []HostEvent
	for _, e := range m.Events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears recorded calls and events.
func (m *MockHost) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.Events = nil
}

// MockWidget is a test double for domain.Widget backed by a real
// in-memory annotation store. It records lifecycle calls and flags.
// Fields are ordered to minimize memory padding.
type MockWidget struct {
	Settings      domain.WidgetSettings
	AnnStore      *widget.Store
	AssignedTasks []domain.Task
	LoadingFlags  []bool
	NoTaskFlags   []bool
	LoadErr       error
	ResetCount    int
	mu            sync.Mutex
}

var _ domain.Widget = (*MockWidget)(nil)

// NewMockWidget creates a widget whose store uses clock.
func NewMockWidget(clock domain.Clock) *MockWidget {
	return &MockWidget{AnnStore: widget.NewStore(clock)}
}

// Constructor returns a constructor that mounts w and calls OnLoaded.
func (w *MockWidget) Constructor() domain.WidgetConstructor {
	return func(ctx context.Context, target domain.MountTarget, settings domain.WidgetSettings) (domain.Widget, error) {
		w.mu.Lock()
		w.Settings = settings
		w.mu.Unlock()
		if settings.Task != nil {
			w.AnnStore.Load(*settings.Task)
		}
		if target != nil {
			target.Attach(w)
		}
		err := settings.Callbacks.OnLoaded(ctx, w)
		w.mu.Lock()
		w.LoadErr = err
		w.mu.Unlock()
		return w, err
	}
}

// Registry returns a registry with w registered under name.
func (w *MockWidget) Registry(name string) *widget.Registry {
	r := widget.NewRegistry()
	r.Register(name, w.Constructor())
	return r
}

// ResetState clears the store.
func (w *MockWidget) ResetState() {
	w.mu.Lock()
	w.ResetCount++
	w.mu.Unlock()
	w.AnnStore.Reset()
}

// AssignTask records the task.
func (w *MockWidget) AssignTask(task domain.Task) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.AssignedTasks = append(w.AssignedTasks, task)
}

// InitializeStore loads the payload into the store.
func (w *MockWidget) InitializeStore(payload domain.TaskPayload) {
	w.AnnStore.Load(payload)
}

// SetFlags records flag changes.
func (w *MockWidget) SetFlags(flags domain.WidgetFlags) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if flags.IsLoading != nil {
		w.LoadingFlags = append(w.LoadingFlags, *flags.IsLoading)
	}
	if flags.NoTask != nil {
		w.NoTaskFlags = append(w.NoTaskFlags, *flags.NoTask)
	}
}

// Store returns the annotation store.
func (w *MockWidget) Store() domain.AnnotationStore {
	return w.AnnStore
}

// Loading reports the last loading flag set.
func (w *MockWidget) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.LoadingFlags) == 0 {
		return false
	}
	return w.LoadingFlags[len(w.LoadingFlags)-1]
}

// NoTaskCount returns how many times the end-of-stream flag was raised.
func (w *MockWidget) NoTaskCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, f := range w.NoTaskFlags {
		if f {
			n++
		}
	}
	return n
}

// MockTarget records the attached widget.
type MockTarget struct {
	Attached domain.Widget
}

// Attach records w.
func (m *MockTarget) Attach(w domain.Widget) {
	m.Attached = w
}

// MockAPI is a test double for domain.APICaller.
type MockAPI struct {
	Respond Responder
	Calls   []APICall
	mu      sync.Mutex
}

var _ domain.APICaller = (*MockAPI)(nil)

// Call records the call and answers it with Respond.
func (m *MockAPI) Call(ctx context.Context, action domain.Action, params domain.Params, body any) (*domain.APIResponse, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, APICall{Action: action, Params: params, Body: body})
	respond := m.Respond
	m.mu.Unlock()

	if respond == nil {
		return &domain.APIResponse{OK: true}, nil
	}
	return respond(ctx, action, params, body)
}

// CallsFor returns the recorded calls of action.
func (m *MockAPI) CallsFor(action domain.Action) []APICall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []APICall
	for _, c := range m.Calls {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}
