package domain

import (
	"context"
	"time"
)

// APICaller is the transport-agnostic capability to talk to the task service.
type APICaller interface {
	// Call performs action against the resource addressed by params.
	// body is encoded by the transport; it may be nil.
	Call(ctx context.Context, action Action, params Params, body any) (*APIResponse, error)
}

// Host is the application embedding a labeling session.
type Host interface {
	// Mode returns the session mode.
	Mode() Mode

	// APICall forwards an action to the task service.
	APICall(ctx context.Context, action Action, params Params, body any) (*APIResponse, error)

	// Invoke notifies event handlers registered for event.
	Invoke(event string, args ...any)

	// Project returns the labeling project.
	Project() Project
}

// StoreInitializer initializes the data store.
type StoreInitializer interface {
	// Initialize creates the store if it doesn't exist.
	// Returns true if an existing store needed repair.
	Initialize() (bool, error)

	// IsInitialized reports whether the store exists.
	IsInitialized() bool
}

// TaskRepository manages task persistence for the local task service.
type TaskRepository interface {
	// Get retrieves a task by ID. Returns nil if not found.
	Get(id int) (*Task, error)

	// List retrieves tasks ordered by ID.
	List(filter TaskFilter) ([]*Task, error)

	// Save creates or updates a task.
	Save(task *Task) error

	// Delete removes a task by ID.
	Delete(id int) error

	// NextID returns the next available task ID.
	NextID() (int, error)

	// NextAnnotationID returns the next durable annotation key.
	NextAnnotationID() (int, error)

	// GetProject returns the stored project.
	GetProject() (*Project, error)

	// SaveProject stores the project.
	SaveProject(p *Project) error
}

// TaskFilter specifies criteria for listing tasks.
type TaskFilter struct {
	Status TaskStatus // Empty = all tasks
}

// Match reports whether the task passes the filter.
func (f TaskFilter) Match(t *Task) bool {
	return f.Status == "" || t.Status() == f.Status
}

// ConfigLoader loads configuration from files.
type ConfigLoader interface {
	// Load returns the merged configuration (project + global).
	Load() (*Config, error)

	// LoadGlobal returns only the global configuration.
	LoadGlobal() (*Config, error)
}

// ConfigInfo describes a configuration file.
type ConfigInfo struct {
	Path    string
	Content string
	Exists  bool
}

// ConfigManager inspects and creates configuration files.
type ConfigManager interface {
	GetProjectConfigInfo() ConfigInfo
	GetGlobalConfigInfo() ConfigInfo
	// InitProjectConfig and InitGlobalConfig write the template rendered
	// from cfg (defaults when nil). Existing files are never overwritten.
	InitProjectConfig(cfg *Config) error
	InitGlobalConfig(cfg *Config) error
}

// Logger writes operational logs. taskID 0 means not task-specific.
type Logger interface {
	Info(taskID int, category, msg string)
	Debug(taskID int, category, msg string)
	Warn(taskID int, category, msg string)
	Error(taskID int, category, msg string)
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// NopLogger discards all log messages.
type NopLogger struct{}

func (NopLogger) Info(int, string, string)  {}
func (NopLogger) Debug(int, string, string) {}
func (NopLogger) Warn(int, string, string)  {}
func (NopLogger) Error(int, string, string) {}
