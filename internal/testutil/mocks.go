// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/runoshun/label-crew/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
	mu      sync.Mutex
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.NowTime
}

// Advance moves the clock forward.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NowTime = m.NowTime.Add(d)
}

// MockTaskRepository is a test double for domain.TaskRepository.
// Fields are ordered to minimize memory padding.
type MockTaskRepository struct {
	Tasks             map[int]*domain.Task
	Project           *domain.Project
	SaveErr           error
	GetErr            error
	ListErr           error
	NextIDN           int
	NextAnnotationIDN int
}

// NewMockTaskRepository creates a new MockTaskRepository with initialized maps.
func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{
		Tasks:             make(map[int]*domain.Task),
		NextIDN:           1,
		NextAnnotationIDN: 1,
	}
}

var _ domain.TaskRepository = (*MockTaskRepository)(nil)

// Get retrieves a task by ID.
func (m *MockTaskRepository) Get(id int) (*domain.Task, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	task, ok := m.Tasks[id]
	if !ok {
		return nil, nil
	}
	t := *task
	return &t, nil
}

// List returns tasks matching the filter ordered by ID.
func (m *MockTaskRepository) List(filter domain.TaskFilter) ([]*domain.Task, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	tasks := make([]*domain.Task, 0, len(m.Tasks))
	for _, t := range m.Tasks {
		if filter.Match(t) {
			c := *t
			tasks = append(tasks, &c)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// Save saves a task.
func (m *MockTaskRepository) Save(task *domain.Task) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	t := *task
	m.Tasks[task.ID] = &t
	if task.ID >= m.NextIDN {
		m.NextIDN = task.ID + 1
	}
	return nil
}

// Delete removes a task by ID.
func (m *MockTaskRepository) Delete(id int) error {
	delete(m.Tasks, id)
	return nil
}

// NextID returns the next available task ID.
func (m *MockTaskRepository) NextID() (int, error) {
	id := m.NextIDN
	m.NextIDN++
	return id, nil
}

// NextAnnotationID returns the next durable annotation key.
func (m *MockTaskRepository) NextAnnotationID() (int, error) {
	id := m.NextAnnotationIDN
	m.NextAnnotationIDN++
	return id, nil
}

// GetProject returns the stored project.
func (m *MockTaskRepository) GetProject() (*domain.Project, error) {
	if m.Project == nil {
		return nil, domain.ErrNotInitialized
	}
	p := *m.Project
	return &p, nil
}

// SaveProject stores the project.
func (m *MockTaskRepository) SaveProject(p *domain.Project) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	c := *p
	m.Project = &c
	return nil
}

// MockStoreInitializer is a test double for domain.StoreInitializer.
type MockStoreInitializer struct {
	InitErr     error
	Initialized bool
	Repaired    bool
}

// Initialize marks the store initialized.
func (m *MockStoreInitializer) Initialize() (bool, error) {
	if m.InitErr != nil {
		return false, m.InitErr
	}
	m.Initialized = true
	return m.Repaired, nil
}

// IsInitialized returns the configured value.
func (m *MockStoreInitializer) IsInitialized() bool {
	return m.Initialized
}

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config       *domain.Config
	GlobalConfig *domain.Config
	LoadErr      error
	GlobalErr    error
}

// NewMockConfigLoader creates a new MockConfigLoader with default config.
func NewMockConfigLoader() *MockConfigLoader {
	return &MockConfigLoader{
		Config: domain.NewDefaultConfig(),
	}
}

// Ensure MockConfigLoader implements domain.ConfigLoader interface.
var _ domain.ConfigLoader = (*MockConfigLoader)(nil)

// Load returns the configured config or error.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Config, nil
}

// LoadGlobal returns the configured config or error.
func (m *MockConfigLoader) LoadGlobal() (*domain.Config, error) {
	if m.GlobalErr != nil {
		return nil, m.GlobalErr
	}
	if m.GlobalConfig != nil {
		return m.GlobalConfig, nil
	}
	return m.Config, nil
}

// MockConfigManager is a test double for domain.ConfigManager.
// Fields are ordered to minimize memory padding.
type MockConfigManager struct {
	InitProjectErr    error
	InitConfig        *domain.Config // Config passed to the last Init call
	InitGlobalErr     error
	ProjectConfigInfo domain.ConfigInfo
	GlobalConfigInfo  domain.ConfigInfo
	InitProjectCalled bool
	InitGlobalCalled  bool
}

// NewMockConfigManager creates a new MockConfigManager.
func NewMockConfigManager() *MockConfigManager {
	return &MockConfigManager{
		ProjectConfigInfo: domain.ConfigInfo{
			Path:   "/test/.labelcrew/config.toml",
			Exists: false,
		},
		GlobalConfigInfo: domain.ConfigInfo{
			Path:   "/home/test/.config/labelcrew/config.toml",
			Exists: false,
		},
	}
}

// Ensure MockConfigManager implements domain.ConfigManager interface.
var _ domain.ConfigManager = (*MockConfigManager)(nil)

// GetProjectConfigInfo returns the configured project config info.
func (m *MockConfigManager) GetProjectConfigInfo() domain.ConfigInfo {
	return m.ProjectConfigInfo
}

// GetGlobalConfigInfo returns the configured global config info.
func (m *MockConfigManager) GetGlobalConfigInfo() domain.ConfigInfo {
	return m.GlobalConfigInfo
}

// InitProjectConfig records the call and returns configured error.
func (m *MockConfigManager) InitProjectConfig(cfg *domain.Config) error {
	m.InitProjectCalled = true
	m.InitConfig = cfg
	return m.InitProjectErr
}

// InitGlobalConfig records the call and returns configured error.
func (m *MockConfigManager) InitGlobalConfig(cfg *domain.Config) error {
	m.InitGlobalCalled = true
	m.InitConfig = cfg
	return m.InitGlobalErr
}

// LogEntry is a message recorded by MockLogger.
type LogEntry struct {
	Level    string
	Category string
	Msg      string
	TaskID   int
}

// MockLogger records log messages.
type MockLogger struct {
	Entries []LogEntry
	mu      sync.Mutex
}

var _ domain.Logger = (*MockLogger)(nil)

func (m *MockLogger) record(level string, taskID int, category, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, LogEntry{Level: level, TaskID: taskID, Category: category, Msg: msg})
}

// Info records an info message.
func (m *MockLogger) Info(taskID int, category, msg string) { m.record("INFO", taskID, category, msg) }

// Debug records a debug message.
func (m *MockLogger) Debug(taskID int, category, msg string) { m.record("DEBUG", taskID, category, msg) }

// Warn records a warning.
func (m *MockLogger) Warn(taskID int, category, msg string) { m.record("WARN", taskID, category, msg) }

// Error records an error.
func (m *MockLogger) Error(taskID int, category, msg string) { m.record("ERROR", taskID, category, msg) }

// Levels returns the recorded entries formatted as "LEVEL msg".
func (m *MockLogger) Levels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, fmt.Sprintf("%s %s", e.Level, e.Msg))
	}
	return out
}

// Count returns the number of entries at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}
