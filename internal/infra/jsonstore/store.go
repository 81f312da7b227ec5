// Package jsonstore provides a JSON file-based implementation of TaskRepository.
package jsonstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"syscall"

	"github.com/runoshun/label-crew/internal/domain"
)

// storeData represents the JSON file structure.
// Fields are ordered to minimize memory padding.
type storeData struct {
	Tasks   map[string]*domain.Task `json:"tasks"`
	Project *domain.Project         `json:"project,omitempty"`
	Meta    meta                    `json:"meta"`
}

// meta contains store metadata.
type meta struct {
	NextTaskID       int `json:"nextTaskID"`
	NextAnnotationID int `json:"nextAnnotationID"`
}

// Store implements domain.TaskRepository using a JSON file.
type Store struct {
	path     string
	lockPath string
}

// New creates a new Store for the given file path.
// The file does not need to exist; it will be created on first write.
func New(path string) *Store {
	return &Store{
		path:     path,
		lockPath: path + ".lock",
	}
}

// Get retrieves a task by ID.
func (s *Store) Get(id int) (*domain.Task, error) {
	var task *domain.Task
	err := s.withLock(func(data *storeData) error {
		key := strconv.Itoa(id)
		if t, ok := data.Tasks[key]; ok {
			task = t
			task.ID = id
		}
		return nil
	})
	return task, err
}

// List retrieves tasks matching the filter.
func (s *Store) List(filter domain.TaskFilter) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := s.withLock(func(data *storeData) error {
		for key, t := range data.Tasks {
			id, _ := strconv.Atoi(key)
			t.ID = id
			if filter.Match(t) {
				tasks = append(tasks, t)
			}
		}
		return nil
	})

	// Sort by ID for consistent ordering
	slices.SortFunc(tasks, func(a, b *domain.Task) int {
		return a.ID - b.ID
	})

	return tasks, err
}

// Save creates or updates a task.
func (s *Store) Save(task *domain.Task) error {
	return s.withLockWrite(func(data *storeData) error {
		key := strconv.Itoa(task.ID)
		data.Tasks[key] = task
		if task.ID >= data.Meta.NextTaskID {
			data.Meta.NextTaskID = task.ID + 1
		}
		return nil
	})
}

// Delete removes a task by ID.
func (s *Store) Delete(id int) error {
	return s.withLockWrite(func(data *storeData) error {
		delete(data.Tasks, strconv.Itoa(id))
		return nil
	})
}

// NextID returns the next available task ID.
func (s *Store) NextID() (int, error) {
	var id int
	err := s.withLockWrite(func(data *storeData) error {
		id = data.Meta.NextTaskID
		data.Meta.NextTaskID++
		return nil
	})
	return id, err
}

// NextAnnotationID returns the next durable annotation key.
func (s *Store) NextAnnotationID() (int, error) {
	var id int
	err := s.withLockWrite(func(data *storeData) error {
		id = data.Meta.NextAnnotationID
		data.Meta.NextAnnotationID++
		return nil
	})
	return id, err
}

// GetProject returns the stored project.
func (s *Store) GetProject() (*domain.Project, error) {
	var project *domain.Project
	err := s.withLock(func(data *storeData) error {
		if data.Project == nil {
			return domain.ErrNotInitialized
		}
		project = data.Project
		return nil
	})
	return project, err
}

// SaveProject stores the project.
func (s *Store) SaveProject(p *domain.Project) error {
	return s.withLockWrite(func(data *storeData) error {
		data.Project = p
		return nil
	})
}

// IsInitialized checks if the store file exists.
func (s *Store) IsInitialized() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Initialize creates an empty store file if it doesn't exist.
// An existing file with broken counters is repaired; the result reports it.
func (s *Store) Initialize() (bool, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return false, fmt.Errorf("create directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		repaired := false
		err := s.withLockWrite(func(data *storeData) error {
			repaired = repairMeta(data)
			return nil
		})
		return repaired, err
	}

	data := &storeData{
		Meta:  meta{NextTaskID: 1, NextAnnotationID: 1},
		Tasks: make(map[string]*domain.Task),
	}
	return false, s.write(data)
}

// repairMeta moves counters past every id in use.
func repairMeta(data *storeData) bool {
	nextTask, nextAnn := 1, 1
	for key, t := range data.Tasks {
		if id, err := strconv.Atoi(key); err == nil && id >= nextTask {
			nextTask = id + 1
		}
		for _, a := range t.Annotations {
			if pk, err := strconv.Atoi(a.PK); err == nil && pk >= nextAnn {
				nextAnn = pk + 1
			}
		}
	}

	repaired := false
	if data.Meta.NextTaskID < nextTask {
		data.Meta.NextTaskID = nextTask
		repaired = true
	}
	if data.Meta.NextAnnotationID < nextAnn {
		data.Meta.NextAnnotationID = nextAnn
		repaired = true
	}
	return repaired
}

// withLock executes fn with a shared (read) lock.
func (s *Store) withLock(fn func(*storeData) error) error {
	lock, err := s.acquireLock(syscall.LOCK_SH)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	data, err := s.read()
	if err != nil {
		return err
	}

	return fn(data)
}

// withLockWrite executes fn with an exclusive (write) lock and writes the result.
func (s *Store) withLockWrite(fn func(*storeData) error) error {
	lock, err := s.acquireLock(syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	data, err := s.read()
	if err != nil {
		return err
	}

	if err := fn(data); err != nil {
		return err
	}

	return s.write(data)
}

func (s *Store) acquireLock(lockType int) (*os.File, error) {
	// Ensure lock file directory exists
	dir := filepath.Dir(s.lockPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(lock.Fd()), lockType); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	return lock, nil
}

func (s *Store) releaseLock(lock *os.File) {
	_ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)
	_ = lock.Close()
}

func (s *Store) read() (*storeData, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotInitialized
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}

	var data storeData
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}

	// Ensure maps are initialized
	if data.Tasks == nil {
		data.Tasks = make(map[string]*domain.Task)
	}

	return &data, nil
}

func (s *Store) write(data *storeData) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store data: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath) // Clean up
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// Ensure Store implements TaskRepository.
var (
	_ domain.TaskRepository   = (*Store)(nil)
	_ domain.StoreInitializer = (*Store)(nil)
)
