// Package gitstore provides a Git plumbing-based implementation of TaskRepository.
package gitstore

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"gopkg.in/yaml.v3"

	"github.com/runoshun/label-crew/internal/domain"
	"github.com/runoshun/label-crew/internal/infra/crypto"
)

// Store implements domain.TaskRepository using Git plumbing (refs and blobs).
//
// Data structure:
//
//	refs/<namespace>/
//	  meta        → blob (nextTaskID, nextAnnotationID)
//	  project     → blob (project YAML)
//	  initialized → blob (marker)
//	  tasks/
//	    <id>      → blob (task YAML)
type Store struct {
	repo      *git.Repository
	sealer    *crypto.Sealer // nil stores plain YAML blobs
	namespace string         // e.g., "labelcrew"
	mu        sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithSealer encrypts every blob the store writes.
func WithSealer(sealer *crypto.Sealer) Option {
	return func(s *Store) {
		s.sealer = sealer
	}
}

// meta contains store metadata.
type meta struct {
	NextTaskID       int `yaml:"nextTaskID"`
	NextAnnotationID int `yaml:"nextAnnotationID"`
}

// New opens the repository at repoPath.
func New(repoPath, namespace string, opts ...Option) (*Store, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository: %w", err)
	}
	return NewWithRepo(repo, namespace, opts...), nil
}

// NewWithRepo creates a new Store with an existing repository instance.
func NewWithRepo(repo *git.Repository, namespace string, opts ...Option) *Store {
	if namespace == "" {
		namespace = domain.DefaultNamespace
	}
	s := &Store{
		repo:      repo,
		namespace: namespace,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// refPrefix returns the ref prefix for this namespace.
func (s *Store) refPrefix() string {
	return "refs/" + s.namespace + "/"
}

// taskRef returns the ref name for a task.
func (s *Store) taskRef(id int) plumbing.ReferenceName {
	return plumbing.ReferenceName(domain.TaskRefName(s.namespace, id))
}

func (s *Store) metaRef() plumbing.ReferenceName {
	return plumbing.ReferenceName(s.refPrefix() + "meta")
}

func (s *Store) projectRef() plumbing.ReferenceName {
	return plumbing.ReferenceName(s.refPrefix() + "project")
}

func (s *Store) initializedRef() plumbing.ReferenceName {
	return plumbing.ReferenceName(s.refPrefix() + "initialized")
}

// Get retrieves a task by ID.
func (s *Store) Get(id int) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, err := s.repo.Reference(s.taskRef(id), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("get task ref: %w", err)
	}

	return s.decodeTask(ref.Hash(), id)
}

// List retrieves tasks matching the filter.
func (s *Store) List(filter domain.TaskFilter) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []*domain.Task
	prefix := s.refPrefix() + "tasks/"

	refs, err := s.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}

	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().String()
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		taskID, ok := domain.ParseTaskRefID(name)
		if !ok {
			return nil // Skip invalid refs
		}

		task, decodeErr := s.decodeTask(ref.Hash(), taskID)
		if decodeErr != nil {
			return decodeErr
		}
		if filter.Match(task) {
			tasks = append(tasks, task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Sort by ID for consistent ordering
	slices.SortFunc(tasks, func(a, b *domain.Task) int {
		return a.ID - b.ID
	})

	return tasks, nil
}

func (s *Store) decodeTask(hash plumbing.Hash, id int) (*domain.Task, error) {
	data, err := s.readBlob(hash)
	if err != nil {
		return nil, fmt.Errorf("read task: %w", err)
	}

	var task domain.Task
	if err := yaml.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	task.ID = id
	return &task, nil
}

// Save creates or updates a task.
func (s *Store) Save(task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Serialize task to YAML
	data, err := yaml.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	if err := s.writeRef(s.taskRef(task.ID), data); err != nil {
		return fmt.Errorf("set task ref: %w", err)
	}

	m, err := s.loadMeta()
	if err != nil {
		return err
	}
	if task.ID >= m.NextTaskID {
		m.NextTaskID = task.ID + 1
		return s.saveMeta(m)
	}
	return nil
}

// Delete removes a task.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Storer.RemoveReference(s.taskRef(id)); err != nil {
		if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return fmt.Errorf("remove task ref: %w", err)
		}
	}
	return nil
}

// NextID returns the next available task ID.
func (s *Store) NextID() (int, error) {
	return s.nextCounter(func(m *meta) *int { return &m.NextTaskID })
}

// NextAnnotationID returns the next durable annotation key.
func (s *Store) NextAnnotationID() (int, error) {
	return s.nextCounter(func(m *meta) *int { return &m.NextAnnotationID })
}

func (s *Store) nextCounter(field func(*meta) *int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadMeta()
	if err != nil {
		return 0, err
	}

	counter := field(m)
	id := *counter
	*counter++

	if err := s.saveMeta(m); err != nil {
		return 0, err
	}
	return id, nil
}

// GetProject returns the stored project.
func (s *Store) GetProject() (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, err := s.repo.Reference(s.projectRef(), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, domain.ErrNotInitialized
		}
		return nil, fmt.Errorf("get project ref: %w", err)
	}

	data, err := s.readBlob(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}

	var p domain.Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	return &p, nil
}

// SaveProject stores the project.
func (s *Store) SaveProject(p *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	if err := s.writeRef(s.projectRef(), data); err != nil {
		return fmt.Errorf("set project ref: %w", err)
	}
	return nil
}

// loadMeta loads metadata from the meta ref.
// If the meta ref doesn't exist, the counters are calculated from existing tasks.
func (s *Store) loadMeta() (*meta, error) {
	ref, err := s.repo.Reference(s.metaRef(), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			nextTask, nextAnn := s.calculateCounters()
			return &meta{NextTaskID: nextTask, NextAnnotationID: nextAnn}, nil
		}
		return nil, fmt.Errorf("get meta ref: %w", err)
	}

	data, err := s.readBlob(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}

	var m meta
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}

	return &m, nil
}

// calculateCounters returns max+1 of the task ids and of the numeric annotation keys.
// Both start at 1.
func (s *Store) calculateCounters() (int, int) {
	maxTask, maxAnn := 0, 0

	iter, err := s.repo.References()
	if err != nil {
		return 1, 1
	}

	prefix := s.refPrefix() + "tasks/"
	_ = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().String()
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		id, ok := domain.ParseTaskRefID(name)
		if !ok {
			return nil
		}
		maxTask = max(maxTask, id)

		task, decodeErr := s.decodeTask(ref.Hash(), id)
		if decodeErr != nil {
			return nil
		}
		for _, a := range task.Annotations {
			if pk, convErr := strconv.Atoi(a.PK); convErr == nil {
				maxAnn = max(maxAnn, pk)
			}
		}
		return nil
	})

	return maxTask + 1, maxAnn + 1
}

// saveMeta saves metadata to the meta ref.
func (s *Store) saveMeta(m *meta) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	if err := s.writeRef(s.metaRef(), data); err != nil {
		return fmt.Errorf("set meta ref: %w", err)
	}
	return nil
}

// writeRef stores data as a blob and points name at it.
func (s *Store) writeRef(name plumbing.ReferenceName, data []byte) error {
	hash, err := s.writeBlob(data)
	if err != nil {
		return err
	}
	return s.repo.Storer.SetReference(plumbing.NewHashReference(name, hash))
}

// writeBlob writes data to a blob and returns the hash.
func (s *Store) writeBlob(data []byte) (plumbing.Hash, error) {
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(data)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("encrypt blob: %w", err)
		}
		data = sealed
	}

	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("create blob writer: %w", err)
	}

	if _, writeErr := writer.Write(data); writeErr != nil {
		_ = writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("write blob: %w", writeErr)
	}
	_ = writer.Close()

	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store blob: %w", err)
	}

	return hash, nil
}

// readBlob reads the content of a blob.
func (s *Store) readBlob(hash plumbing.Hash) ([]byte, error) {
	blob, err := s.repo.BlobObject(hash)
	if err != nil {
		return nil, fmt.Errorf("get blob: %w", err)
	}

	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read blob data: %w", err)
	}

	if s.sealer != nil {
		plain, err := s.sealer.Open(data)
		if err != nil {
			return nil, fmt.Errorf("decrypt blob: %w", err)
		}
		return plain, nil
	}
	return data, nil
}

// Initialize creates initial metadata if it doesn't exist.
// If meta exists but a counter is behind the stored data, it is moved forward.
// This repair logic runs even if already initialized.
// Returns true if any repair was performed.
func (s *Store) Initialize() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repaired := false

	minTask, minAnn := s.calculateCounters()
	m, loadErr := s.loadMeta()
	if loadErr != nil {
		return false, fmt.Errorf("load meta: %w", loadErr)
	}

	if m.NextTaskID < minTask || m.NextAnnotationID < minAnn {
		m.NextTaskID = max(m.NextTaskID, minTask)
		m.NextAnnotationID = max(m.NextAnnotationID, minAnn)
		repaired = true
	}

	_, err := s.repo.Reference(s.initializedRef(), true)
	if err == nil {
		if repaired {
			return true, s.saveMeta(m)
		}
		return false, nil
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, fmt.Errorf("check initialized ref: %w", err)
	}

	if err := s.saveMeta(m); err != nil {
		return false, err
	}
	if err := s.writeRef(s.initializedRef(), []byte("initialized")); err != nil {
		return false, fmt.Errorf("set initialized ref: %w", err)
	}

	return repaired, nil
}

// IsInitialized checks if the store has been initialized.
func (s *Store) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := s.repo.Reference(s.initializedRef(), true)
	return err == nil
}

// Ensure Store implements TaskRepository.
var _ domain.TaskRepository = (*Store)(nil)

// Ensure Store implements StoreInitializer.
var _ domain.StoreInitializer = (*Store)(nil)
