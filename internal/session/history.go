package session

import (
	"context"
	"sync"

	"github.com/runoshun/label-crew/internal/domain"
)

// TaskLoader loads a task into the labeling session.
type TaskLoader interface {
	LoadTask(ctx context.Context, taskID int, annotationID string) error
	LoadNextTask(ctx context.Context) error
}

// History is the append-only log of tasks labeled during a label stream.
// The cursor ranges over [0, Len()]; Len() means live streaming.
type History struct {
	loader   TaskLoader
	onChange func()
	entries  []domain.Entry
	cursor   int
	mu       sync.Mutex
}

// NewHistory creates an empty history that replays entries through loader.
func NewHistory(loader TaskLoader) *History {
	return &History{loader: loader}
}

// Add appends an entry and moves the cursor past it.
func (h *History) Add(taskID int, annotationID string) {
	h.mu.Lock()
	h.entries = append(h.entries, domain.Entry{TaskID: taskID, AnnotationID: annotationID})
	h.cursor = len(h.entries)
	h.mu.Unlock()

	h.notify()
}

// OnChange registers the change listener, replacing any previous one.
func (h *History) OnChange(fn func()) {
	h.mu.Lock()
	h.onChange = fn
	h.mu.Unlock()
}

// GoBackward moves the cursor back one entry and loads it.
func (h *History) GoBackward(ctx context.Context) error {
	h.mu.Lock()
	if !h.canGoBack() {
		h.mu.Unlock()
		return domain.ErrHistoryBoundary
	}
	h.cursor--
	h.mu.Unlock()

	return h.load(ctx)
}

// GoForward moves the cursor forward one entry and loads it.
// Moving past the last entry resumes the live stream.
func (h *History) GoForward(ctx context.Context) error {
	h.mu.Lock()
	if !h.canGoForward() {
		h.mu.Unlock()
		return domain.ErrHistoryBoundary
	}
	h.cursor++
	h.mu.Unlock()

	return h.load(ctx)
}

func (h *History) load(ctx context.Context) error {
	h.mu.Lock()
	index := h.cursor
	var entry domain.Entry
	replay := index >= 0 && index < len(h.entries)
	if replay {
		entry = h.entries[index]
	}
	h.mu.Unlock()

	var err error
	if replay {
		err = h.loader.LoadTask(ctx, entry.TaskID, entry.AnnotationID)
	} else {
		err = h.loader.LoadNextTask(ctx)
	}

	h.notify()
	return err
}

func (h *History) notify() {
	h.mu.Lock()
	fn := h.onChange
	h.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// CanGoBack reports whether an earlier entry exists.
func (h *History) CanGoBack() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.canGoBack()
}

// CanGoForward reports whether the cursor is behind the live position.
func (h *History) CanGoForward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.canGoForward()
}

func (h *History) canGoBack() bool {
	return len(h.entries) > 0 && h.cursor != 0
}

func (h *History) canGoForward() bool {
	return len(h.entries) > 0 && h.cursor != len(h.entries)
}

// IsFirst reports whether the cursor is at the first entry.
func (h *History) IsFirst() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor == 0
}

// IsLast reports whether the cursor is at the live position.
func (h *History) IsLast() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor == len(h.entries)
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Cursor returns the cursor position.
func (h *History) Cursor() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}

// Entries returns a copy of the log.
func (h *History) Entries() []domain.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Entry(nil), h.entries...)
}
