// Package widget provides annotation widgets and the registry that resolves them.
package widget

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/runoshun/label-crew/internal/domain"
)

// Store is an in-memory annotation store.
// Annotations get a local uuid when they enter the store without one.
type Store struct {
	clock       domain.Clock
	selectedID  string
	annotations []domain.Annotation
	predictions []domain.Prediction
	mu          sync.RWMutex
}

var _ domain.AnnotationStore = (*Store)(nil)

// NewStore creates an empty store.
func NewStore(clock domain.Clock) *Store {
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &Store{clock: clock}
}

// Reset drops every annotation, prediction and the selection.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.annotations = nil
	s.predictions = nil
	s.selectedID = ""
}

// Load replaces the store contents with the payload.
func (s *Store) Load(payload domain.TaskPayload) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.annotations = make([]domain.Annotation, 0, len(payload.Annotations))
	for _, a := range payload.Annotations {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.LoadedAt = now
		s.annotations = append(s.annotations, a)
	}
	s.predictions = append([]domain.Prediction(nil), payload.Predictions...)
	s.selectedID = ""
}

// Annotations returns all annotations in display order.
func (s *Store) Annotations() []domain.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Annotation(nil), s.annotations...)
}

// Predictions returns all predictions in display order.
func (s *Store) Predictions() []domain.Prediction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Prediction(nil), s.predictions...)
}

// Selected returns the selected annotation.
func (s *Store) Selected() (domain.Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(s.selectedID); i >= 0 {
		return s.annotations[i], true
	}
	return domain.Annotation{}, false
}

// AddAnnotation appends an empty annotation.
func (s *Store) AddAnnotation(opts domain.AnnotationOptions) domain.Annotation {
	a := domain.Annotation{
		ID:            uuid.NewString(),
		LoadedAt:      s.clock.Now(),
		UserGenerated: opts.UserGenerated,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.annotations = append(s.annotations, a)
	return a
}

// AddAnnotationFromPrediction appends a user annotation seeded with the
// prediction's result.
func (s *Store) AddAnnotationFromPrediction(p domain.Prediction) domain.Annotation {
	a := domain.Annotation{
		ID:            uuid.NewString(),
		LoadedAt:      s.clock.Now(),
		Result:        cloneResult(p.Result),
		UserGenerated: true,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.annotations = append(s.annotations, a)
	return a
}

// SelectAnnotation selects the annotation matching id.
func (s *Store) SelectAnnotation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("select %s: %w", id, domain.ErrAnnotationNotFound)
	}
	s.selectedID = s.annotations[i].ID
	return nil
}

// UpdatePersonalKey records the durable key of an annotation.
// A user-generated annotation is marked as sent.
func (s *Store) UpdatePersonalKey(id, pk string) (domain.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.Annotation{}, fmt.Errorf("update key of %s: %w", id, domain.ErrAnnotationNotFound)
	}
	a := &s.annotations[i]
	a.PK = pk
	if a.UserGenerated {
		a.SentUserGenerated = true
	}
	return *a, nil
}

// DeleteAnnotation removes the annotation matching id.
func (s *Store) DeleteAnnotation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	if s.annotations[i].ID == s.selectedID {
		s.selectedID = ""
	}
	s.annotations = append(s.annotations[:i:i], s.annotations[i+1:]...)
}

// SetResult replaces the result of the annotation matching id.
func (s *Store) SetResult(id string, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("set result of %s: %w", id, domain.ErrAnnotationNotFound)
	}
	s.annotations[i].Result = result
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, a := range s.annotations {
		if a.Matches(id) {
			return i
		}
	}
	return -1
}

func cloneResult(r domain.Result) domain.Result {
	if r == nil {
		return nil
	}
	out := make(domain.Result, 0, len(r))
	for _, region := range r {
		c := make(domain.Region, len(region))
		for k, v := range region {
			c[k] = v
		}
		out = append(out, c)
	}
	return out
}
