// Package domain contains core business entities and interfaces.
package domain

import "time"

// Region is a single labeled element of an annotation result.
// Its shape is defined by the labeling configuration, so it stays untyped.
type Region map[string]any

// Result is the domain-specific payload of an annotation or prediction.
type Result []Region

// Task represents a unit of labeling work.
// Task is a value: operations that change it return a new Task.
// Fields are ordered to minimize memory padding.
type Task struct {
	Created     time.Time      `json:"created" yaml:"created"`
	Data        map[string]any `json:"data" yaml:"data"`
	Annotations []Annotation   `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Predictions []Prediction   `json:"predictions,omitempty" yaml:"predictions,omitempty"`
	ID          int            `json:"id" yaml:"-"`
}

// Annotation is a (possibly unsaved) labeling result attached to a task.
// Fields are ordered to minimize memory padding.
type Annotation struct {
	LoadedAt          time.Time `json:"-" yaml:"-"`
	Created           time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	ID                string    `json:"-" yaml:"-"`                                   // Local identifier, assigned by the widget
	PK                string    `json:"id,omitempty" yaml:"id,omitempty"`             // Durable identifier, assigned by the task service
	CreatedBy         string    `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	Result            Result    `json:"result" yaml:"result"`
	LeadTime          float64   `json:"lead_time,omitempty" yaml:"lead_time,omitempty"` // Seconds spent labeling
	UserGenerated     bool      `json:"-" yaml:"-"`                                   // Authored in the widget, not materialized from the service
	SentUserGenerated bool      `json:"-" yaml:"-"`                                   // Submit confirmed by the task service
	WasCancelled      bool      `json:"was_cancelled,omitempty" yaml:"was_cancelled,omitempty"`
	GroundTruth       bool      `json:"ground_truth,omitempty" yaml:"ground_truth,omitempty"`
}

// Prediction is a read-only suggested annotation.
type Prediction struct {
	ID           string  `json:"id,omitempty" yaml:"id,omitempty"`
	ModelVersion string  `json:"model_version,omitempty" yaml:"model_version,omitempty"`
	Result       Result  `json:"result" yaml:"result"`
	Score        float64 `json:"score,omitempty" yaml:"score,omitempty"`
}

// Persisted reports whether the task service knows about the annotation.
// A user-generated annotation counts only once a submit has been confirmed.
func (a Annotation) Persisted() bool {
	return !a.UserGenerated || a.SentUserGenerated
}

// Key returns the identity used to address the annotation:
// the durable key when assigned, otherwise the local identifier.
func (a Annotation) Key() string {
	if a.PK != "" {
		return a.PK
	}
	return a.ID
}

// Matches reports whether id names this annotation by either identifier.
func (a Annotation) Matches(id string) bool {
	if id == "" {
		return false
	}
	return a.PK == id || a.ID == id
}

// LastAnnotation returns the most recent annotation of the task, if any.
func (t Task) LastAnnotation() (Annotation, bool) {
	if len(t.Annotations) == 0 {
		return Annotation{}, false
	}
	return t.Annotations[len(t.Annotations)-1], true
}

// FindAnnotation returns the annotation matching id by durable or local identifier.
func FindAnnotation(annotations []Annotation, id string) (Annotation, bool) {
	for _, a := range annotations {
		if a.Matches(id) {
			return a, true
		}
	}
	return Annotation{}, false
}

// WithoutAnnotation returns a copy of the task with the given annotation removed.
func (t Task) WithoutAnnotation(a Annotation) Task {
	out := t
	out.Annotations = make([]Annotation, 0, len(t.Annotations))
	for _, existing := range t.Annotations {
		if existing.Key() == a.Key() {
			continue
		}
		out.Annotations = append(out.Annotations, existing)
	}
	return out
}

// Status derives the task status shown in the task table.
func (t Task) Status() TaskStatus {
	if len(t.Annotations) == 0 {
		return TaskStatusNew
	}
	for _, a := range t.Annotations {
		if !a.WasCancelled {
			return TaskStatusLabeled
		}
	}
	return TaskStatusSkipped
}

// MergeAnnotations returns fetched with the in-memory annotations merged in.
// Every in-memory annotation keeps its place. An unsent draft is kept as is.
// A persisted one is replaced by the fetched copy with the same PK, which
// carries the server-side state (ground truth, cancellation). Fetched
// annotations not yet known are appended.
func MergeAnnotations(fetched Task, inMemory []Annotation) Task {
	if len(inMemory) == 0 {
		return fetched
	}

	byPK := make(map[string]Annotation, len(fetched.Annotations))
	for _, a := range fetched.Annotations {
		if a.PK != "" {
			byPK[a.PK] = a
		}
	}

	out := fetched
	out.Annotations = make([]Annotation, 0, len(inMemory)+len(fetched.Annotations))
	seen := make(map[string]struct{}, len(inMemory))
	for _, a := range inMemory {
		if remote, ok := byPK[a.PK]; ok && a.Persisted() {
			if remote.ID == "" {
				remote.ID = a.ID
			}
			a = remote
		}
		out.Annotations = append(out.Annotations, a)
		seen[a.Key()] = struct{}{}
	}
	for _, a := range fetched.Annotations {
		if _, ok := seen[a.Key()]; ok {
			continue
		}
		out.Annotations = append(out.Annotations, a)
		seen[a.Key()] = struct{}{}
	}
	return out
}

// TaskStatus is the labeling state of a task as shown in listings.
type TaskStatus string

// Task statuses.
const (
	TaskStatusNew     TaskStatus = "new"
	TaskStatusLabeled TaskStatus = "labeled"
	TaskStatusSkipped TaskStatus = "skipped"
)

// Entry is one step of a label-stream session: the task and the annotation
// that was persisted for it. Entries are immutable once recorded.
type Entry struct {
	AnnotationID string
	TaskID       int
}
