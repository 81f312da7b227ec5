package domain

import "context"

// Widget is the control surface of an embedded annotation widget.
// The widget's document model is opaque; the session controller is the only
// caller of these methods.
type Widget interface {
	// ResetState clears the widget's internal document.
	ResetState()

	// AssignTask hands the task the widget is about to show.
	AssignTask(task Task)

	// InitializeStore loads the task payload into a fresh document.
	InitializeStore(payload TaskPayload)

	// SetFlags updates presentation flags. Nil fields are left unchanged.
	SetFlags(flags WidgetFlags)

	// Store returns the widget's annotation store.
	Store() AnnotationStore
}

// AnnotationStore is the widget-side list of annotations and predictions.
type AnnotationStore interface {
	// Annotations returns all annotations in display order.
	Annotations() []Annotation

	// Predictions returns all predictions in display order.
	Predictions() []Prediction

	// Selected returns the currently selected annotation.
	Selected() (Annotation, bool)

	// AddAnnotation creates an empty annotation.
	AddAnnotation(opts AnnotationOptions) Annotation

	// AddAnnotationFromPrediction materializes a prediction as a new annotation.
	AddAnnotationFromPrediction(p Prediction) Annotation

	// SelectAnnotation selects the annotation matching id.
	SelectAnnotation(id string) error

	// UpdatePersonalKey records the durable key the service assigned.
	UpdatePersonalKey(id, pk string) (Annotation, error)

	// DeleteAnnotation removes the annotation matching id.
	DeleteAnnotation(id string)
}

// AnnotationOptions configures a new annotation.
type AnnotationOptions struct {
	UserGenerated bool
}

// WidgetFlags are presentation flags. A nil field is left unchanged.
type WidgetFlags struct {
	IsLoading *bool
	NoTask    *bool
}

// LoadingFlag returns flags that only set the loading state.
func LoadingFlag(loading bool) WidgetFlags {
	return WidgetFlags{IsLoading: &loading}
}

// NoTaskFlag returns flags that only set the end-of-stream state.
func NoTaskFlag(noTask bool) WidgetFlags {
	return WidgetFlags{NoTask: &noTask}
}

// TaskPayload is the task in the form the widget consumes.
// Fields are ordered to minimize memory padding.
type TaskPayload struct {
	Data        map[string]any
	Annotations []Annotation
	Predictions []Prediction
	ID          int
}

// WidgetCallbacks are the lifecycle hooks a widget calls back into.
// The session controller implements them.
type WidgetCallbacks interface {
	OnLoaded(ctx context.Context, w Widget) error
	OnSubmitAnnotation(ctx context.Context, w Widget, a Annotation) error
	OnUpdateAnnotation(ctx context.Context, w Widget, a Annotation) error
	OnDeleteAnnotation(ctx context.Context, w Widget, a Annotation) error
	OnSkipTask(ctx context.Context, w Widget) error
	OnGroundTruth(ctx context.Context, w Widget, a Annotation, value bool) error
	OnEntityCreate(w Widget, region Region)
	OnEntityDelete(w Widget, region Region)
	OnSelectAnnotation(w Widget, selected, previous Annotation)
}

// WidgetSettings is passed to a widget when it is mounted.
// Fields are ordered to minimize memory padding.
type WidgetSettings struct {
	Callbacks   WidgetCallbacks
	Task        *TaskPayload
	User        User
	Config      string   // Labeling configuration
	Description string   // Free-text instructions
	Interfaces  []string // Enabled interface flags
}

// MountTarget is the surface a widget renders into.
type MountTarget interface {
	Attach(w Widget)
}

// WidgetConstructor mounts a widget into target. Mounting may invoke
// settings.Callbacks.OnLoaded before returning.
type WidgetConstructor func(ctx context.Context, target MountTarget, settings WidgetSettings) (Widget, error)

// WidgetRegistry resolves widget implementations by name.
type WidgetRegistry interface {
	// Resolve returns the constructor registered under name,
	// or ErrWidgetUnavailable.
	Resolve(name string) (WidgetConstructor, error)
}
