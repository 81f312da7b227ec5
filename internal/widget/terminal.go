package widget

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/runoshun/label-crew/internal/domain"
)

// TerminalName is the registry name of the terminal widget.
const TerminalName = "terminal"

// Result region fields written by the terminal widget.
const (
	regionFromName = "from_name"
	regionToName   = "to_name"
	regionType     = "type"
	regionValue    = "value"
	choicesType    = "choices"
)

// Terminal is a choice-based annotation widget rendered by the TUI.
// User actions are methods; each one calls back into the session.
type Terminal struct {
	callbacks  domain.WidgetCallbacks
	store      *Store
	task       *domain.Task
	user       domain.User
	config     LabelConfig
	desc       string
	interfaces []string
	mu         sync.RWMutex
	loading    bool
	noTask     bool
}

var _ domain.Widget = (*Terminal)(nil)

// NewTerminal returns a constructor that mounts a terminal widget.
// The constructor calls OnLoaded before returning.
func NewTerminal(clock domain.Clock) domain.WidgetConstructor {
	return func(ctx context.Context, target domain.MountTarget, settings domain.WidgetSettings) (domain.Widget, error) {
		cfg, err := ParseLabelConfig(settings.Config)
		if err != nil {
			return nil, err
		}

		w := &Terminal{
			callbacks:  settings.Callbacks,
			store:      NewStore(clock),
			user:       settings.User,
			config:     cfg,
			desc:       settings.Description,
			interfaces: settings.Interfaces,
		}
		if settings.Task != nil {
			w.store.Load(*settings.Task)
		}
		target.Attach(w)

		if w.callbacks != nil {
			if err := w.callbacks.OnLoaded(ctx, w); err != nil {
				return w, err
			}
		}
		return w, nil
	}
}

// Register adds the terminal widget to r.
func Register(r *Registry, clock domain.Clock) {
	r.Register(TerminalName, NewTerminal(clock))
}

// ResetState clears the document.
func (w *Terminal) ResetState() {
	w.store.Reset()
	w.mu.Lock()
	w.task = nil
	w.mu.Unlock()
}

// AssignTask sets the task being shown.
func (w *Terminal) AssignTask(task domain.Task) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.task = &task
}

// InitializeStore loads the task's annotations and predictions.
func (w *Terminal) InitializeStore(payload domain.TaskPayload) {
	w.store.Load(payload)
}

// SetFlags updates the loading and end-of-stream flags.
func (w *Terminal) SetFlags(flags domain.WidgetFlags) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if flags.IsLoading != nil {
		w.loading = *flags.IsLoading
	}
	if flags.NoTask != nil {
		w.noTask = *flags.NoTask
	}
}

// Store returns the annotation store.
func (w *Terminal) Store() domain.AnnotationStore {
	return w.store
}

// Config returns the parsed label config.
func (w *Terminal) Config() LabelConfig {
	return w.config
}

// Enabled reports whether an interface flag is on.
func (w *Terminal) Enabled(flag string) bool {
	return slices.Contains(w.interfaces, flag)
}

// View is a point-in-time copy of the widget state for rendering.
// Fields are ordered to minimize memory padding.
type View struct {
	Task        *domain.Task
	Selected    *domain.Annotation
	Config      LabelConfig
	Annotations []domain.Annotation
	Predictions []domain.Prediction
	User        domain.User
	Description string
	Loading     bool
	NoTask      bool
}

// Snapshot returns the current widget state.
func (w *Terminal) Snapshot() View {
	w.mu.RLock()
	v := View{
		Config:      w.config,
		User:        w.user,
		Description: w.desc,
		Loading:     w.loading,
		NoTask:      w.noTask,
	}
	if w.task != nil {
		t := *w.task
		v.Task = &t
	}
	w.mu.RUnlock()

	v.Annotations = w.store.Annotations()
	v.Predictions = w.store.Predictions()
	if a, ok := w.store.Selected(); ok {
		v.Selected = &a
	}
	return v
}

// ToggleChoice switches value of a choice group on the selected annotation.
// Single-choice groups replace their previous answer.
func (w *Terminal) ToggleChoice(group, value string) error {
	g, ok := w.config.Group(group)
	if !ok || !g.Has(value) {
		return fmt.Errorf("%w: %s/%s", domain.ErrUnknownChoice, group, value)
	}
	a, ok := w.store.Selected()
	if !ok {
		return domain.ErrNoAnnotationSelected
	}

	var (
		result  domain.Result
		current []string
		removed domain.Region
	)
	for _, r := range a.Result {
		if r[regionFromName] == g.Name && r[regionType] == choicesType {
			current = regionChoices(r)
			removed = r
			continue
		}
		result = append(result, r)
	}

	var next []string
	switch {
	case slices.Contains(current, value):
		next = slices.DeleteFunc(slices.Clone(current), func(v string) bool { return v == value })
	case g.Multiple:
		next = append(slices.Clone(current), value)
	default:
		next = []string{value}
	}

	var created domain.Region
	if len(next) > 0 {
		created = domain.Region{
			regionFromName: g.Name,
			regionToName:   g.ToName,
			regionType:     choicesType,
			regionValue:    map[string]any{choicesType: toAny(next)},
		}
		result = append(result, created)
	}
	if err := w.store.SetResult(a.ID, result); err != nil {
		return err
	}

	if w.callbacks != nil {
		if removed != nil {
			w.callbacks.OnEntityDelete(w, removed)
		}
		if created != nil {
			w.callbacks.OnEntityCreate(w, created)
		}
	}
	return nil
}

// Choices returns the values chosen for group on the selected annotation.
func (w *Terminal) Choices(group string) []string {
	a, ok := w.store.Selected()
	if !ok {
		return nil
	}
	return ResultChoices(a.Result, group)
}

// ResultChoices returns the values chosen for group in result.
func ResultChoices(result domain.Result, group string) []string {
	for _, r := range result {
		if r[regionFromName] == group && r[regionType] == choicesType {
			return regionChoices(r)
		}
	}
	return nil
}

// Select changes the selected annotation.
func (w *Terminal) Select(id string) error {
	previous, _ := w.store.Selected()
	if err := w.store.SelectAnnotation(id); err != nil {
		return err
	}
	selected, _ := w.store.Selected()
	if w.callbacks != nil {
		w.callbacks.OnSelectAnnotation(w, selected, previous)
	}
	return nil
}

// NewAnnotation adds an empty annotation and selects it.
func (w *Terminal) NewAnnotation() (domain.Annotation, error) {
	if !w.Enabled(domain.InterfaceCompletionsAddNew) {
		return domain.Annotation{}, fmt.Errorf("%w: %s", domain.ErrInterfaceDisabled, domain.InterfaceCompletionsAddNew)
	}
	a := w.store.AddAnnotation(domain.AnnotationOptions{UserGenerated: true})
	if err := w.Select(a.ID); err != nil {
		return domain.Annotation{}, err
	}
	return a, nil
}

// Submit sends the selected annotation. Annotations the service already
// knows are updated instead.
func (w *Terminal) Submit(ctx context.Context) error {
	a, ok := w.store.Selected()
	if !ok {
		return domain.ErrNoAnnotationSelected
	}
	if a.Persisted() && a.PK != "" {
		return w.callbacks.OnUpdateAnnotation(ctx, w, a)
	}
	return w.callbacks.OnSubmitAnnotation(ctx, w, a)
}

// Skip marks the task as skipped.
func (w *Terminal) Skip(ctx context.Context) error {
	if !w.Enabled(domain.InterfaceSkip) {
		return fmt.Errorf("%w: %s", domain.ErrInterfaceDisabled, domain.InterfaceSkip)
	}
	return w.callbacks.OnSkipTask(ctx, w)
}

// Delete removes the selected annotation.
func (w *Terminal) Delete(ctx context.Context) error {
	if !w.Enabled(domain.InterfaceCompletionsDelete) {
		return fmt.Errorf("%w: %s", domain.ErrInterfaceDisabled, domain.InterfaceCompletionsDelete)
	}
	a, ok := w.store.Selected()
	if !ok {
		return domain.ErrNoAnnotationSelected
	}
	return w.callbacks.OnDeleteAnnotation(ctx, w, a)
}

// SetGroundTruth marks the selected annotation as ground truth.
func (w *Terminal) SetGroundTruth(ctx context.Context, value bool) error {
	a, ok := w.store.Selected()
	if !ok {
		return domain.ErrNoAnnotationSelected
	}
	return w.callbacks.OnGroundTruth(ctx, w, a, value)
}

func regionChoices(r domain.Region) []string {
	value, ok := r[regionValue].(map[string]any)
	if !ok {
		return nil
	}
	var out []string
	switch v := value[choicesType].(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
