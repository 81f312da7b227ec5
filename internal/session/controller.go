// Package session implements the labeling session controller.
// It mediates between the task service, the annotation widget, and the
// label-stream history.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/runoshun/label-crew/internal/domain"
)

const logCategory = "session"

// Options configures a labeling session.
// Fields are ordered to minimize memory padding.
type Options struct {
	Task        *domain.Task       // Task to open in explorer mode
	Annotation  *domain.Annotation // Annotation to select in Task
	Logger      domain.Logger
	Clock       domain.Clock
	User        domain.User
	Widget      string        // Registered widget name
	Interfaces  []string      // Enabled interface flags
	Timeout     time.Duration // Bound on each task service call; 0 disables
	LabelStream bool
}

// Controller owns the task and annotation being labeled.
// It implements domain.WidgetCallbacks.
type Controller struct {
	host        domain.Host
	logger      domain.Logger
	clock       domain.Clock
	history     *History
	initial     *domain.Annotation
	widget      domain.Widget
	task        *domain.Task
	timeout     time.Duration
	mu          sync.Mutex
	labelStream bool
	exhausted   bool
}

var _ domain.WidgetCallbacks = (*Controller)(nil)

// New creates a controller and mounts the widget named in opts into target.
// A widget that cannot be resolved or mounted is logged and the session
// never reaches the loaded state; New itself does not fail.
func New(ctx context.Context, host domain.Host, registry domain.WidgetRegistry, target domain.MountTarget, opts Options) *Controller {
	c := &Controller{
		host:        host,
		logger:      opts.Logger,
		clock:       opts.Clock,
		initial:     opts.Annotation,
		timeout:     opts.Timeout,
		labelStream: opts.LabelStream || host.Mode() == domain.ModeLabelStream,
	}
	if c.logger == nil {
		c.logger = domain.NopLogger{}
	}
	if c.clock == nil {
		c.clock = domain.RealClock{}
	}
	if opts.Task != nil {
		task := *opts.Task
		c.task = &task
	}
	if c.labelStream {
		c.history = NewHistory(c)
	}

	construct, err := registry.Resolve(opts.Widget)
	if err != nil {
		c.logger.Error(0, logCategory, fmt.Sprintf("resolve widget %q: %v", opts.Widget, err))
		return c
	}

	project := host.Project()
	settings := domain.WidgetSettings{
		Callbacks:   c,
		User:        opts.User,
		Config:      project.Config(),
		Description: project.Instructions(),
		Interfaces:  opts.Interfaces,
	}
	if len(settings.Interfaces) == 0 {
		settings.Interfaces = domain.DefaultInterfaces
	}
	if c.task != nil {
		payload := TaskToWidgetFormat(*c.task)
		settings.Task = &payload
	}

	if _, err := construct(ctx, target, settings); err != nil {
		c.logger.Error(0, logCategory, fmt.Sprintf("mount widget %q: %v", opts.Widget, err))
	}
	return c
}

// History returns the label-stream history, or nil in explorer mode.
func (c *Controller) History() *History {
	return c.history
}

// LabelStream reports whether the session pulls tasks sequentially.
func (c *Controller) LabelStream() bool {
	return c.labelStream
}

// Widget returns the loaded widget, or nil before it has loaded.
func (c *Controller) Widget() domain.Widget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.widget
}

// Task returns the task being labeled.
func (c *Controller) Task() (domain.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.task == nil {
		return domain.Task{}, false
	}
	return *c.task, true
}

// Exhausted reports whether the label stream has run out of tasks.
func (c *Controller) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exhausted
}

// CurrentAnnotation returns the annotation selected in the widget,
// or nil when the widget is not loaded or nothing is selected.
func (c *Controller) CurrentAnnotation() *domain.Annotation {
	w := c.Widget()
	if w == nil {
		c.logger.Debug(0, logCategory, "current annotation: widget not loaded")
		return nil
	}
	a, ok := w.Store().Selected()
	if !ok {
		c.logger.Debug(0, logCategory, "current annotation: nothing selected")
		return nil
	}
	return &a
}

// LoadTask fetches a task and shows it with the given annotation selected.
func (c *Controller) LoadTask(ctx context.Context, taskID int, annotationID string) error {
	return c.loadTask(ctx, taskID, true, annotationID)
}

// LoadNextTask asks the task service for the next task of the stream.
// When the stream is exhausted the widget is flagged once and nil is returned.
func (c *Controller) LoadNextTask(ctx context.Context) error {
	return c.loadTask(ctx, 0, false, "")
}

func (c *Controller) loadTask(ctx context.Context, taskID int, explicit bool, annotationID string) error {
	w := c.Widget()
	if w == nil {
		c.logger.Error(taskID, logCategory, "load task: widget not loaded")
		return domain.ErrWidgetNotReady
	}

	var resp *domain.APIResponse
	err := c.withinLoadingState(ctx, w, func(ctx context.Context) error {
		var err error
		if explicit {
			resp, err = c.host.APICall(ctx, domain.ActionTask, domain.TaskParams(taskID), nil)
		} else {
			resp, err = c.host.APICall(ctx, domain.ActionNextTask, domain.Params{}, nil)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}

	var fetched *domain.Task
	if resp != nil {
		fetched = resp.Task
	}
	if fetched == nil {
		if explicit {
			return fmt.Errorf("load task %d: %w", taskID, domain.ErrTaskNotFound)
		}
		c.mu.Lock()
		c.task = nil
		first := !c.exhausted
		c.exhausted = true
		c.mu.Unlock()
		if first {
			c.logger.Info(0, logCategory, "label stream exhausted")
			w.SetFlags(domain.NoTaskFlag(true))
		}
		return nil
	}

	next := *fetched
	c.mu.Lock()
	sameTask := c.task != nil && c.task.ID == next.ID
	wasExhausted := c.exhausted
	c.exhausted = false
	c.mu.Unlock()

	// Re-reading the same task must not drop annotations the widget still holds.
	if sameTask {
		next = domain.MergeAnnotations(next, w.Store().Annotations())
	}

	c.mu.Lock()
	c.task = &next
	c.mu.Unlock()

	if wasExhausted {
		w.SetFlags(domain.NoTaskFlag(false))
	}
	c.setTask(w, next)
	return c.setAnnotation(w, next.ID, annotationID)
}

// setTask replaces the widget document with task.
func (c *Controller) setTask(w domain.Widget, task domain.Task) {
	w.ResetState()
	w.AssignTask(task)
	w.InitializeStore(TaskToWidgetFormat(task))
}

// setAnnotation selects the annotation to show for the loaded task.
func (c *Controller) setAnnotation(w domain.Widget, taskID int, annotationID string) error {
	store := w.Store()
	annotations := store.Annotations()
	predictions := store.Predictions()

	var selected domain.Annotation
	switch {
	case c.labelStream && len(predictions) > 0:
		selected = store.AddAnnotationFromPrediction(predictions[0])
	case len(annotations) > 0 && annotationID == domain.AutoAnnotation:
		selected = annotations[0]
	case len(annotations) > 0 && annotationID != "":
		var found bool
		selected, found = domain.FindAnnotation(annotations, annotationID)
		if !found {
			c.logger.Warn(taskID, logCategory, fmt.Sprintf("annotation %s not found", annotationID))
			return fmt.Errorf("select annotation %s: %w", annotationID, domain.ErrAnnotationNotFound)
		}
	default:
		selected = store.AddAnnotation(domain.AnnotationOptions{UserGenerated: true})
	}

	if err := store.SelectAnnotation(selected.ID); err != nil {
		return fmt.Errorf("select annotation: %w", err)
	}
	c.host.Invoke(domain.EventAnnotationSet, selected)
	return nil
}

// withinLoadingState raises the widget loading flag for the duration of fn.
// The flag is cleared whether fn succeeds or fails.
func (c *Controller) withinLoadingState(ctx context.Context, w domain.Widget, fn func(ctx context.Context) error) error {
	w.SetFlags(domain.LoadingFlag(true))
	defer w.SetFlags(domain.LoadingFlag(false))

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return fn(ctx)
}

// submitFunc sends body for the given task to the task service.
type submitFunc func(ctx context.Context, taskID int, body domain.AnnotationBody) (*domain.APIResponse, error)

// submitCurrentAnnotation is the protocol shared by submit, update and skip.
func (c *Controller) submitCurrentAnnotation(ctx context.Context, w domain.Widget, event string, submit submitFunc, includeID bool) error {
	task, ok := c.Task()
	if !ok {
		c.logger.Error(0, logCategory, event+": no current task")
		return domain.ErrNoCurrentTask
	}
	current := c.CurrentAnnotation()
	if current == nil {
		c.logger.Error(task.ID, logCategory, event+": no annotation selected")
		return domain.ErrNoAnnotationSelected
	}
	taskID, annotation := task.ID, *current
	body := prepareData(annotation, includeID, c.clock.Now())

	var resp *domain.APIResponse
	err := c.withinLoadingState(ctx, w, func(ctx context.Context) error {
		var err error
		resp, err = submit(ctx, taskID, body)
		return err
	})
	if err != nil {
		c.logger.Error(taskID, logCategory, fmt.Sprintf("%s failed: %v", event, err))
		return fmt.Errorf("%s: %w", event, err)
	}

	if resp.HasID() {
		updated, err := w.Store().UpdatePersonalKey(annotation.ID, resp.ID)
		if err != nil {
			return fmt.Errorf("%s: %w", event, err)
		}
		annotation = updated
		annotation.LeadTime = body.LeadTime

		c.host.Invoke(event, w, AnnotationToServer(annotation), resp)
		if c.history != nil {
			c.history.Add(taskID, annotation.PK)
		}
		c.logger.Info(taskID, logCategory, fmt.Sprintf("%s: annotation %s", event, annotation.PK))
	}

	if c.labelStream {
		return c.LoadNextTask(ctx)
	}
	return c.LoadTask(ctx, taskID, annotation.Key())
}

// OnLoaded records the widget and opens the first task.
func (c *Controller) OnLoaded(ctx context.Context, w domain.Widget) error {
	c.host.Invoke(domain.EventWidgetLoad, w)

	c.mu.Lock()
	c.widget = w
	var task *domain.Task
	if c.task != nil {
		t := *c.task
		task = &t
	}
	c.mu.Unlock()

	if c.labelStream {
		return c.LoadNextTask(ctx)
	}
	if task == nil {
		return nil
	}

	annotationID := domain.AutoAnnotation
	if last, ok := task.LastAnnotation(); ok && last.PK != "" {
		annotationID = last.PK
	}
	if c.initial != nil && c.initial.PK != "" {
		annotationID = c.initial.PK
	}
	return c.LoadTask(ctx, task.ID, annotationID)
}

// OnSubmitAnnotation submits the selected annotation as a new result.
func (c *Controller) OnSubmitAnnotation(ctx context.Context, w domain.Widget, _ domain.Annotation) error {
	return c.submitCurrentAnnotation(ctx, w, domain.EventSubmitAnnotation,
		func(ctx context.Context, taskID int, body domain.AnnotationBody) (*domain.APIResponse, error) {
			return c.host.APICall(ctx, domain.ActionSubmitAnnotation, domain.TaskParams(taskID), body)
		}, false)
}

// OnUpdateAnnotation saves changes to an already submitted annotation.
func (c *Controller) OnUpdateAnnotation(ctx context.Context, w domain.Widget, a domain.Annotation) error {
	if !a.Persisted() || a.PK == "" {
		return fmt.Errorf("update annotation: %w", domain.ErrAnnotationNotPersisted)
	}
	return c.submitCurrentAnnotation(ctx, w, domain.EventUpdateAnnotation,
		func(ctx context.Context, taskID int, body domain.AnnotationBody) (*domain.APIResponse, error) {
			return c.host.APICall(ctx, domain.ActionUpdateAnnotation, domain.AnnotationParams(taskID, a.PK), body)
		}, false)
}

// OnSkipTask records the task as skipped.
// The durable id travels as a parameter, never in the body.
func (c *Controller) OnSkipTask(ctx context.Context, w domain.Widget) error {
	return c.submitCurrentAnnotation(ctx, w, domain.EventSkipTask,
		func(ctx context.Context, taskID int, body domain.AnnotationBody) (*domain.APIResponse, error) {
			params := domain.TaskParams(taskID)
			params[domain.ParamWasCancelled] = "1"
			if body.ID != nil {
				params[domain.ParamAnnotationID] = strconv.Itoa(*body.ID)
				body.ID = nil
			}
			return c.host.APICall(ctx, domain.ActionSkipTask, params, body)
		}, true)
}

// OnDeleteAnnotation removes an annotation and reloads the task.
// Annotations the service has never seen are removed locally only.
func (c *Controller) OnDeleteAnnotation(ctx context.Context, w domain.Widget, a domain.Annotation) error {
	task, ok := c.Task()
	if !ok {
		c.logger.Error(0, logCategory, "delete annotation: no current task")
		return domain.ErrNoCurrentTask
	}

	if a.Persisted() {
		var resp *domain.APIResponse
		err := c.withinLoadingState(ctx, w, func(ctx context.Context) error {
			var err error
			resp, err = c.host.APICall(ctx, domain.ActionDeleteAnnotation, domain.AnnotationParams(task.ID, a.PK), nil)
			return err
		})
		if err != nil {
			c.logger.Error(task.ID, logCategory, fmt.Sprintf("delete annotation %s failed: %v", a.Key(), err))
			return fmt.Errorf("delete annotation: %w", err)
		}

		remaining := task.WithoutAnnotation(a)
		c.mu.Lock()
		c.task = &remaining
		c.mu.Unlock()
		w.Store().DeleteAnnotation(a.ID)
		c.host.Invoke(domain.EventDeleteAnnotation, w, a)
		c.logger.Info(task.ID, logCategory, "deleted annotation "+a.Key())

		if resp == nil || !resp.OK {
			return nil
		}
	} else {
		w.Store().DeleteAnnotation(a.ID)
	}

	var next string
	if annotations := w.Store().Annotations(); len(annotations) > 0 {
		next = annotations[len(annotations)-1].Key()
	}
	return c.LoadTask(ctx, task.ID, next)
}

// OnGroundTruth marks or unmarks a submitted annotation as ground truth.
func (c *Controller) OnGroundTruth(ctx context.Context, w domain.Widget, a domain.Annotation, value bool) error {
	task, ok := c.Task()
	if !ok {
		return domain.ErrNoCurrentTask
	}
	if !a.Persisted() || a.PK == "" {
		return fmt.Errorf("ground truth: %w", domain.ErrAnnotationNotPersisted)
	}

	err := c.withinLoadingState(ctx, w, func(ctx context.Context) error {
		_, err := c.host.APICall(ctx, domain.ActionUpdateAnnotation,
			domain.AnnotationParams(task.ID, a.PK), domain.GroundTruthBody{GroundTruth: value})
		return err
	})
	if err != nil {
		c.logger.Error(task.ID, logCategory, fmt.Sprintf("ground truth %s failed: %v", a.PK, err))
		return fmt.Errorf("ground truth: %w", err)
	}

	c.host.Invoke(domain.EventGroundTruth, w, a, value)
	return c.LoadTask(ctx, task.ID, a.Key())
}

// OnEntityCreate forwards a region creation to the host.
func (c *Controller) OnEntityCreate(w domain.Widget, region domain.Region) {
	c.host.Invoke(domain.EventEntityCreate, w, region)
}

// OnEntityDelete forwards a region deletion to the host.
func (c *Controller) OnEntityDelete(w domain.Widget, region domain.Region) {
	c.host.Invoke(domain.EventEntityDelete, w, region)
}

// OnSelectAnnotation forwards a selection change to the host.
func (c *Controller) OnSelectAnnotation(w domain.Widget, selected, previous domain.Annotation) {
	c.host.Invoke(domain.EventSelectAnnotation, w, selected, previous)
}

// IsTimeout reports whether err came from the per-call timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
