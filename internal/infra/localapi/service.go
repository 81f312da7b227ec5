// Package localapi serves task service actions from the project's own task
// store, so the console works without a remote service.
package localapi

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/runoshun/label-crew/internal/domain"
)

const logCategory = "localapi"

// Ensure Service implements domain.APICaller.
var _ domain.APICaller = (*Service)(nil)

// Service implements domain.APICaller on top of a domain.TaskRepository.
// Fields are ordered to minimize memory padding.
type Service struct {
	repo   domain.TaskRepository
	clock  domain.Clock
	logger domain.Logger
	user   string
	mu     sync.Mutex
}

// New creates a Service. user is recorded as the author of new annotations.
func New(repo domain.TaskRepository, clock domain.Clock, logger domain.Logger, user string) *Service {
	if clock == nil {
		clock = domain.RealClock{}
	}
	if logger == nil {
		logger = domain.NopLogger{}
	}
	return &Service{
		repo:   repo,
		clock:  clock,
		logger: logger,
		user:   user,
	}
}

// Call dispatches action to the task store.
func (s *Service) Call(ctx context.Context, action domain.Action, params domain.Params, body any) (*domain.APIResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch action {
	case domain.ActionProject:
		return s.project()
	case domain.ActionTasks:
		return s.tasks()
	case domain.ActionTask:
		return s.task(params)
	case domain.ActionNextTask:
		return s.nextTask()
	case domain.ActionSubmitAnnotation:
		return s.submit(params, body)
	case domain.ActionSkipTask:
		return s.skip(params, body)
	case domain.ActionUpdateAnnotation:
		return s.update(params, body)
	case domain.ActionDeleteAnnotation:
		return s.delete(params)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAction, action)
}

func (s *Service) project() (*domain.APIResponse, error) {
	p, err := s.repo.GetProject()
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &domain.APIResponse{Project: p, OK: true}, nil
}

func (s *Service) tasks() (*domain.APIResponse, error) {
	list, err := s.repo.List(domain.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks := make([]domain.Task, 0, len(list))
	for _, t := range list {
		tasks = append(tasks, *t)
	}
	return &domain.APIResponse{Tasks: tasks, OK: true}, nil
}

func (s *Service) task(params domain.Params) (*domain.APIResponse, error) {
	t, err := s.load(params)
	if err != nil {
		return nil, err
	}
	return &domain.APIResponse{Task: t, OK: true}, nil
}

// nextTask returns the lowest-id task nobody has annotated yet.
func (s *Service) nextTask() (*domain.APIResponse, error) {
	list, err := s.repo.List(domain.TaskFilter{Status: domain.TaskStatusNew})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if len(list) == 0 {
		return &domain.APIResponse{OK: true}, nil
	}
	return &domain.APIResponse{Task: list[0], OK: true}, nil
}

func (s *Service) submit(params domain.Params, body any) (*domain.APIResponse, error) {
	b, err := annotationBody(body)
	if err != nil {
		return nil, err
	}
	t, err := s.load(params)
	if err != nil {
		return nil, err
	}

	pk, err := s.newAnnotation(t, b, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info(t.ID, logCategory, "annotation "+pk+" submitted")
	return &domain.APIResponse{ID: pk, OK: true}, nil
}

// skip records a cancelled annotation. With an annotation id the existing
// annotation is marked cancelled instead.
func (s *Service) skip(params domain.Params, body any) (*domain.APIResponse, error) {
	b, err := annotationBody(body)
	if err != nil {
		return nil, err
	}
	t, err := s.load(params)
	if err != nil {
		return nil, err
	}

	if pk := params[domain.ParamAnnotationID]; pk != "" {
		idx := annotationIndex(t, pk)
		if idx < 0 {
			return nil, fmt.Errorf("skip task %d: %w: %s", t.ID, domain.ErrAnnotationNotFound, pk)
		}
		t.Annotations[idx].Result = b.Result
		t.Annotations[idx].LeadTime += b.LeadTime
		t.Annotations[idx].WasCancelled = true
		if err := s.repo.Save(t); err != nil {
			return nil, fmt.Errorf("save task: %w", err)
		}
		s.logger.Info(t.ID, logCategory, "annotation "+pk+" skipped")
		return &domain.APIResponse{ID: pk, OK: true}, nil
	}

	pk, err := s.newAnnotation(t, b, true)
	if err != nil {
		return nil, err
	}
	s.logger.Info(t.ID, logCategory, "task skipped as annotation "+pk)
	return &domain.APIResponse{ID: pk, OK: true}, nil
}

func (s *Service) update(params domain.Params, body any) (*domain.APIResponse, error) {
	t, err := s.load(params)
	if err != nil {
		return nil, err
	}
	pk := params[domain.ParamAnnotationID]
	if pk == "" {
		return nil, fmt.Errorf("update annotation: %w: %s", domain.ErrMissingParam, domain.ParamAnnotationID)
	}
	idx := annotationIndex(t, pk)
	if idx < 0 {
		return nil, fmt.Errorf("update annotation: %w: %s", domain.ErrAnnotationNotFound, pk)
	}

	a := &t.Annotations[idx]
	switch b := body.(type) {
	case domain.GroundTruthBody:
		a.GroundTruth = b.GroundTruth
	case *domain.GroundTruthBody:
		a.GroundTruth = b.GroundTruth
	default:
		ab, err := annotationBody(body)
		if err != nil {
			return nil, err
		}
		a.Result = ab.Result
		a.LeadTime = ab.LeadTime
		a.WasCancelled = false
	}

	if err := s.repo.Save(t); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	s.logger.Info(t.ID, logCategory, "annotation "+pk+" updated")
	return &domain.APIResponse{ID: pk, OK: true}, nil
}

func (s *Service) delete(params domain.Params) (*domain.APIResponse, error) {
	t, err := s.load(params)
	if err != nil {
		return nil, err
	}
	pk := params[domain.ParamAnnotationID]
	idx := annotationIndex(t, pk)
	if pk == "" || idx < 0 {
		return nil, fmt.Errorf("delete annotation: %w: %q", domain.ErrAnnotationNotFound, pk)
	}

	t.Annotations = append(t.Annotations[:idx:idx], t.Annotations[idx+1:]...)
	if err := s.repo.Save(t); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	s.logger.Info(t.ID, logCategory, "annotation "+pk+" deleted")
	return &domain.APIResponse{OK: true}, nil
}

// load fetches the task addressed by params.
func (s *Service) load(params domain.Params) (*domain.Task, error) {
	id, err := params.TaskID()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, domain.ParamTaskID)
	}
	t, err := s.repo.Get(id)
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	if t == nil {
		return nil, fmt.Errorf("task %d: %w", id, domain.ErrTaskNotFound)
	}
	return t, nil
}

func (s *Service) newAnnotation(t *domain.Task, b domain.AnnotationBody, cancelled bool) (string, error) {
	n, err := s.repo.NextAnnotationID()
	if err != nil {
		return "", fmt.Errorf("allocate annotation id: %w", err)
	}
	pk := strconv.Itoa(n)
	t.Annotations = append(t.Annotations, domain.Annotation{
		PK:           pk,
		Created:      s.clock.Now(),
		CreatedBy:    s.user,
		Result:       b.Result,
		LeadTime:     b.LeadTime,
		WasCancelled: cancelled,
	})
	if err := s.repo.Save(t); err != nil {
		return "", fmt.Errorf("save task: %w", err)
	}
	return pk, nil
}

func annotationIndex(t *domain.Task, pk string) int {
	for i, a := range t.Annotations {
		if a.PK == pk {
			return i
		}
	}
	return -1
}

func annotationBody(body any) (domain.AnnotationBody, error) {
	switch b := body.(type) {
	case domain.AnnotationBody:
		return b, nil
	case *domain.AnnotationBody:
		if b != nil {
			return *b, nil
		}
	}
	return domain.AnnotationBody{}, fmt.Errorf("%w: %T", domain.ErrInvalidBody, body)
}
