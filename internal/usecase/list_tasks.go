package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/label-crew/internal/domain"
)

// ListTasksInput contains the parameters for listing tasks.
type ListTasksInput struct {
	Status domain.TaskStatus // Filter by status (empty = all tasks)
}

// ListTasksOutput contains the result of listing tasks.
type ListTasksOutput struct {
	Tasks []domain.Task // Tasks matching the filter, ordered as the service returns them
}

// ListTasks is the use case for listing tasks of the task service.
type ListTasks struct {
	api domain.APICaller
}

// NewListTasks creates a new ListTasks use case.
func NewListTasks(api domain.APICaller) *ListTasks {
	return &ListTasks{api: api}
}

// Execute lists tasks matching the given input criteria.
func (uc *ListTasks) Execute(ctx context.Context, in ListTasksInput) (*ListTasksOutput, error) {
	resp, err := uc.api.Call(ctx, domain.ActionTasks, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	filter := domain.TaskFilter{Status: in.Status}
	tasks := make([]domain.Task, 0, len(resp.Tasks))
	for i := range resp.Tasks {
		if filter.Match(&resp.Tasks[i]) {
			tasks = append(tasks, resp.Tasks[i])
		}
	}
	return &ListTasksOutput{Tasks: tasks}, nil
}
