package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/label-crew/internal/domain"
)

// ShowTaskInput contains the parameters for showing a task.
type ShowTaskInput struct {
	TaskID int // Task ID (required)
}

// ShowTaskOutput contains the result of showing a task.
type ShowTaskOutput struct {
	Task *domain.Task // The task with its annotations and predictions
}

// ShowTask is the use case for displaying task details.
type ShowTask struct {
	api domain.APICaller
}

// NewShowTask creates a new ShowTask use case.
func NewShowTask(api domain.APICaller) *ShowTask {
	return &ShowTask{api: api}
}

// Execute retrieves and returns the task details.
func (uc *ShowTask) Execute(ctx context.Context, in ShowTaskInput) (*ShowTaskOutput, error) {
	resp, err := uc.api.Call(ctx, domain.ActionTask, domain.TaskParams(in.TaskID), nil)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if resp.Task == nil {
		return nil, domain.ErrTaskNotFound
	}
	return &ShowTaskOutput{Task: resp.Task}, nil
}
