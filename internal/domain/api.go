package domain

import "strconv"

// Action names an operation of the task service.
type Action string

// Task service actions.
const (
	ActionProject          Action = "project"
	ActionTasks            Action = "tasks"
	ActionTask             Action = "task"
	ActionNextTask         Action = "nextTask"
	ActionSubmitAnnotation Action = "submitCompletion"
	ActionUpdateAnnotation Action = "updateCompletion"
	ActionDeleteAnnotation Action = "deleteCompletion"
	ActionSkipTask         Action = "skipTask"
)

// Actions lists every action in a stable order.
var Actions = []Action{
	ActionProject,
	ActionTasks,
	ActionTask,
	ActionNextTask,
	ActionSubmitAnnotation,
	ActionUpdateAnnotation,
	ActionDeleteAnnotation,
	ActionSkipTask,
}

// Parameter names used to address resources.
const (
	ParamTaskID       = "taskID"
	ParamAnnotationID = "completionID"
	ParamWasCancelled = "was_cancelled"
)

// Params addresses the resource an action applies to.
type Params map[string]string

// TaskParams returns params addressing a task.
func TaskParams(taskID int) Params {
	return Params{ParamTaskID: strconv.Itoa(taskID)}
}

// AnnotationParams returns params addressing an annotation of a task.
func AnnotationParams(taskID int, annotationID string) Params {
	p := TaskParams(taskID)
	p[ParamAnnotationID] = annotationID
	return p
}

// TaskID parses the task id parameter.
func (p Params) TaskID() (int, error) {
	raw, ok := p[ParamTaskID]
	if !ok {
		return 0, ErrMissingParam
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ErrMissingParam
	}
	return id, nil
}

// APIResponse is the decoded result of an action.
// Only the fields relevant to the action are set.
// Fields are ordered to minimize memory padding.
type APIResponse struct {
	Task    *Task    `json:"task,omitempty"`
	Project *Project `json:"project,omitempty"`
	Tasks   []Task   `json:"tasks,omitempty"`
	ID      string   `json:"id,omitempty"` // Server-assigned annotation key
	OK      bool     `json:"ok"`
}

// HasID reports whether the response carries a server-assigned identity.
func (r *APIResponse) HasID() bool {
	return r != nil && r.ID != ""
}

// AnnotationBody is the payload sent on submit, update and skip.
type AnnotationBody struct {
	ID       *int    `json:"id,omitempty"`
	Result   Result  `json:"result"`
	LeadTime float64 `json:"lead_time"`
}

// GroundTruthBody marks or unmarks an annotation as ground truth.
type GroundTruthBody struct {
	GroundTruth bool `json:"ground_truth"`
}
