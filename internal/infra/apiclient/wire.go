package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/runoshun/label-crew/internal/domain"
)

// flexID accepts identifiers sent either as JSON numbers or strings.
type flexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

type wireAnnotation struct {
	Created      time.Time     `json:"created_at"`
	ID           flexID        `json:"id"`
	CreatedBy    flexID        `json:"created_by"`
	Result       domain.Result `json:"result"`
	LeadTime     float64       `json:"lead_time"`
	WasCancelled bool          `json:"was_cancelled"`
	GroundTruth  bool          `json:"ground_truth"`
}

type wirePrediction struct {
	ID           flexID        `json:"id"`
	ModelVersion string        `json:"model_version"`
	Result       domain.Result `json:"result"`
	Score        float64       `json:"score"`
}

type wireTask struct {
	Created     time.Time        `json:"created_at"`
	Data        map[string]any   `json:"data"`
	Annotations []wireAnnotation `json:"annotations"`
	Predictions []wirePrediction `json:"predictions"`
	ID          int              `json:"id"`
}

func (w wireTask) toDomain() domain.Task {
	t := domain.Task{
		ID:      w.ID,
		Created: w.Created,
		Data:    w.Data,
	}
	for _, a := range w.Annotations {
		t.Annotations = append(t.Annotations, domain.Annotation{
			PK:           string(a.ID),
			Created:      a.Created,
			CreatedBy:    string(a.CreatedBy),
			Result:       a.Result,
			LeadTime:     a.LeadTime,
			WasCancelled: a.WasCancelled,
			GroundTruth:  a.GroundTruth,
		})
	}
	for _, p := range w.Predictions {
		t.Predictions = append(t.Predictions, domain.Prediction{
			ID:           string(p.ID),
			ModelVersion: p.ModelVersion,
			Result:       p.Result,
			Score:        p.Score,
		})
	}
	return t
}

// decodeResponse turns a successful response body into an APIResponse.
// An empty body decodes to an empty OK response.
func decodeResponse(action domain.Action, body []byte) (*domain.APIResponse, error) {
	resp := &domain.APIResponse{OK: true}
	if len(bytes.TrimSpace(body)) == 0 {
		return resp, nil
	}

	switch action {
	case domain.ActionProject:
		var p domain.Project
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("decode project: %w", err)
		}
		resp.Project = &p
	case domain.ActionTasks:
		tasks, err := decodeTaskList(body)
		if err != nil {
			return nil, err
		}
		resp.Tasks = tasks
	case domain.ActionTask, domain.ActionNextTask:
		var w wireTask
		if err := json.Unmarshal(body, &w); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		t := w.toDomain()
		resp.Task = &t
	default:
		var out struct {
			ID flexID `json:"id"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", action, err)
		}
		resp.ID = string(out.ID)
	}
	return resp, nil
}

// decodeTaskList accepts a bare array or an object with a "tasks" array.
func decodeTaskList(body []byte) ([]domain.Task, error) {
	var list []wireTask
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var page struct {
			Tasks []wireTask `json:"tasks"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, fmt.Errorf("decode tasks: %w", err)
		}
		list = page.Tasks
	} else if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}

	tasks := make([]domain.Task, 0, len(list))
	for _, w := range list {
		tasks = append(tasks, w.toDomain())
	}
	return tasks, nil
}
