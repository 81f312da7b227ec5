package session

import (
	"strconv"
	"time"

	"github.com/runoshun/label-crew/internal/domain"
)

// TaskToWidgetFormat converts a task into the payload a widget loads.
// Slices are copied so the widget never aliases the controller's task.
func TaskToWidgetFormat(t domain.Task) domain.TaskPayload {
	return domain.TaskPayload{
		ID:          t.ID,
		Data:        t.Data,
		Annotations: append([]domain.Annotation(nil), t.Annotations...),
		Predictions: append([]domain.Prediction(nil), t.Predictions...),
	}
}

// ServerAnnotation is an annotation as reported to host event handlers.
type ServerAnnotation struct {
	Created      time.Time     `json:"created_at,omitempty"`
	ID           string        `json:"id"`
	CreatedBy    string        `json:"created_by,omitempty"`
	Result       domain.Result `json:"result"`
	LeadTime     float64       `json:"lead_time"`
	WasCancelled bool          `json:"was_cancelled,omitempty"`
	GroundTruth  bool          `json:"ground_truth,omitempty"`
}

// AnnotationToServer converts an annotation into its service representation.
func AnnotationToServer(a domain.Annotation) ServerAnnotation {
	return ServerAnnotation{
		Created:      a.Created,
		ID:           a.PK,
		CreatedBy:    a.CreatedBy,
		Result:       a.Result,
		LeadTime:     a.LeadTime,
		WasCancelled: a.WasCancelled,
		GroundTruth:  a.GroundTruth,
	}
}

// prepareData builds the request body for a submit, update or skip.
// The durable id is included only when requested and the service already
// knows the annotation.
func prepareData(a domain.Annotation, includeID bool, now time.Time) domain.AnnotationBody {
	body := domain.AnnotationBody{
		Result: a.Result,
	}
	if !a.LoadedAt.IsZero() {
		body.LeadTime = now.Sub(a.LoadedAt).Seconds()
	}

	if includeID && a.Persisted() {
		if id, err := strconv.Atoi(a.PK); err == nil {
			body.ID = &id
		}
	}
	return body
}
