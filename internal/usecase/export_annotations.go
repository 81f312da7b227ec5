package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/runoshun/label-crew/internal/domain"
)

// ExportAnnotationsInput contains the parameters for exporting annotations.
type ExportAnnotationsInput struct {
	Format         string // "json" (default) or "yaml"
	IncludeSkipped bool   // Include cancelled annotations
}

// ExportAnnotationsOutput contains the encoded export.
type ExportAnnotationsOutput struct {
	Data  []byte // Encoded records
	Tasks int    // Number of exported tasks
}

// ExportedTask is one record of an export.
type ExportedTask struct {
	Data        map[string]any       `json:"data" yaml:"data"`
	Annotations []ExportedAnnotation `json:"annotations" yaml:"annotations"`
	ID          int                  `json:"id" yaml:"id"`
}

// ExportedAnnotation is an annotation as written by an export.
// Fields are ordered to minimize memory padding.
type ExportedAnnotation struct {
	Created      time.Time     `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	ID           string        `json:"id" yaml:"id"`
	CreatedBy    string        `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	Result       domain.Result `json:"result" yaml:"result"`
	LeadTime     float64       `json:"lead_time,omitempty" yaml:"lead_time,omitempty"`
	WasCancelled bool          `json:"was_cancelled,omitempty" yaml:"was_cancelled,omitempty"`
	GroundTruth  bool          `json:"ground_truth,omitempty" yaml:"ground_truth,omitempty"`
}

// ExportAnnotations is the use case for exporting labeled tasks.
type ExportAnnotations struct {
	api domain.APICaller
}

// NewExportAnnotations creates a new ExportAnnotations use case.
func NewExportAnnotations(api domain.APICaller) *ExportAnnotations {
	return &ExportAnnotations{api: api}
}

// Execute fetches every task and encodes those with annotations.
func (uc *ExportAnnotations) Execute(ctx context.Context, in ExportAnnotationsInput) (*ExportAnnotationsOutput, error) {
	format := strings.ToLower(in.Format)
	if format == "" {
		format = FormatJSON
	}
	if format == "yml" {
		format = FormatYAML
	}
	if format != FormatJSON && format != FormatYAML {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, in.Format)
	}

	resp, err := uc.api.Call(ctx, domain.ActionTasks, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	records := make([]ExportedTask, 0, len(resp.Tasks))
	for _, t := range resp.Tasks {
		rec := ExportedTask{ID: t.ID, Data: t.Data}
		for _, a := range t.Annotations {
			if a.WasCancelled && !in.IncludeSkipped {
				continue
			}
			rec.Annotations = append(rec.Annotations, ExportedAnnotation{
				ID:           a.Key(),
				Result:       a.Result,
				LeadTime:     a.LeadTime,
				WasCancelled: a.WasCancelled,
				GroundTruth:  a.GroundTruth,
				CreatedBy:    a.CreatedBy,
				Created:      a.Created,
			})
		}
		if len(rec.Annotations) > 0 {
			records = append(records, rec)
		}
	}

	data, err := encodeExport(format, records)
	if err != nil {
		return nil, err
	}
	return &ExportAnnotationsOutput{Data: data, Tasks: len(records)}, nil
}

func encodeExport(format string, records []ExportedTask) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
	default:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
	}
	return buf.Bytes(), nil
}
