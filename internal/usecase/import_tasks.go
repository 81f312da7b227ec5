package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/runoshun/label-crew/internal/domain"
)

// Import formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ImportTasksInput contains the parameters for importing tasks.
type ImportTasksInput struct {
	Format  string // "json", "yaml", or empty to detect from content
	Content []byte // File content: a list of tasks
	DryRun  bool   // If true, parse and validate without saving tasks
}

// ImportedTask represents a task that was created by an import.
type ImportedTask struct {
	ID          int
	Predictions int
}

// ImportTasksOutput contains the result of importing tasks.
type ImportTasksOutput struct {
	Tasks []ImportedTask // Created tasks (or tasks that would be created in dry-run mode)
}

// importItem is one element of an import file. An element without a
// "data" key is itself the task data.
type importItem struct {
	Data        map[string]any      `json:"data" yaml:"data"`
	Predictions []domain.Prediction `json:"predictions" yaml:"predictions"`
}

// ImportTasks is the use case for importing tasks from a file.
type ImportTasks struct {
	tasks  domain.TaskRepository
	clock  domain.Clock
	logger domain.Logger
}

// NewImportTasks creates a new ImportTasks use case.
func NewImportTasks(tasks domain.TaskRepository, clock domain.Clock, logger domain.Logger) *ImportTasks {
	return &ImportTasks{
		tasks:  tasks,
		clock:  clock,
		logger: logger,
	}
}

// Execute parses the content and saves one task per element.
func (uc *ImportTasks) Execute(_ context.Context, in ImportTasksInput) (*ImportTasksOutput, error) {
	items, err := parseImport(in.Format, in.Content)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrNoTasksInFile
	}

	out := &ImportTasksOutput{Tasks: make([]ImportedTask, 0, len(items))}
	if in.DryRun {
		for i, item := range items {
			out.Tasks = append(out.Tasks, ImportedTask{ID: i + 1, Predictions: len(item.Predictions)})
		}
		return out, nil
	}

	now := uc.clock.Now()
	for i, item := range items {
		id, err := uc.tasks.NextID()
		if err != nil {
			return nil, fmt.Errorf("task %d: generate task ID: %w", i+1, err)
		}
		task := &domain.Task{
			ID:          id,
			Data:        item.Data,
			Predictions: item.Predictions,
			Created:     now,
		}
		if err := uc.tasks.Save(task); err != nil {
			return nil, fmt.Errorf("task %d: save task: %w", i+1, err)
		}
		if uc.logger != nil {
			uc.logger.Info(id, "task", fmt.Sprintf("imported with %d predictions", len(item.Predictions)))
		}
		out.Tasks = append(out.Tasks, ImportedTask{ID: id, Predictions: len(item.Predictions)})
	}
	return out, nil
}

// parseImport decodes content as a list of tasks.
func parseImport(format string, content []byte) ([]importItem, error) {
	if format == "" {
		format = detectFormat(content)
	}

	var items []importItem
	var raw []map[string]any
	switch strings.ToLower(format) {
	case FormatJSON:
		if err := json.Unmarshal(content, &items); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		if err := json.Unmarshal(content, &raw); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	case FormatYAML, "yml":
		if err := yaml.Unmarshal(content, &items); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		if err := yaml.Unmarshal(content, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}

	for i := range items {
		if _, ok := raw[i]["data"]; !ok {
			items[i] = importItem{Data: raw[i]}
		}
		if len(items[i].Data) == 0 {
			return nil, fmt.Errorf("task %d: empty data", i+1)
		}
	}
	return items, nil
}

func detectFormat(content []byte) string {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return FormatJSON
	}
	return FormatYAML
}
