package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/runoshun/label-crew/internal/app"
	"github.com/runoshun/label-crew/internal/domain"
	"github.com/runoshun/label-crew/internal/usecase"
)

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return content, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return content, nil
}

// formatFromPath guesses the format of a file from its extension.
func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return usecase.FormatJSON
	case ".yaml", ".yml":
		return usecase.FormatYAML
	}
	return ""
}

// newImportCommand creates the import command for loading tasks from a file.
func newImportCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Format string
		DryRun bool
	}

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import tasks from a JSON or YAML file",
		Long: `Import tasks into the local task store.

The file holds a list of tasks. Each element is either {data, predictions}
or the task data itself:

  - data:
      text: "The battery lasts forever"
    predictions:
      - model_version: v1
        score: 0.93
        result:
          - from_name: sentiment
            to_name: text
            type: choices
            value: {choices: [Positive]}
  - text: "Stopped working after a week"

The format is taken from --format, then the file extension, then the content.
Use '-' to read from stdin.

Examples:
  labelcrew import tasks.yaml
  labelcrew import --dry-run tasks.json
  cat tasks.json | labelcrew import --format json -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			format := opts.Format
			if format == "" {
				format = formatFromPath(args[0])
			}

			uc := c.ImportTasksUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ImportTasksInput{
				Format:  format,
				Content: content,
				DryRun:  opts.DryRun,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if opts.DryRun {
				_, _ = fmt.Fprintf(w, "Would import %d tasks\n", len(out.Tasks))
				return nil
			}
			for _, t := range out.Tasks {
				_, _ = fmt.Fprintf(w, "Created task #%d (%d predictions)\n", t.ID, t.Predictions)
			}
			_, _ = fmt.Fprintf(w, "Imported %d tasks\n", len(out.Tasks))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "", "Input format: json or yaml")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Validate without saving")

	return cmd
}

// newListCommand creates the list command.
func newListCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Status string
		JSON   bool
	}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `Display the tasks of the task service.

Output format is tab-separated with columns:
  ID, STATUS, ANNOTATIONS, PREDICTIONS, CREATED

STATUS is "new" (no annotation), "labeled" or "skipped" (only cancelled
annotations).

Examples:
  labelcrew list
  labelcrew list --status new
  labelcrew list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status := domain.TaskStatus(opts.Status)
			switch status {
			case "", domain.TaskStatusNew, domain.TaskStatusLabeled, domain.TaskStatusSkipped:
			default:
				return fmt.Errorf("invalid status %q (use new, labeled or skipped)", opts.Status)
			}

			uc := c.ListTasksUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ListTasksInput{Status: status})
			if err != nil {
				return err
			}

			if opts.JSON {
				tasks := out.Tasks
				if tasks == nil {
					tasks = []domain.Task{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(tasks)
			}
			printTaskList(cmd.OutOrStdout(), out.Tasks)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (new, labeled, skipped)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output in JSON format")

	return cmd
}

// printTaskList prints tasks in TSV format.
func printTaskList(w io.Writer, tasks []domain.Task) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	defer func() { _ = tw.Flush() }()

	_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tANNOTATIONS\tPREDICTIONS\tCREATED")
	for _, task := range tasks {
		created := "-"
		if !task.Created.IsZero() {
			created = task.Created.Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n",
			task.ID,
			task.Status(),
			len(task.Annotations),
			len(task.Predictions),
			created,
		)
	}
}

// newShowCommand creates the show command.
func newShowCommand(c *app.Container) *cobra.Command {
	var opts struct {
		JSON bool
	}

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Display task details",
		Long: `Display a task with its data, annotations and predictions.

Examples:
  labelcrew show 3
  labelcrew show '#3' --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseTaskID(args[0])
			if err != nil {
				return fmt.Errorf("invalid task ID: %w", err)
			}

			uc := c.ShowTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ShowTaskInput{TaskID: taskID})
			if err != nil {
				return err
			}

			if opts.JSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out.Task)
			}
			printTaskDetails(cmd.OutOrStdout(), out.Task)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output in JSON format")

	return cmd
}

// parseTaskID parses a task ID string to int.
func parseTaskID(s string) (int, error) {
	// Remove leading # if present
	s = strings.TrimPrefix(s, "#")
	var id int
	_, err := fmt.Sscanf(s, "%d", &id)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("task ID must be positive")
	}
	return id, nil
}

// printTaskDetails prints a task in a human-readable form.
func printTaskDetails(w io.Writer, task *domain.Task) {
	_, _ = fmt.Fprintf(w, "# Task %d\n\n", task.ID)
	_, _ = fmt.Fprintf(w, "Status: %s\n", task.Status())
	if !task.Created.IsZero() {
		_, _ = fmt.Fprintf(w, "Created: %s\n", task.Created.Format(time.RFC3339))
	}

	if len(task.Data) > 0 {
		_, _ = fmt.Fprintln(w, "\nData:")
		data, _ := json.MarshalIndent(task.Data, "  ", "  ")
		_, _ = fmt.Fprintf(w, "  %s\n", data)
	}

	if len(task.Annotations) > 0 {
		_, _ = fmt.Fprintln(w, "\nAnnotations:")
		for _, a := range task.Annotations {
			flags := ""
			if a.WasCancelled {
				flags += " [skipped]"
			}
			if a.GroundTruth {
				flags += " [ground truth]"
			}
			by := ""
			if a.CreatedBy != "" {
				by = " by " + a.CreatedBy
			}
			_, _ = fmt.Fprintf(w, "  #%s%s%s: %d regions\n", a.Key(), by, flags, len(a.Result))
		}
	}

	if len(task.Predictions) > 0 {
		_, _ = fmt.Fprintln(w, "\nPredictions:")
		for _, p := range task.Predictions {
			model := p.ModelVersion
			if model == "" {
				model = "-"
			}
			_, _ = fmt.Fprintf(w, "  %s (score %.2f): %d regions\n", model, p.Score, len(p.Result))
		}
	}
}

// newExportCommand creates the export command.
func newExportCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Format         string
		Output         string
		IncludeSkipped bool
	}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export annotations",
		Long: `Export every task that has annotations, together with its data.

Skipped (cancelled) annotations are left out unless --include-skipped is set.

Examples:
  labelcrew export > annotations.json
  labelcrew export --format yaml -o annotations.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := opts.Format
			if format == "" && opts.Output != "" {
				format = formatFromPath(opts.Output)
			}

			uc := c.ExportAnnotationsUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ExportAnnotationsInput{
				Format:         format,
				IncludeSkipped: opts.IncludeSkipped,
			})
			if err != nil {
				return err
			}

			if opts.Output == "" {
				_, err := cmd.OutOrStdout().Write(out.Data)
				return err
			}
			if err := os.WriteFile(opts.Output, out.Data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d tasks to %s\n", out.Tasks, opts.Output)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "", "Output format: json (default) or yaml")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.IncludeSkipped, "include-skipped", false, "Include skipped annotations")

	return cmd
}
