package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/runoshun/label-crew/internal/app"
	"github.com/runoshun/label-crew/internal/domain"
	"github.com/runoshun/label-crew/internal/tui"
)

// newLabelCommand creates the label command for opening the labeling console.
func newLabelCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Annotation  string
		MetricsFile string
		Task        int
		Stream      bool
	}

	cmd := &cobra.Command{
		Use:   "label",
		Short: "Open the labeling console",
		Long: `Open the labeling console.

Without flags the task table opens in the configured mode. --task opens a
task directly (explorer mode); --stream starts the label stream, where the
next unlabeled task is loaded after every submit or skip.

Examples:
  # Label tasks one after another
  labelcrew label --stream

  # Review annotation 12 of task 3
  labelcrew label --task 3 --annotation 12

  # Dump task service metrics when the console exits
  labelcrew label --stream --metrics metrics.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Stream && opts.Task > 0 {
				return fmt.Errorf("--stream and --task cannot be used together")
			}
			if opts.Annotation != "" && opts.Task == 0 {
				return fmt.Errorf("--annotation requires --task")
			}

			var mode domain.Mode
			switch {
			case opts.Stream:
				mode = domain.ModeLabelStream
			case opts.Task > 0:
				mode = domain.ModeExplorer
			}

			err := launchTUIFunc(cmd.Context(), c, mode, tui.Options{
				Annotation: opts.Annotation,
				Task:       opts.Task,
				Stream:     opts.Stream,
			})
			if opts.MetricsFile != "" && c != nil {
				if werr := prometheus.WriteToTextfile(opts.MetricsFile, c.Metrics); werr != nil && err == nil {
					err = fmt.Errorf("write metrics: %w", werr)
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.Stream, "stream", false, "Start the label stream")
	cmd.Flags().IntVar(&opts.Task, "task", 0, "Open this task")
	cmd.Flags().StringVar(&opts.Annotation, "annotation", "", "Select this annotation of --task")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics", "", "Write task service metrics to this file on exit")

	return cmd
}
