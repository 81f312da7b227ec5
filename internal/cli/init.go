package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/label-crew/internal/app"
	"github.com/runoshun/label-crew/internal/usecase"
)

// newInitCommand creates the init command.
func newInitCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Title       string
		LabelConfig string
	}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a labelcrew project",
		Long: `Initialize a labelcrew project in the current directory.

This command creates the .labelcrew/ directory with:
- tasks.json: empty task store (or task refs when [tasks] store = "git")
- logs/: directory for log files

The project gets a title and a labeling config. Without --label-config a
sentiment classification config is used.

Running init again repairs the store counters and keeps the project.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			labelConfig := ""
			if opts.LabelConfig != "" {
				content, err := readInput(cmd, opts.LabelConfig)
				if err != nil {
					return err
				}
				labelConfig = string(content)
			}

			uc := c.InitProjectUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.InitProjectInput{
				DataDir:     c.Config.DataDir,
				ProjectRoot: c.Config.ProjectRoot,
				Title:       opts.Title,
				LabelConfig: labelConfig,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch {
			case out.Repaired:
				_, _ = fmt.Fprintf(w, "Repaired labelcrew store in %s\n", out.DataDir)
			case out.AlreadyInitialized:
				_, _ = fmt.Fprintf(w, "labelcrew already initialized in %s\n", out.DataDir)
			default:
				_, _ = fmt.Fprintf(w, "Initialized labelcrew in %s\n", out.DataDir)
			}
			if out.GitignoreNeedsAdd {
				_, _ = fmt.Fprintln(w, "Hint: add .labelcrew/ to .gitignore")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "Project title (default: directory name)")
	cmd.Flags().StringVar(&opts.LabelConfig, "label-config", "", "File with the labeling config ('-' for stdin)")

	return cmd
}
