package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runoshun/label-crew/internal/app"
	"github.com/runoshun/label-crew/internal/domain"
	"github.com/runoshun/label-crew/internal/usecase"
)

// newConfigCommand creates the config command.
func newConfigCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Mode    string
		Gateway string
		Init    bool
		Global  bool
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create configuration files",
		Long: `Show the global and project configuration files.

Global: $XDG_CONFIG_HOME/labelcrew/config.toml (default ~/.config)
Project: .labelcrew/config.toml (overrides global)

Without flags the effective settings are printed first: session mode,
widget, and where tasks are read from.

With --init a commented template is written to the project config, or to
the global config with --global. --mode and --gateway fill in [labeling]
mode and [api] gateway. Existing files are never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !opts.Init && (opts.Global || opts.Mode != "" || opts.Gateway != "") {
				return fmt.Errorf("--global, --mode and --gateway can only be used with --init")
			}

			if opts.Init {
				uc := c.InitConfigUseCase()
				out, err := uc.Execute(cmd.Context(), usecase.InitConfigInput{
					Mode:    opts.Mode,
					Gateway: opts.Gateway,
					Global:  opts.Global,
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created config file: %s (mode: %s)\n", out.Path, out.Mode)
				return nil
			}

			uc := c.ShowConfigUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ShowConfigInput{})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printEffective(w, out.Effective)
			_, _ = fmt.Fprintln(w)
			printConfigInfo(w, "Global", out.GlobalConfig)
			_, _ = fmt.Fprintln(w)
			printConfigInfo(w, "Project", out.ProjectConfig)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Init, "init", false, "Create a config file from the template")
	cmd.Flags().BoolVar(&opts.Global, "global", false, "With --init, create the global config")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "With --init, session mode (explorer or labelstream)")
	cmd.Flags().StringVar(&opts.Gateway, "gateway", "", "With --init, task service URL")

	return cmd
}

// printEffective prints the merged settings.
func printEffective(w io.Writer, eff usecase.EffectiveConfig) {
	_, _ = fmt.Fprintln(w, "[Effective]")
	_, _ = fmt.Fprintf(w, "  mode:   %s\n", eff.Mode)
	_, _ = fmt.Fprintf(w, "  widget: %s\n", eff.Widget)
	switch {
	case eff.Gateway != "":
		_, _ = fmt.Fprintf(w, "  tasks:  remote (%s)\n", eff.Gateway)
	case eff.Encrypt:
		_, _ = fmt.Fprintf(w, "  tasks:  %s (encrypted)\n", eff.Store)
	default:
		_, _ = fmt.Fprintf(w, "  tasks:  %s\n", eff.Store)
	}
	for _, warning := range eff.Warnings {
		_, _ = fmt.Fprintf(w, "  warning: %s\n", warning)
	}
}

// printConfigInfo prints one config file and its content.
func printConfigInfo(w io.Writer, name string, info domain.ConfigInfo) {
	if !info.Exists {
		_, _ = fmt.Fprintf(w, "[%s] %s (not found)\n", name, info.Path)
		return
	}
	_, _ = fmt.Fprintf(w, "[%s] %s\n", name, info.Path)
	content := strings.TrimRight(info.Content, "\n")
	if content == "" {
		return
	}
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w, "  %s\n", line)
	}
}
