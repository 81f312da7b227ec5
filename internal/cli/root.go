// Package cli provides the command-line interface for labelcrew.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/label-crew/internal/app"
	"github.com/runoshun/label-crew/internal/domain"
	"github.com/runoshun/label-crew/internal/tui"
)

// Command group IDs.
const (
	groupSetup = "setup"
	groupTask  = "task"
	groupLabel = "label"
)

// launchTUIFunc starts the TUI. It is a variable so tests can replace it.
var launchTUIFunc = launchTUI

// NewRootCommand creates the root command for labelcrew.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "labelcrew",
		Short: "Terminal data-labeling console",
		Long: `labelcrew is a terminal console for labeling tasks.

Tasks come from a local store (.labelcrew/) or from a remote task service
configured under [api] in config.toml. Run without arguments to open the
task table; use 'labelcrew label --stream' to label tasks one after another.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if c == nil || c.AppCfg == nil {
				return nil
			}
			for _, w := range c.AppCfg.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return launchTUIFunc(cmd.Context(), c, "", tui.Options{})
		},
	}

	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
		&cobra.Group{ID: groupTask, Title: "Task Commands:"},
		&cobra.Group{ID: groupLabel, Title: "Labeling Commands:"},
	)

	// Setup commands
	initCmd := newInitCommand(c)
	initCmd.GroupID = groupSetup

	configCmd := newConfigCommand(c)
	configCmd.GroupID = groupSetup

	// Task commands
	importCmd := newImportCommand(c)
	importCmd.GroupID = groupTask

	listCmd := newListCommand(c)
	listCmd.GroupID = groupTask

	showCmd := newShowCommand(c)
	showCmd.GroupID = groupTask

	exportCmd := newExportCommand(c)
	exportCmd.GroupID = groupTask

	// Labeling commands
	labelCmd := newLabelCommand(c)
	labelCmd.GroupID = groupLabel

	root.AddCommand(
		initCmd,
		configCmd,
		importCmd,
		listCmd,
		showCmd,
		exportCmd,
		labelCmd,
	)

	return root
}

// launchTUI opens the TUI on a new host in mode.
func launchTUI(ctx context.Context, c *app.Container, mode domain.Mode, opts tui.Options) error {
	if c == nil {
		return domain.ErrNotInitialized
	}
	dm, err := c.DataManager(mode)
	if err != nil {
		return err
	}
	return tui.Run(ctx, dm, opts)
}
