// Package main is the entry point for the labelcrew CLI.
package main

import (
	"fmt"
	"os"

	"github.com/runoshun/label-crew/internal/app"
	"github.com/runoshun/label-crew/internal/cli"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	container, err := app.New(cwd)
	if err != nil {
		return runWithoutContainer(err)
	}
	defer func() { _ = container.Close() }()

	rootCmd := cli.NewRootCommand(container, version)
	return rootCmd.Execute()
}

// runWithoutContainer lets help and version work when the project cannot be opened.
func runWithoutContainer(initErr error) error {
	if !canRunWithoutContainer(os.Args[1:]) {
		return fmt.Errorf("failed to initialize: %w", initErr)
	}
	return cli.NewRootCommand(nil, version).Execute()
}

func canRunWithoutContainer(args []string) bool {
	if len(args) > 0 && args[0] == "help" {
		return true
	}
	for _, arg := range args {
		if arg == "--version" || arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}
