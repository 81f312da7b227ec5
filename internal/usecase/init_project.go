// Package usecase contains the application use cases.
package usecase

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/runoshun/label-crew/internal/domain"
)

// InitProjectInput contains the input parameters for InitProject.
type InitProjectInput struct {
	DataDir     string // Path to .labelcrew directory
	ProjectRoot string // Path to project root
	Title       string // Project title (default: base name of the project root)
	LabelConfig string // Labeling configuration (default: domain.DefaultLabelConfig)
}

// InitProjectOutput contains the output from InitProject.
type InitProjectOutput struct {
	DataDir            string // Path to created data directory
	AlreadyInitialized bool   // True if was already initialized (repair only)
	Repaired           bool   // True if counters were repaired
	GitignoreNeedsAdd  bool   // True if .labelcrew/ is not in .gitignore
}

// InitProject initializes a project for labelcrew.
type InitProject struct {
	storeInit domain.StoreInitializer
	tasks     domain.TaskRepository
}

// NewInitProject creates a new InitProject use case.
func NewInitProject(storeInit domain.StoreInitializer, tasks domain.TaskRepository) *InitProject {
	return &InitProject{storeInit: storeInit, tasks: tasks}
}

// Execute creates the data directory, the task store and the project record.
// If already initialized, it still runs Initialize() to repair the counters
// and keeps the stored project untouched.
func (uc *InitProject) Execute(_ context.Context, in InitProjectInput) (*InitProjectOutput, error) {
	alreadyInitialized := uc.storeInit.IsInitialized()

	if !alreadyInitialized {
		if err := os.MkdirAll(filepath.Join(in.DataDir, "logs"), 0o750); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	repaired, err := uc.storeInit.Initialize()
	if err != nil {
		return nil, fmt.Errorf("initialize task store: %w", err)
	}

	if _, err := uc.tasks.GetProject(); err != nil {
		if !errors.Is(err, domain.ErrNotInitialized) {
			return nil, fmt.Errorf("get project: %w", err)
		}
		if err := uc.tasks.SaveProject(newProject(in)); err != nil {
			return nil, fmt.Errorf("save project: %w", err)
		}
	}

	gitignoreNeedsAdd := false
	if !alreadyInitialized && in.ProjectRoot != "" {
		gitignoreNeedsAdd = !isDataDirInGitignore(in.ProjectRoot)
	}

	return &InitProjectOutput{
		DataDir:            in.DataDir,
		AlreadyInitialized: alreadyInitialized,
		Repaired:           repaired,
		GitignoreNeedsAdd:  gitignoreNeedsAdd,
	}, nil
}

func newProject(in InitProjectInput) *domain.Project {
	p := &domain.Project{
		Title:       in.Title,
		LabelConfig: in.LabelConfig,
	}
	if p.Title == "" && in.ProjectRoot != "" {
		p.Title = filepath.Base(in.ProjectRoot)
	}
	if strings.TrimSpace(p.LabelConfig) == "" {
		p.LabelConfig = domain.DefaultLabelConfig
	}
	return p
}

// isDataDirInGitignore checks if .labelcrew/ is in .gitignore.
func isDataDirInGitignore(projectRoot string) bool {
	f, err := os.Open(filepath.Join(projectRoot, ".gitignore"))
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == domain.DataDirName || line == domain.DataDirName+"/" {
			return true
		}
	}
	return false
}
