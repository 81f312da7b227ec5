// Package app provides the dependency injection container for the application.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/runoshun/label-crew/internal/datamanager"
	"github.com/runoshun/label-crew/internal/domain"
	"github.com/runoshun/label-crew/internal/infra/apiclient"
	"github.com/runoshun/label-crew/internal/infra/config"
	"github.com/runoshun/label-crew/internal/infra/crypto"
	"github.com/runoshun/label-crew/internal/infra/gitstore"
	"github.com/runoshun/label-crew/internal/infra/jsonstore"
	"github.com/runoshun/label-crew/internal/infra/localapi"
	"github.com/runoshun/label-crew/internal/infra/logging"
	"github.com/runoshun/label-crew/internal/usecase"
	"github.com/runoshun/label-crew/internal/widget"
)

// Config holds the application configuration paths.
type Config struct {
	ProjectRoot string // Directory holding .labelcrew
	DataDir     string // Path to .labelcrew directory
	StorePath   string // Path to tasks.json
}

// newConfig creates a new Config for the project at root.
func newConfig(root string) Config {
	dataDir := domain.ProjectDataDir(root)
	return Config{
		ProjectRoot: root,
		DataDir:     dataDir,
		StorePath:   domain.TasksStorePath(dataDir),
	}
}

// FindProjectRoot returns the nearest directory at or above dir that holds
// a .labelcrew directory. Without one, dir itself is returned.
func FindProjectRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	for current := abs; ; {
		if info, err := os.Stat(domain.ProjectDataDir(current)); err == nil && info.IsDir() {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return abs, nil
		}
		current = parent
	}
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	// Ports (interfaces bound to implementations)
	Tasks            domain.TaskRepository
	StoreInitializer domain.StoreInitializer
	API              domain.APICaller
	Clock            domain.Clock
	ConfigLoader     domain.ConfigLoader
	ConfigManager    domain.ConfigManager
	FileLogger       domain.Logger

	// Pointer fields
	Logger   *slog.Logger
	Registry *widget.Registry
	Metrics  *prometheus.Registry
	AppCfg   *domain.Config

	// Configuration
	Config Config
}

// New creates a new Container for the project containing dir.
func New(dir string) (*Container, error) {
	root, err := FindProjectRoot(dir)
	if err != nil {
		return nil, err
	}
	cfg := newConfig(root)

	configLoader := config.NewLoader(cfg.DataDir)
	appConfig, err := configLoader.Load()
	if err != nil {
		// Keep going with defaults so that init and config still work.
		appConfig = domain.NewDefaultConfig()
		appConfig.Warnings = append(appConfig.Warnings, err.Error())
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	clock := domain.RealClock{}
	fileLogger := logging.New(cfg.DataDir, logging.ParseLevel(appConfig.Log.Level), logging.WithClock(clock))

	user := annotator(appConfig)

	var taskRepo domain.TaskRepository
	var storeInit domain.StoreInitializer
	if appConfig.Tasks.Store == "git" {
		namespace := appConfig.Tasks.Namespace
		if namespace == "" {
			namespace = domain.NamespaceFromUser(user)
		}
		if namespace == "" {
			namespace = domain.DefaultNamespace
		}
		var opts []gitstore.Option
		if appConfig.Tasks.Encrypt {
			sealer, err := newSealer(cfg.DataDir)
			if err != nil {
				return nil, err
			}
			opts = append(opts, gitstore.WithSealer(sealer))
		}
		gitStore, err := gitstore.New(cfg.ProjectRoot, namespace, opts...)
		if err != nil {
			return nil, err
		}
		taskRepo = gitStore
		storeInit = gitStore
	} else {
		jsonStore := jsonstore.New(cfg.StorePath)
		taskRepo = jsonStore
		storeInit = jsonStore
	}

	metrics := prometheus.NewRegistry()
	var api domain.APICaller
	if appConfig.API.IsRemote() {
		client, err := apiclient.New(appConfig.API, appConfig.Endpoints,
			apiclient.WithMetrics(apiclient.NewMetrics(metrics)),
			apiclient.WithLogger(fileLogger),
		)
		if err != nil {
			return nil, fmt.Errorf("create api client: %w", err)
		}
		api = client
	} else {
		api = localapi.New(taskRepo, clock, fileLogger, user)
	}

	registry := widget.NewRegistry()
	widget.Register(registry, clock)

	return &Container{
		Tasks:            taskRepo,
		StoreInitializer: storeInit,
		API:              api,
		Clock:            clock,
		ConfigLoader:     configLoader,
		ConfigManager:    config.NewManager(cfg.DataDir, apiclient.DefaultRoutes),
		FileLogger:       fileLogger,
		Logger:           logger,
		Registry:         registry,
		Metrics:          metrics,
		AppCfg:           appConfig,
		Config:           cfg,
	}, nil
}

// NewWithDeps creates a new Container with custom dependencies for testing.
func NewWithDeps(cfg Config, tasks domain.TaskRepository, storeInit domain.StoreInitializer, api domain.APICaller, clock domain.Clock, logger *slog.Logger) *Container {
	registry := widget.NewRegistry()
	widget.Register(registry, clock)
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Container{
		Tasks:            tasks,
		StoreInitializer: storeInit,
		API:              api,
		Clock:            clock,
		FileLogger:       domain.NopLogger{},
		Logger:           logger,
		Registry:         registry,
		Metrics:          prometheus.NewRegistry(),
		AppCfg:           domain.NewDefaultConfig(),
		Config:           cfg,
	}
}

// newSealer builds the blob sealer for an encrypted git store.
// The memo of sealed blobs lives next to the log under the data directory.
func newSealer(dataDir string) (*crypto.Sealer, error) {
	key := os.Getenv(domain.EncryptionKeyEnv)
	if key == "" {
		return nil, domain.ErrEncryptionKeyMissing
	}
	sealer, err := crypto.NewSealer(key, filepath.Join(dataDir, "cache"))
	if err != nil {
		return nil, fmt.Errorf("create sealer: %w", err)
	}
	return sealer, nil
}

// annotator returns the configured annotator name, falling back to $USER.
func annotator(cfg *domain.Config) string {
	if cfg.Labeling.User != "" {
		return cfg.Labeling.User
	}
	return os.Getenv("USER")
}

// Close releases open log files.
func (c *Container) Close() error {
	if l, ok := c.FileLogger.(io.Closer); ok {
		return l.Close()
	}
	return nil
}

// DataManager returns a host for labeling sessions in mode.
// An empty mode uses the configured one.
func (c *Container) DataManager(mode domain.Mode) (*datamanager.DataManager, error) {
	if mode == "" {
		parsed, err := domain.ParseMode(c.AppCfg.Labeling.Mode)
		if err != nil {
			return nil, err
		}
		mode = parsed
	}
	interfaces := c.AppCfg.Labeling.Interfaces
	if len(interfaces) == 0 {
		interfaces = domain.DefaultInterfaces
	}
	return datamanager.New(datamanager.Options{
		API:      c.API,
		Registry: c.Registry,
		Logger:   c.FileLogger,
		Clock:    c.Clock,
		Mode:     mode,
		Label: datamanager.LabelOptions{
			User:       domain.User{Name: annotator(c.AppCfg)},
			Widget:     c.AppCfg.Labeling.Widget,
			Interfaces: interfaces,
			Timeout:    time.Duration(c.AppCfg.API.Timeout),
		},
	}), nil
}

// UseCase factory methods

// InitProjectUseCase returns a new InitProject use case.
func (c *Container) InitProjectUseCase() *usecase.InitProject {
	return usecase.NewInitProject(c.StoreInitializer, c.Tasks)
}

// ImportTasksUseCase returns a new ImportTasks use case.
func (c *Container) ImportTasksUseCase() *usecase.ImportTasks {
	return usecase.NewImportTasks(c.Tasks, c.Clock, c.FileLogger)
}

// ListTasksUseCase returns a new ListTasks use case.
func (c *Container) ListTasksUseCase() *usecase.ListTasks {
	return usecase.NewListTasks(c.API)
}

// ShowTaskUseCase returns a new ShowTask use case.
func (c *Container) ShowTaskUseCase() *usecase.ShowTask {
	return usecase.NewShowTask(c.API)
}

// ExportAnnotationsUseCase returns a new ExportAnnotations use case.
func (c *Container) ExportAnnotationsUseCase() *usecase.ExportAnnotations {
	return usecase.NewExportAnnotations(c.API)
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ConfigManager, c.AppCfg)
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig(c.ConfigManager)
}
