package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/runoshun/label-crew/internal/domain"
)

// Ensure Manager implements domain.ConfigManager.
var _ domain.ConfigManager = (*Manager)(nil)

// Manager manages configuration files.
type Manager struct {
	routes        map[domain.Action]string // Default endpoint routes written as comments
	dataDir       string                   // Path to .labelcrew directory
	globalConfDir string                   // Path to global config directory (e.g., ~/.config/labelcrew)
}

// NewManager creates a new Manager.
func NewManager(dataDir string, routes map[domain.Action]string) *Manager {
	return &Manager{
		routes:        routes,
		dataDir:       dataDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewManagerWithGlobalDir creates a new Manager with a custom global config directory.
// This is useful for testing.
func NewManagerWithGlobalDir(dataDir, globalConfDir string, routes map[domain.Action]string) *Manager {
	return &Manager{
		routes:        routes,
		dataDir:       dataDir,
		globalConfDir: globalConfDir,
	}
}

// GetProjectConfigInfo returns information about the project config file.
func (m *Manager) GetProjectConfigInfo() domain.ConfigInfo {
	return m.getConfigInfo(filepath.Join(m.dataDir, domain.ConfigFileName))
}

// GetGlobalConfigInfo returns information about the global config file.
func (m *Manager) GetGlobalConfigInfo() domain.ConfigInfo {
	if m.globalConfDir == "" {
		return domain.ConfigInfo{}
	}
	return m.getConfigInfo(filepath.Join(m.globalConfDir, domain.ConfigFileName))
}

// getConfigInfo reads a config file and returns its info.
func (m *Manager) getConfigInfo(path string) domain.ConfigInfo {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.ConfigInfo{
			Path:   path,
			Exists: false,
		}
	}
	return domain.ConfigInfo{
		Path:    path,
		Content: string(content),
		Exists:  true,
	}
}

// InitProjectConfig creates a project config file with default template.
func (m *Manager) InitProjectConfig(cfg *domain.Config) error {
	if err := os.MkdirAll(m.dataDir, 0o750); err != nil {
		return err
	}
	return m.initConfig(filepath.Join(m.dataDir, domain.ConfigFileName), cfg)
}

// InitGlobalConfig creates a global config file with default template.
func (m *Manager) InitGlobalConfig(cfg *domain.Config) error {
	if m.globalConfDir == "" {
		return errors.New("global config directory not available")
	}

	// Create parent directory if it doesn't exist
	if err := os.MkdirAll(m.globalConfDir, 0o700); err != nil {
		return err
	}

	return m.initConfig(filepath.Join(m.globalConfDir, domain.ConfigFileName), cfg)
}

// initConfig creates a config file rendered from cfg.
func (m *Manager) initConfig(path string, cfg *domain.Config) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return domain.ErrConfigExists
	}

	if cfg == nil {
		cfg = domain.NewDefaultConfig()
	}
	content := domain.RenderConfigTemplate(cfg, m.routes)
	return os.WriteFile(path, []byte(content), 0o600)
}
