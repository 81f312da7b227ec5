// Package config provides configuration loading functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/runoshun/label-crew/internal/domain"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// Loader loads configuration from TOML files.
type Loader struct {
	dataDir       string // Path to .labelcrew directory
	globalConfDir string // Path to global config directory (e.g., ~/.config/labelcrew)
}

// NewLoader creates a new Loader.
func NewLoader(dataDir string) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config directory.
// This is useful for testing.
func NewLoaderWithGlobalDir(dataDir, globalConfDir string) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: globalConfDir,
	}
}

// defaultGlobalConfigDir returns the default global config directory.
func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalAppDir(configHome)
}

// fileConfig is one parsed file. Nil pointers were absent from the file.
type fileConfig struct {
	timeout *domain.Duration
	cfg     *domain.Config
}

// Load returns the merged configuration (project + global).
// Project config takes precedence over global config.
func (l *Loader) Load() (*domain.Config, error) {
	global, err := l.loadGlobalFile()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	project, err := l.loadFile(filepath.Join(l.dataDir, domain.ConfigFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	// Merge: default <- global <- project (later takes precedence)
	base := domain.NewDefaultConfig()
	if global != nil {
		base = mergeConfigs(base, global)
	}
	if project != nil {
		base = mergeConfigs(base, project)
	}

	if _, err := domain.ParseMode(base.Labeling.Mode); err != nil {
		return nil, err
	}
	return base, nil
}

// LoadGlobal returns only the global configuration.
func (l *Loader) LoadGlobal() (*domain.Config, error) {
	f, err := l.loadGlobalFile()
	if err != nil {
		return nil, err
	}
	return f.cfg, nil
}

// LoadProject returns only the project configuration.
func (l *Loader) LoadProject() (*domain.Config, error) {
	f, err := l.loadFile(filepath.Join(l.dataDir, domain.ConfigFileName))
	if err != nil {
		return nil, err
	}
	return f.cfg, nil
}

func (l *Loader) loadGlobalFile() (*fileConfig, error) {
	if l.globalConfDir == "" {
		return nil, os.ErrNotExist
	}
	return l.loadFile(filepath.Join(l.globalConfDir, domain.ConfigFileName))
}

// loadFile loads a configuration from a file.
func (l *Loader) loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return convertRawToFileConfig(raw)
}

// convertRawToFileConfig converts the raw map to domain config and collects warnings.
func convertRawToFileConfig(raw map[string]any) (*fileConfig, error) {
	res := &fileConfig{
		cfg: &domain.Config{Endpoints: make(map[domain.Action]string)},
	}
	var warnings []string

	for section, value := range raw {
		m, ok := value.(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown key: %s", section))
			continue
		}

		switch section {
		case "api":
			for k, v := range m {
				switch k {
				case "gateway":
					if s, ok := v.(string); ok {
						res.cfg.API.Gateway = s
					}
				case "token":
					if s, ok := v.(string); ok {
						res.cfg.API.Token = s
					}
				case "timeout":
					s, ok := v.(string)
					if !ok {
						warnings = append(warnings, "invalid value in [api]: timeout")
						continue
					}
					var d domain.Duration
					if err := d.UnmarshalText([]byte(s)); err != nil {
						return nil, fmt.Errorf("[api] timeout: %w", err)
					}
					res.timeout = &d
				case "rate_limit":
					switch n := v.(type) {
					case float64:
						res.cfg.API.RateLimit = n
					case int64:
						res.cfg.API.RateLimit = float64(n)
					}
				default:
					warnings = append(warnings, fmt.Sprintf("unknown key in [api]: %s", k))
				}
			}
		case "endpoints":
			for k, v := range m {
				action := domain.Action(k)
				s, ok := v.(string)
				if !ok || !slices.Contains(domain.Actions, action) {
					warnings = append(warnings, fmt.Sprintf("unknown key in [endpoints]: %s", k))
					continue
				}
				res.cfg.Endpoints[action] = s
			}
		case "labeling":
			for k, v := range m {
				switch k {
				case "mode":
					if s, ok := v.(string); ok {
						res.cfg.Labeling.Mode = s
					}
				case "widget":
					if s, ok := v.(string); ok {
						res.cfg.Labeling.Widget = s
					}
				case "user":
					if s, ok := v.(string); ok {
						res.cfg.Labeling.User = s
					}
				case "interfaces":
					if list, ok := v.([]any); ok {
						flags := make([]string, 0, len(list))
						for _, item := range list {
							if s, ok := item.(string); ok {
								flags = append(flags, s)
							}
						}
						res.cfg.Labeling.Interfaces = flags
					}
				default:
					warnings = append(warnings, fmt.Sprintf("unknown key in [labeling]: %s", k))
				}
			}
		case "tasks":
			for k, v := range m {
				switch k {
				case "store":
					if s, ok := v.(string); ok {
						res.cfg.Tasks.Store = s
					}
				case "namespace":
					if s, ok := v.(string); ok {
						res.cfg.Tasks.Namespace = s
					}
				case "encrypt":
					if b, ok := v.(bool); ok {
						res.cfg.Tasks.Encrypt = b
					}
				default:
					warnings = append(warnings, fmt.Sprintf("unknown key in [tasks]: %s", k))
				}
			}
		case "log":
			for k, v := range m {
				switch k {
				case "level":
					if s, ok := v.(string); ok {
						res.cfg.Log.Level = s
					}
				default:
					warnings = append(warnings, fmt.Sprintf("unknown key in [log]: %s", k))
				}
			}
		default:
			warnings = append(warnings, fmt.Sprintf("unknown section: %s", section))
		}
	}

	if res.timeout != nil {
		res.cfg.API.Timeout = *res.timeout
	}
	sort.Strings(warnings)
	res.cfg.Warnings = warnings
	return res, nil
}

// mergeConfigs merges a file config into base, with the file taking precedence.
func mergeConfigs(base *domain.Config, override *fileConfig) *domain.Config {
	o := override.cfg
	result := &domain.Config{
		API:       base.API,
		Labeling:  base.Labeling,
		Tasks:     base.Tasks,
		Log:       base.Log,
		Endpoints: make(map[domain.Action]string, len(base.Endpoints)+len(o.Endpoints)),
		Warnings:  append([]string{}, base.Warnings...),
	}

	// Add override warnings
	result.Warnings = append(result.Warnings, o.Warnings...)

	for action, route := range base.Endpoints {
		result.Endpoints[action] = route
	}
	for action, route := range o.Endpoints {
		result.Endpoints[action] = route
	}

	if o.API.Gateway != "" {
		result.API.Gateway = o.API.Gateway
	}
	if o.API.Token != "" {
		result.API.Token = o.API.Token
	}
	if override.timeout != nil {
		result.API.Timeout = *override.timeout
	}
	if o.API.RateLimit != 0 {
		result.API.RateLimit = o.API.RateLimit
	}
	if o.Labeling.Mode != "" {
		result.Labeling.Mode = o.Labeling.Mode
	}
	if o.Labeling.Widget != "" {
		result.Labeling.Widget = o.Labeling.Widget
	}
	if o.Labeling.User != "" {
		result.Labeling.User = o.Labeling.User
	}
	if o.Labeling.Interfaces != nil {
		result.Labeling.Interfaces = append([]string(nil), o.Labeling.Interfaces...)
	}
	if o.Tasks.Store != "" {
		result.Tasks.Store = o.Tasks.Store
	}
	if o.Tasks.Namespace != "" {
		result.Tasks.Namespace = o.Tasks.Namespace
	}
	if o.Tasks.Encrypt {
		result.Tasks.Encrypt = true
	}
	if o.Log.Level != "" {
		result.Log.Level = o.Log.Level
	}

	return result
}
