package domain

import (
	"bytes"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"time"
)

//go:embed config_template.toml
var configTemplateContent string

// Config represents the application configuration.
// Fields are ordered to minimize memory padding.
type Config struct {
	Endpoints map[Action]string `toml:"endpoints"` // Endpoint overrides, "<METHOD> /path/:param"
	Warnings  []string          `toml:"-"`
	API       APIConfig         `toml:"api"`
	Labeling  LabelingConfig    `toml:"labeling"`
	Tasks     TasksConfig       `toml:"tasks"`
	Log       LogConfig         `toml:"log"`
}

// APIConfig holds settings for the remote task service from [api] section.
// An empty Gateway selects the local task store.
type APIConfig struct {
	Gateway   string   `toml:"gateway,omitempty"`    // Base URL of the task service
	Token     string   `toml:"token,omitempty"`      // Bearer token
	Timeout   Duration `toml:"timeout,omitempty"`    // Per-call timeout; 0 disables
	RateLimit float64  `toml:"rate_limit,omitempty"` // Requests per second; 0 disables
}

// IsRemote reports whether a remote task service is configured.
func (c APIConfig) IsRemote() bool {
	return c.Gateway != ""
}

// Duration is a time.Duration written as a string such as "30s" in config files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// LabelingConfig holds session settings from [labeling] section.
type LabelingConfig struct {
	Mode       string   `toml:"mode,omitempty"`       // "explorer" (default) or "labelstream"
	Widget     string   `toml:"widget,omitempty"`     // Registered widget name
	User       string   `toml:"user,omitempty"`       // Annotator name
	Interfaces []string `toml:"interfaces,omitempty"` // Enabled interface flags
}

// TasksConfig holds settings for the local task store from [tasks] section.
type TasksConfig struct {
	Store     string `toml:"store,omitempty"`     // "json" (default) or "git"
	Namespace string `toml:"namespace,omitempty"` // Git namespace for refs (default: "labelcrew")
	Encrypt   bool   `toml:"encrypt,omitempty"`   // Seal git blobs with the key in $LABELCREW_ENCRYPTION_KEY
}

// EncryptionKeyEnv names the environment variable holding the hex key
// used when [tasks] encrypt is set.
const EncryptionKeyEnv = "LABELCREW_ENCRYPTION_KEY"

// LogConfig holds logging settings from [log] section.
type LogConfig struct {
	Level string `toml:"level,omitempty"` // debug, info, warn, error
}

// Default configuration values.
const (
	DefaultWidget     = "terminal"
	DefaultNamespace  = "labelcrew"
	DefaultStore      = "json"
	DefaultLogLevel   = "info"
	DefaultAPITimeout = 30 * time.Second
)

// NewDefaultConfig returns a Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Endpoints: make(map[Action]string),
		API: APIConfig{
			Timeout: Duration(DefaultAPITimeout),
		},
		Labeling: LabelingConfig{
			Mode:       string(ModeExplorer),
			Widget:     DefaultWidget,
			Interfaces: append([]string(nil), DefaultInterfaces...),
		},
		Tasks: TasksConfig{
			Store:     DefaultStore,
			Namespace: DefaultNamespace,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// Directory and file names for labelcrew.
const (
	DataDirName    = ".labelcrew"  // Per-project data directory
	AppDirName     = "labelcrew"   // Directory name under XDG_CONFIG_HOME
	ConfigFileName = "config.toml" // Config file name
)

// ProjectDataDir returns the data directory of a project.
func ProjectDataDir(projectRoot string) string {
	return filepath.Join(projectRoot, DataDirName)
}

// ProjectConfigPath returns the project config path.
func ProjectConfigPath(projectRoot string) string {
	return filepath.Join(ProjectDataDir(projectRoot), ConfigFileName)
}

// GlobalAppDir returns the global labelcrew directory path.
// configHome is typically XDG_CONFIG_HOME or ~/.config (resolved by caller).
func GlobalAppDir(configHome string) string {
	return filepath.Join(configHome, AppDirName)
}

// GlobalConfigPath returns the global config path.
func GlobalConfigPath(configHome string) string {
	return filepath.Join(GlobalAppDir(configHome), ConfigFileName)
}

// templateData holds the values rendered into the config template.
type templateData struct {
	Gateway    string
	User       string
	Mode       string
	Widget     string
	Store      string
	Namespace  string
	LogLevel   string
	Interfaces string
	Endpoints  []endpointTemplateData
}

type endpointTemplateData struct {
	Action Action
	Route  string
}

// RenderConfigTemplate renders a commented config file from cfg.
func RenderConfigTemplate(cfg *Config, defaultRoutes map[Action]string) string {
	quoted := make([]string, 0, len(cfg.Labeling.Interfaces))
	for _, f := range cfg.Labeling.Interfaces {
		quoted = append(quoted, fmt.Sprintf("%q", f))
	}

	endpoints := make([]endpointTemplateData, 0, len(Actions))
	for _, a := range Actions {
		if route, ok := defaultRoutes[a]; ok {
			endpoints = append(endpoints, endpointTemplateData{Action: a, Route: route})
		}
	}

	data := templateData{
		Gateway:    cfg.API.Gateway,
		User:       cfg.Labeling.User,
		Mode:       cfg.Labeling.Mode,
		Widget:     cfg.Labeling.Widget,
		Store:      cfg.Tasks.Store,
		Namespace:  cfg.Tasks.Namespace,
		LogLevel:   cfg.Log.Level,
		Interfaces: strings.Join(quoted, ", "),
		Endpoints:  endpoints,
	}

	tmpl, err := template.New("config").Delims("<<", ">>").Parse(configTemplateContent)
	if err != nil {
		// Should never happen with embedded template
		panic(fmt.Sprintf("failed to parse config template: %v", err))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		panic(fmt.Sprintf("failed to execute config template: %v", err))
	}
	return buf.String()
}
