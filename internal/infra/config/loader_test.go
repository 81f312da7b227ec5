package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/label-crew/internal/domain"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ConfigFileName), []byte(content), 0o644))
}

func TestLoader_Load_ProjectConfigOnly(t *testing.T) {
	dataDir := t.TempDir()
	globalDir := t.TempDir()

	writeConfig(t, dataDir, `
[api]
gateway = "https://labels.example.com/api"
token = "secret"
timeout = "5s"
rate_limit = 4

[labeling]
mode = "labelstream"
user = "alice"
interfaces = ["basic", "skip"]

[tasks]
store = "git"
namespace = "alice"
encrypt = true

[log]
level = "debug"

[endpoints]
nextTask = "GET /queues/default/next"
`)

	loader := NewLoaderWithGlobalDir(dataDir, globalDir)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://labels.example.com/api", cfg.API.Gateway)
	assert.Equal(t, "secret", cfg.API.Token)
	assert.Equal(t, domain.Duration(5*time.Second), cfg.API.Timeout)
	assert.InDelta(t, 4.0, cfg.API.RateLimit, 1e-9)
	assert.True(t, cfg.API.IsRemote())
	assert.Equal(t, "labelstream", cfg.Labeling.Mode)
	assert.Equal(t, domain.DefaultWidget, cfg.Labeling.Widget)
	assert.Equal(t, "alice", cfg.Labeling.User)
	assert.Equal(t, []string{"basic", "skip"}, cfg.Labeling.Interfaces)
	assert.Equal(t, "git", cfg.Tasks.Store)
	assert.Equal(t, "alice", cfg.Tasks.Namespace)
	assert.True(t, cfg.Tasks.Encrypt)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "GET /queues/default/next", cfg.Endpoints[domain.ActionNextTask])
	assert.Empty(t, cfg.Warnings)
}

func TestLoader_Load_GlobalConfigOnly(t *testing.T) {
	dataDir := t.TempDir()
	globalDir := t.TempDir()

	writeConfig(t, globalDir, `
[labeling]
user = "bob"
`)

	loader := NewLoaderWithGlobalDir(dataDir, globalDir)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "bob", cfg.Labeling.User)
	assert.Equal(t, string(domain.ModeExplorer), cfg.Labeling.Mode)
	assert.Equal(t, domain.DefaultInterfaces, cfg.Labeling.Interfaces)
}

func TestLoader_Load_ProjectOverridesGlobal(t *testing.T) {
	dataDir := t.TempDir()
	globalDir := t.TempDir()

	writeConfig(t, globalDir, `
[api]
gateway = "https://global.example.com"
token = "global-token"

[log]
level = "warn"
`)
	writeConfig(t, dataDir, `
[api]
gateway = "https://project.example.com"
timeout = "0s"
`)

	loader := NewLoaderWithGlobalDir(dataDir, globalDir)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://project.example.com", cfg.API.Gateway)
	assert.Equal(t, "global-token", cfg.API.Token)
	assert.Equal(t, domain.Duration(0), cfg.API.Timeout, "explicit zero disables the timeout")
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_Load_NoConfig(t *testing.T) {
	loader := NewLoaderWithGlobalDir(t.TempDir(), "")
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.NewDefaultConfig(), cfg)
}

func TestLoader_Load_Warnings(t *testing.T) {
	dataDir := t.TempDir()

	writeConfig(t, dataDir, `
color = "blue"

[labeling]
theme = "dark"

[endpoints]
fly = "GET /fly"

[agents]
x = 1
`)

	loader := NewLoaderWithGlobalDir(dataDir, "")
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"unknown key in [endpoints]: fly",
		"unknown key in [labeling]: theme",
		"unknown key: color",
		"unknown section: agents",
	}, cfg.Warnings)
}

func TestLoader_Load_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid toml", "[labeling\nmode = "},
		{"invalid duration", "[api]\ntimeout = \"soon\"\n"},
		{"invalid mode", "[labeling]\nmode = \"stream\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataDir := t.TempDir()
			writeConfig(t, dataDir, tt.content)

			_, err := NewLoaderWithGlobalDir(dataDir, "").Load()
			assert.Error(t, err)
		})
	}
}

func TestLoader_LoadGlobal(t *testing.T) {
	globalDir := t.TempDir()
	loader := NewLoaderWithGlobalDir(t.TempDir(), globalDir)

	_, err := loader.LoadGlobal()
	require.ErrorIs(t, err, os.ErrNotExist)

	writeConfig(t, globalDir, "[tasks]\nstore = \"git\"\n")
	cfg, err := loader.LoadGlobal()
	require.NoError(t, err)
	assert.Equal(t, "git", cfg.Tasks.Store)
	assert.Empty(t, cfg.Labeling.Mode, "single file is not merged with defaults")
}

func TestLoader_LoadProject(t *testing.T) {
	dataDir := t.TempDir()
	writeConfig(t, dataDir, "[labeling]\nwidget = \"custom\"\n")

	cfg, err := NewLoaderWithGlobalDir(dataDir, "").LoadProject()
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Labeling.Widget)
}

func TestLoader_RenderedTemplateLoadsCleanly(t *testing.T) {
	dataDir := t.TempDir()
	content := domain.RenderConfigTemplate(domain.NewDefaultConfig(), map[domain.Action]string{
		domain.ActionTask: "GET /tasks/:taskID",
	})
	writeConfig(t, dataDir, content)

	cfg, err := NewLoaderWithGlobalDir(dataDir, "").Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Warnings)
	assert.Equal(t, domain.NewDefaultConfig().Labeling, cfg.Labeling)
}
