package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/label-crew/internal/domain"
)

var testRoutes = map[domain.Action]string{
	domain.ActionTask:     "GET /tasks/:taskID",
	domain.ActionNextTask: "GET /next",
}

func TestManager_GetProjectConfigInfo(t *testing.T) {
	t.Run("returns info when file exists", func(t *testing.T) {
		dataDir := t.TempDir()
		configContent := "[log]\nlevel = \"debug\""
		writeConfig(t, dataDir, configContent)

		manager := NewManagerWithGlobalDir(dataDir, "", testRoutes)
		info := manager.GetProjectConfigInfo()

		assert.Equal(t, filepath.Join(dataDir, domain.ConfigFileName), info.Path)
		assert.Equal(t, configContent, info.Content)
		assert.True(t, info.Exists)
	})

	t.Run("returns info when file does not exist", func(t *testing.T) {
		dataDir := t.TempDir()

		manager := NewManagerWithGlobalDir(dataDir, "", testRoutes)
		info := manager.GetProjectConfigInfo()

		assert.Equal(t, filepath.Join(dataDir, domain.ConfigFileName), info.Path)
		assert.Empty(t, info.Content)
		assert.False(t, info.Exists)
	})
}

func TestManager_GetGlobalConfigInfo(t *testing.T) {
	t.Run("returns info when file exists", func(t *testing.T) {
		globalDir := t.TempDir()
		writeConfig(t, globalDir, "[labeling]\nuser = \"bob\"")

		info := NewManagerWithGlobalDir("", globalDir, nil).GetGlobalConfigInfo()

		assert.Equal(t, filepath.Join(globalDir, domain.ConfigFileName), info.Path)
		assert.True(t, info.Exists)
	})

	t.Run("returns empty info when global dir is empty", func(t *testing.T) {
		info := NewManagerWithGlobalDir("", "", nil).GetGlobalConfigInfo()

		assert.Empty(t, info.Path)
		assert.False(t, info.Exists)
	})
}

func TestManager_InitProjectConfig(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dataDir := filepath.Join(t.TempDir(), domain.DataDirName)
		manager := NewManagerWithGlobalDir(dataDir, "", testRoutes)

		require.NoError(t, manager.InitProjectConfig(nil))

		content, err := os.ReadFile(filepath.Join(dataDir, domain.ConfigFileName))
		require.NoError(t, err)
		assert.Contains(t, string(content), "[labeling]")
		assert.Contains(t, string(content), `# nextTask = "GET /next"`)
	})

	t.Run("returns error when file exists", func(t *testing.T) {
		dataDir := t.TempDir()
		writeConfig(t, dataDir, "existing")

		err := NewManagerWithGlobalDir(dataDir, "", testRoutes).InitProjectConfig(nil)
		assert.ErrorIs(t, err, domain.ErrConfigExists)
	})
}

func TestManager_InitGlobalConfig(t *testing.T) {
	t.Run("creates config file and directory", func(t *testing.T) {
		globalDir := filepath.Join(t.TempDir(), "labelcrew")
		manager := NewManagerWithGlobalDir("", globalDir, testRoutes)

		require.NoError(t, manager.InitGlobalConfig(nil))
		assert.True(t, manager.GetGlobalConfigInfo().Exists)

		// Config written by init must load without warnings.
		cfg, err := NewLoaderWithGlobalDir(t.TempDir(), globalDir).Load()
		require.NoError(t, err)
		assert.Empty(t, cfg.Warnings)
	})

	t.Run("fails without a global directory", func(t *testing.T) {
		err := NewManagerWithGlobalDir("", "", nil).InitGlobalConfig(nil)
		assert.Error(t, err)
	})
}

func TestManager_InitProjectConfig_FromConfig(t *testing.T) {
	dataDir := t.TempDir()
	cfg := domain.NewDefaultConfig()
	cfg.Labeling.Mode = string(domain.ModeLabelStream)
	cfg.API.Gateway = "https://labels.example.com/api"

	require.NoError(t, NewManagerWithGlobalDir(dataDir, "", testRoutes).InitProjectConfig(cfg))

	content, err := os.ReadFile(filepath.Join(dataDir, domain.ConfigFileName))
	require.NoError(t, err)
	assert.Contains(t, string(content), `gateway = "https://labels.example.com/api"`)
	assert.Contains(t, string(content), `# user = "annotator"`)

	// The written file round-trips through the loader.
	loaded, err := NewLoaderWithGlobalDir(dataDir, t.TempDir()).Load()
	require.NoError(t, err)
	assert.Equal(t, "labelstream", loaded.Labeling.Mode)
	assert.Equal(t, "https://labels.example.com/api", loaded.API.Gateway)
	assert.Empty(t, loaded.Warnings)
}
