package usecase

import (
	"context"

	"github.com/runoshun/label-crew/internal/domain"
)

// ShowConfigInput contains the input for the ShowConfig use case.
type ShowConfigInput struct{}

// ShowConfigOutput contains the output of the ShowConfig use case.
type ShowConfigOutput struct {
	Effective     EffectiveConfig   // Settings after merging both files
	GlobalConfig  domain.ConfigInfo // Global config file info
	ProjectConfig domain.ConfigInfo // Project config file info
}

// EffectiveConfig summarizes the settings a session would start with.
type EffectiveConfig struct {
	Mode     domain.Mode
	Widget   string
	Store    string // "remote", "json" or "git"
	Gateway  string // Set when Store is "remote"
	Warnings []string
	Encrypt  bool // Git blobs are sealed
}

// ShowConfig displays configuration file information.
type ShowConfig struct {
	configManager domain.ConfigManager
	cfg           *domain.Config
}

// NewShowConfig creates a new ShowConfig use case.
// cfg is the merged configuration loaded at startup.
func NewShowConfig(configManager domain.ConfigManager, cfg *domain.Config) *ShowConfig {
	return &ShowConfig{
		configManager: configManager,
		cfg:           cfg,
	}
}

// Execute retrieves configuration file information and the effective settings.
func (uc *ShowConfig) Execute(_ context.Context, _ ShowConfigInput) (*ShowConfigOutput, error) {
	cfg := uc.cfg
	if cfg == nil {
		cfg = domain.NewDefaultConfig()
	}

	eff := EffectiveConfig{
		Widget:   cfg.Labeling.Widget,
		Store:    cfg.Tasks.Store,
		Warnings: append([]string(nil), cfg.Warnings...),
	}
	// An invalid mode already carries a load warning; sessions fall back to explorer.
	mode, err := domain.ParseMode(cfg.Labeling.Mode)
	if err != nil {
		mode = domain.ModeExplorer
	}
	eff.Mode = mode

	switch {
	case cfg.API.IsRemote():
		eff.Store = "remote"
		eff.Gateway = cfg.API.Gateway
	case eff.Store == "":
		eff.Store = domain.DefaultStore
	}
	eff.Encrypt = eff.Store == "git" && cfg.Tasks.Encrypt

	return &ShowConfigOutput{
		Effective:     eff,
		GlobalConfig:  uc.configManager.GetGlobalConfigInfo(),
		ProjectConfig: uc.configManager.GetProjectConfigInfo(),
	}, nil
}
