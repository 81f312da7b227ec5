package usecase

import (
	"context"
	"fmt"
	"net/url"

	"github.com/runoshun/label-crew/internal/domain"
)

// InitConfigInput contains the input for the InitConfig use case.
type InitConfigInput struct {
	Mode    string // Session mode written to [labeling]; empty keeps the default
	Gateway string // Task service URL written to [api]; empty keeps the local store
	Global  bool   // If true, initialize global config; otherwise project config
}

// InitConfigOutput contains the output of the InitConfig use case.
type InitConfigOutput struct {
	Path string      // Path to the created config file
	Mode domain.Mode // Mode written to the file
}

// InitConfig generates a configuration file template.
type InitConfig struct {
	configManager domain.ConfigManager
}

// NewInitConfig creates a new InitConfig use case.
func NewInitConfig(configManager domain.ConfigManager) *InitConfig {
	return &InitConfig{
		configManager: configManager,
	}
}

// Execute validates the requested settings and writes the template.
func (uc *InitConfig) Execute(_ context.Context, in InitConfigInput) (*InitConfigOutput, error) {
	mode, err := domain.ParseMode(in.Mode)
	if err != nil {
		return nil, err
	}
	if in.Gateway != "" {
		if err := validateGateway(in.Gateway); err != nil {
			return nil, err
		}
	}

	cfg := domain.NewDefaultConfig()
	cfg.Labeling.Mode = string(mode)
	cfg.API.Gateway = in.Gateway

	var path string
	if in.Global {
		path = uc.configManager.GetGlobalConfigInfo().Path
		err = uc.configManager.InitGlobalConfig(cfg)
	} else {
		path = uc.configManager.GetProjectConfigInfo().Path
		err = uc.configManager.InitProjectConfig(cfg)
	}

	if err != nil {
		return nil, err
	}

	return &InitConfigOutput{Path: path, Mode: mode}, nil
}

func validateGateway(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", domain.ErrInvalidGateway, raw)
	}
	return nil
}
