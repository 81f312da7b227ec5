package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/label-crew/internal/domain"
	"github.com/runoshun/label-crew/internal/testutil"
)

func TestInitConfig_Execute_Project(t *testing.T) {
	mgr := testutil.NewMockConfigManager()

	out, err := NewInitConfig(mgr).Execute(context.Background(), InitConfigInput{})

	require.NoError(t, err)
	assert.Equal(t, "/test/.labelcrew/config.toml", out.Path)
	assert.Equal(t, domain.ModeExplorer, out.Mode)
	assert.True(t, mgr.InitProjectCalled)
	assert.False(t, mgr.InitGlobalCalled)
	require.NotNil(t, mgr.InitConfig)
	assert.Equal(t, "explorer", mgr.InitConfig.Labeling.Mode)
	assert.False(t, mgr.InitConfig.API.IsRemote())
}

func TestInitConfig_Execute_Global(t *testing.T) {
	mgr := testutil.NewMockConfigManager()

	out, err := NewInitConfig(mgr).Execute(context.Background(), InitConfigInput{Global: true})

	require.NoError(t, err)
	assert.Equal(t, "/home/test/.config/labelcrew/config.toml", out.Path)
	assert.True(t, mgr.InitGlobalCalled)
}

func TestInitConfig_Execute_AlreadyExists(t *testing.T) {
	mgr := testutil.NewMockConfigManager()
	mgr.InitProjectErr = domain.ErrConfigExists

	_, err := NewInitConfig(mgr).Execute(context.Background(), InitConfigInput{})
	assert.ErrorIs(t, err, domain.ErrConfigExists)
}

func TestInitConfig_Execute_ModeAndGateway(t *testing.T) {
	mgr := testutil.NewMockConfigManager()

	out, err := NewInitConfig(mgr).Execute(context.Background(), InitConfigInput{
		Mode:    "labelstream",
		Gateway: "https://labels.example.com/api",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.ModeLabelStream, out.Mode)
	require.NotNil(t, mgr.InitConfig)
	assert.Equal(t, "labelstream", mgr.InitConfig.Labeling.Mode)
	assert.Equal(t, "https://labels.example.com/api", mgr.InitConfig.API.Gateway)
	assert.Equal(t, domain.DefaultWidget, mgr.InitConfig.Labeling.Widget)
}

func TestInitConfig_Execute_RejectsBadSettings(t *testing.T) {
	tests := []struct {
		name    string
		in      InitConfigInput
		wantErr error
	}{
		{name: "unknown mode", in: InitConfigInput{Mode: "review"}, wantErr: domain.ErrInvalidMode},
		{name: "gateway without scheme", in: InitConfigInput{Gateway: "labels.example.com"}, wantErr: domain.ErrInvalidGateway},
		{name: "gateway with other scheme", in: InitConfigInput{Gateway: "ftp://labels.example.com"}, wantErr: domain.ErrInvalidGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := testutil.NewMockConfigManager()

			_, err := NewInitConfig(mgr).Execute(context.Background(), tt.in)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, mgr.InitProjectCalled)
		})
	}
}
