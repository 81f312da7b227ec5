package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/label-crew/internal/app"
	"github.com/runoshun/label-crew/internal/domain"
	"github.com/runoshun/label-crew/internal/tui"
)

// launchCall records one launchTUIFunc invocation.
type launchCall struct {
	mode domain.Mode
	opts tui.Options
}

// stubLaunch replaces launchTUIFunc for the duration of the test.
func stubLaunch(t *testing.T, err error) *[]launchCall {
	t.Helper()
	original := launchTUIFunc
	t.Cleanup(func() { launchTUIFunc = original })

	var calls []launchCall
	launchTUIFunc = func(_ context.Context, _ *app.Container, mode domain.Mode, opts tui.Options) error {
		calls = append(calls, launchCall{mode: mode, opts: opts})
		return err
	}
	return &calls
}

func TestNewRootCommand_NoArgs_LaunchesTUI(t *testing.T) {
	calls := stubLaunch(t, nil)

	root := NewRootCommand(nil, "test-version")
	root.SetArgs([]string{})

	require.NoError(t, root.Execute())
	require.Len(t, *calls, 1)
	assert.Equal(t, domain.Mode(""), (*calls)[0].mode)
}

func TestNewRootCommand_WithHelp_ShowsHelp(t *testing.T) {
	calls := stubLaunch(t, nil)

	root := NewRootCommand(nil, "test-version")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--help"})

	require.NoError(t, root.Execute())
	assert.Empty(t, *calls)
	for _, name := range []string{"init", "config", "import", "list", "show", "export", "label"} {
		assert.Contains(t, buf.String(), name)
	}
}

func TestNewRootCommand_Version(t *testing.T) {
	root := NewRootCommand(nil, "1.2.3")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "1.2.3")
}

func TestNewRootCommand_PrintsConfigWarnings(t *testing.T) {
	calls := stubLaunch(t, nil)
	container := newTestContainer(newTestRepo(t))
	container.AppCfg.Warnings = []string{"unknown key labeling.colour"}

	root := NewRootCommand(container, "dev")
	var stderr bytes.Buffer
	root.SetErr(&stderr)
	root.SetArgs([]string{})

	require.NoError(t, root.Execute())
	assert.Contains(t, stderr.String(), "Warning: unknown key labeling.colour")
	assert.Len(t, *calls, 1)
}

func TestLaunchTUI_NilContainer(t *testing.T) {
	err := launchTUI(context.Background(), nil, "", tui.Options{})
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

// =============================================================================
// Label Command Tests
// =============================================================================

func TestLabelCommand_Modes(t *testing.T) {
	tests := []struct {
		name    string
		wantErr string
		args    []string
		want    launchCall
	}{
		{
			name: "configured mode",
			args: []string{},
		},
		{
			name: "stream",
			args: []string{"--stream"},
			want: launchCall{mode: domain.ModeLabelStream, opts: tui.Options{Stream: true}},
		},
		{
			name: "task and annotation",
			args: []string{"--task", "3", "--annotation", "12"},
			want: launchCall{mode: domain.ModeExplorer, opts: tui.Options{Task: 3, Annotation: "12"}},
		},
		{
			name:    "stream with task",
			args:    []string{"--stream", "--task", "3"},
			wantErr: "cannot be used together",
		},
		{
			name:    "annotation without task",
			args:    []string{"--annotation", "12"},
			wantErr: "requires --task",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := stubLaunch(t, nil)

			cmd := newLabelCommand(nil)
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Empty(t, *calls)
				return
			}
			require.NoError(t, err)
			require.Len(t, *calls, 1)
			assert.Equal(t, tt.want, (*calls)[0])
		})
	}
}

func TestLabelCommand_WritesMetrics(t *testing.T) {
	stubLaunch(t, nil)
	container := newTestContainer(newTestRepo(t))
	path := filepath.Join(t.TempDir(), "metrics.prom")

	cmd := newLabelCommand(container)
	cmd.SetArgs([]string{"--stream", "--metrics", path})

	require.NoError(t, cmd.Execute())
	_, err := os.Stat(path)
	assert.NoError(t, err)
}
