package cli

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/runoshun/label-crew/internal/app"
	"github.com/runoshun/label-crew/internal/domain"
	"github.com/runoshun/label-crew/internal/infra/localapi"
	"github.com/runoshun/label-crew/internal/testutil"
)

var testNow = time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

// newTestContainer creates an app.Container with mock dependencies.
// The task service is the local one, backed by repo.
func newTestContainer(repo *testutil.MockTaskRepository) *app.Container {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	clock := &testutil.MockClock{NowTime: testNow}
	return app.NewWithDeps(
		app.Config{},
		repo,
		&testutil.MockStoreInitializer{},
		localapi.New(repo, clock, nil, "alice"),
		clock,
		logger,
	)
}

func newTestRepo(t *testing.T) *testutil.MockTaskRepository {
	t.Helper()
	repo := testutil.NewMockTaskRepository()
	repo.Project = &domain.Project{Title: "reviews", LabelConfig: domain.DefaultLabelConfig}
	return repo
}

func positive() domain.Result {
	return domain.Result{{"from_name": "sentiment", "to_name": "text", "type": "choices",
		"value": map[string]any{"choices": []any{"Positive"}}}}
}

// seedTasks stores a new, a labeled and a skipped task.
func seedTasks(t *testing.T, repo *testutil.MockTaskRepository) {
	t.Helper()
	require.NoError(t, repo.Save(&domain.Task{ID: 1, Data: map[string]any{"text": "a"}, Created: testNow}))
	require.NoError(t, repo.Save(&domain.Task{ID: 2, Data: map[string]any{"text": "b"},
		Annotations: []domain.Annotation{{PK: "1", Result: positive(), CreatedBy: "alice"}}}))
	require.NoError(t, repo.Save(&domain.Task{ID: 3, Data: map[string]any{"text": "c"},
		Annotations: []domain.Annotation{{PK: "2", WasCancelled: true}}}))
}

// =============================================================================
// Import Command Tests
// =============================================================================

func TestImportCommand_YAMLFile(t *testing.T) {
	repo := newTestRepo(t)
	container := newTestContainer(repo)

	path := filepath.Join(t.TempDir(), "tasks.yaml")
	content := `
- data:
    text: great
  predictions:
    - model_version: v1
      score: 0.9
      result: []
- text: bad
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cmd := newImportCommand(container)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Created task #1 (1 predictions)")
	assert.Contains(t, buf.String(), "Imported 2 tasks")

	require.Len(t, repo.Tasks, 2)
	assert.Equal(t, "bad", repo.Tasks[2].Data["text"])
	assert.Equal(t, testNow, repo.Tasks[1].Created)
}

func TestImportCommand_StdinDryRun(t *testing.T) {
	repo := newTestRepo(t)
	container := newTestContainer(repo)

	cmd := newImportCommand(container)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetIn(strings.NewReader(`[{"data": {"text": "x"}}, {"text": "y"}]`))
	cmd.SetArgs([]string{"--dry-run", "-"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Would import 2 tasks")
	assert.Empty(t, repo.Tasks)
}

func TestImportCommand_Errors(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		args    []string
		stdin   string
	}{
		{name: "missing file", args: []string{filepath.Join(os.TempDir(), "does-not-exist.json")}},
		{name: "empty list", args: []string{"-"}, stdin: "[]", wantErr: domain.ErrNoTasksInFile},
		{name: "bad format", args: []string{"--format", "csv", "-"}, stdin: "a,b", wantErr: domain.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newImportCommand(newTestContainer(newTestRepo(t)))
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetIn(strings.NewReader(tt.stdin))
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, "json", formatFromPath("tasks.JSON"))
	assert.Equal(t, "yaml", formatFromPath("a/b.yml"))
	assert.Equal(t, "", formatFromPath("tasks.txt"))
}

// =============================================================================
// List / Show Command Tests
// =============================================================================

func TestListCommand_Table(t *testing.T) {
	repo := newTestRepo(t)
	seedTasks(t, repo)

	cmd := newListCommand(newTestContainer(repo))
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "STATUS")
	assert.Contains(t, lines[1], "new")
	assert.Contains(t, lines[2], "labeled")
	assert.Contains(t, lines[3], "skipped")
}

func TestListCommand_StatusJSON(t *testing.T) {
	repo := newTestRepo(t)
	seedTasks(t, repo)

	cmd := newListCommand(newTestContainer(repo))
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--status", "labeled", "--json"})

	require.NoError(t, cmd.Execute())
	var tasks []domain.Task
	require.NoError(t, json.Unmarshal(buf.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, 2, tasks[0].ID)
}

func TestListCommand_InvalidStatus(t *testing.T) {
	cmd := newListCommand(newTestContainer(newTestRepo(t)))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--status", "done"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")
}

func TestShowCommand(t *testing.T) {
	repo := newTestRepo(t)
	seedTasks(t, repo)

	cmd := newShowCommand(newTestContainer(repo))
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"#2"})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "# Task 2")
	assert.Contains(t, out, "Status: labeled")
	assert.Contains(t, out, "#1 by alice: 1 regions")
	assert.Contains(t, out, `"text": "b"`)
}

func TestShowCommand_NotFound(t *testing.T) {
	cmd := newShowCommand(newTestContainer(newTestRepo(t)))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"9"})

	assert.ErrorIs(t, cmd.Execute(), domain.ErrTaskNotFound)
}

func TestParseTaskID(t *testing.T) {
	id, err := parseTaskID("#12")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	_, err = parseTaskID("0")
	assert.Error(t, err)
	_, err = parseTaskID("abc")
	assert.Error(t, err)
}

// =============================================================================
// Export Command Tests
// =============================================================================

func TestExportCommand_Stdout(t *testing.T) {
	repo := newTestRepo(t)
	seedTasks(t, repo)

	cmd := newExportCommand(newTestContainer(repo))
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	var records []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 1)
	assert.EqualValues(t, 2, records[0]["id"])
}

func TestExportCommand_YAMLFileWithSkipped(t *testing.T) {
	repo := newTestRepo(t)
	seedTasks(t, repo)

	path := filepath.Join(t.TempDir(), "out.yaml")
	cmd := newExportCommand(newTestContainer(repo))
	var stderr bytes.Buffer
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"-o", path, "--include-skipped"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, stderr.String(), "Exported 2 tasks")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, yaml.Unmarshal(content, &records))
	assert.Len(t, records, 2)
}
