package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smokeScenario = `name: cli_smoke
description: Compile one plan through the test command
cases:
  - name: limit
    kind: plan
    input: '{"operation": "Limit", "details": {"count": 2}}'
    expect:
      sql: "SELECT * FROM demographics LIMIT 2;"
`

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")

	out, err = execute(t, NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)
	assert.Equal(t, "ok", decodeResponse(t, out).Status)
}

func TestTestHelpText(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "conformance")
	assert.Contains(t, out, "--update")
	assert.Contains(t, out, "--filter")
	assert.Contains(t, out, "--golden-dir")
	assert.Contains(t, out, "scenarios-dir")
}

// TestTestCommandHarnessScenarios runs the harness package's own scenarios
// and golden files through the command.
func TestTestCommandHarnessScenarios(t *testing.T) {
	scenariosDir := filepath.Join("..", "harness", "testdata", "scenarios")
	goldenDir := filepath.Join("..", "harness", "testdata", "golden")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), scenariosDir, "--golden-dir", goldenDir)
	require.NoError(t, err, out)

	data := decodeResponse(t, out).Data.(map[string]any)
	assert.Equal(t, float64(3), data["total"])
	assert.Equal(t, float64(3), data["passed"])
}

func TestTestCommandGoldenLifecycle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "smoke.yaml"), []byte(smokeScenario), 0644))
	goldenPath := filepath.Join(dir, "golden", "cli_smoke.golden")

	// Without a golden file the expectations decide.
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ cli_smoke")

	out, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ cli_smoke (golden updated)")

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Equal(t,
		`{"cases":[{"kind":"plan","name":"limit","output":"SELECT * FROM demographics LIMIT 2;"}],"scenario_name":"cli_smoke"}`,
		string(golden))

	out, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"cases":[],"scenario_name":"cli_smoke"}`), 0644))
	out, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ cli_smoke")
	assert.Contains(t, out, "do not match golden file")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	bad := `name: wrong_sql
description: Expects the wrong SQL
cases:
  - name: limit
    kind: plan
    input: '{"operation": "Limit", "details": {"count": 2}}'
    expect:
      sql: "SELECT 1;"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(bad), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("name: [unclosed"), 0644))

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2), data["failed"])

	scenarios := data["scenarios"].([]any)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "broken.yml", scenarios[0].(map[string]any)["name"])
	assert.Equal(t, "wrong_sql", scenarios[1].(map[string]any)["name"])
	assert.Contains(t, scenarios[1].(map[string]any)["errors"].([]any)[0], "limit.sql")
}

func TestFindScenarioFiles(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "subdir")
	require.NoError(t, os.MkdirAll(subDir, 0755))

	for _, name := range []string{"plan-a.yaml", "plan-b.yml", "flat-a.yaml", "notes.txt", "subdir/plan-c.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, name), []byte(""), 0644))
	}

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 4)

	files, err = findScenarioFiles(tmpDir, "plan-*")
	require.NoError(t, err)
	assert.Len(t, files, 3)
	for _, f := range files {
		assert.Contains(t, filepath.Base(f), "plan-")
	}

	_, err = findScenarioFiles(tmpDir, "[")
	assert.Error(t, err)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("scenarios", "golden", "smoke.golden"), goldenFilePath(filepath.Join("scenarios", "golden"), "smoke"))
}
