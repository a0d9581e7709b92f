package cli

import (
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doox-on/CS4220-NORP/internal/dataset"
)

// readJSONL parses command output as dataset records.
func readJSONL(t *testing.T, out string) []dataset.Record {
	t.Helper()
	recs, skipped, err := dataset.ReadJSONL(strings.NewReader(out))
	require.NoError(t, err)
	require.Zero(t, skipped, "output: %s", out)
	return recs
}

func TestGenerateCommand(t *testing.T) {
	first, err := execute(t, NewGenerateCommand(&RootOptions{Format: "text"}), "-n", "5", "--seed", "3")
	require.NoError(t, err)
	second, err := execute(t, NewGenerateCommand(&RootOptions{Format: "text"}), "-n", "5", "--seed", "3")
	require.NoError(t, err)
	assert.Equal(t, first, second, "same seed must give the same queries")

	recs := readJSONL(t, first)
	require.Len(t, recs, 5)
	assert.Equal(t, "gen-3-00001", recs[0].ID)
	for _, rec := range recs {
		assert.True(t, strings.HasPrefix(rec.SQL, "SELECT "), rec.SQL)
		assert.Contains(t, rec.SQL, "demographics")
	}
}

func TestGenerateCommand_FileAndCSV(t *testing.T) {
	_, csvPath, _ := evalFixture(t)
	outPath := filepath.Join(t.TempDir(), "queries.jsonl")

	out, err := execute(t, NewGenerateCommand(&RootOptions{Format: "json"}), "-n", "20", "--csv", csvPath, "-o", outPath)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": float64(20), "output": outPath}, decodeResponse(t, out).Data)

	recs, _, err := dataset.ReadFile(outPath)
	require.NoError(t, err)
	require.Len(t, recs, 20)
	for _, rec := range recs {
		assert.NotContains(t, rec.SQL, "{", "unfilled template slot in %q", rec.SQL)
	}

	_, err = execute(t, NewGenerateCommand(&RootOptions{Format: "text"}), "-n", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLabelCommand(t *testing.T) {
	in := writeFile(t, "nl_sql.jsonl", strings.Join([]string{
		`{"id": "1", "nl": "Zipcodes in 2019", "sql": "SELECT zipcode FROM demographics WHERE year = 2019"}`,
		`{"id": "2", "nl": "Broken", "sql": "SELEC broken"}`,
	}, "\n"))
	outPath := filepath.Join(t.TempDir(), "labeled.jsonl")

	out, err := execute(t, NewLabelCommand(&RootOptions{Format: "json"}), in, "-o", outPath)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"labeled": float64(1), "dropped": float64(1), "output": outPath}, decodeResponse(t, out).Data)

	recs, _, err := dataset.ReadFile(outPath)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "1", recs[0].ID)
	assert.Contains(t, string(recs[0].JSONLabel), `"zipcode"`)
}

func TestTranslateCommand(t *testing.T) {
	in := writeFile(t, "preds.jsonl", strings.Join([]string{
		`{"id": "1", "nl": "a", "sql": "SELECT * FROM demographics LIMIT 2", "json_plan": {"operation": "Limit", "details": {"count": 2}}}`,
		`{"id": "2", "nl": "b", "sql": "SELECT MAX(white) FROM demographics", "pred_json": {"select": [{"column": "white", "agg": "max"}]}}`,
	}, "\n"))

	out, err := execute(t, NewTranslateCommand(&RootOptions{Format: "text"}), "plan", in)
	require.NoError(t, err)
	recs := readJSONL(t, out)
	require.Len(t, recs, 2)
	assert.Equal(t, "SELECT * FROM demographics LIMIT 2;", recs[0].PredSQL)
	assert.Equal(t, "SELECT * FROM demographics LIMIT 2", recs[0].GoldSQL)
	assert.Contains(t, recs[1].PredSQL, "Error: ")

	outPath := filepath.Join(t.TempDir(), "flat.jsonl")
	out, err = execute(t, NewTranslateCommand(&RootOptions{Format: "text"}), "flat", in, "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Translated 1 record(s), 1 failed")

	recs, _, err = dataset.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "Error", recs[0].PredSQL)
	assert.Equal(t, "SELECT MAX(white) FROM demographics", recs[1].PredSQL)

	_, err = execute(t, NewTranslateCommand(&RootOptions{Format: "text"}), "tree", in)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMergeCommand(t *testing.T) {
	nlSQL := writeFile(t, "nl_sql.jsonl", strings.Join([]string{
		`{"id": "a", "nl": "first", "sql": "SELECT 1"}`,
		`{"id": "b", "nl": "second", "sql": "SELECT 2"}`,
	}, "\n"))
	plans := writeFile(t, "plans.jsonl", `{"id": "b", "plan": {"operation": "Scan"}}`)

	out, err := execute(t, NewMergeCommand(&RootOptions{Format: "text"}), nlSQL, plans)
	require.NoError(t, err)

	recs := readJSONL(t, out)
	require.Len(t, recs, 1)
	assert.Equal(t, "b", recs[0].ID)
	assert.Equal(t, "SELECT 2", recs[0].SQL)
	assert.JSONEq(t, `{"operation": "Scan"}`, string(recs[0].JSONPlan))
}

func TestRepairCommand(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	const plan = `{"operation": "Limit", "details": {"count": 5}, "children": [{"operation": "Scan", "details": {"table": "demographics"}}]}`
	questions := writeFile(t, "questions.jsonl", strings.Join([]string{
		`{"id": "q1", "nl": "Top five rows", "sql": "SELECT * FROM demographics LIMIT 5"}`,
		`{"id": "q2", "nl": ""}`,
	}, "\n"))

	t.Run("accepts valid plans", func(t *testing.T) {
		out, err := execute(t, NewRepairCommand(&RootOptions{Format: "text"}), questions,
			"--cmd", "sh", "--arg=-c", "--arg=cat >/dev/null; printf '%s' '"+plan+"'")
		require.NoError(t, err)

		recs := readJSONL(t, out)
		require.Len(t, recs, 1)
		assert.Equal(t, "q1", recs[0].ID)
		assert.Equal(t, "SELECT * FROM demographics LIMIT 5", recs[0].GoldSQL)
		assert.JSONEq(t, plan, string(recs[0].JSONPred))
	})

	t.Run("drops exhausted questions", func(t *testing.T) {
		outPath := filepath.Join(t.TempDir(), "plans.jsonl")
		out, err := execute(t, NewRepairCommand(&RootOptions{Format: "json"}), questions,
			"--cmd", "sh", "--arg=-c", `--arg=cat >/dev/null; echo '{"operation": "Explode", "details": {}}'`,
			"--max-attempts", "2", "-o", outPath)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"accepted": float64(0), "failed": float64(2), "output": outPath}, decodeResponse(t, out).Data)
	})

	t.Run("generator failure stops the batch", func(t *testing.T) {
		_, err := execute(t, NewRepairCommand(&RootOptions{Format: "text"}), questions,
			"--cmd", "sh", "--arg=-c", "--arg=echo boom >&2; exit 3")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("no generator", func(t *testing.T) {
		_, err := execute(t, NewRepairCommand(&RootOptions{Format: "text"}), questions)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "no generator")
	})
}
