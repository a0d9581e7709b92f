package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "expectations failed:\n%s", strings.Join(result.Errors, "\n"))
			assert.Len(t, result.Outputs, len(scenario.Cases))
		})
	}
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: failing
description: "every case misses its expectation"
cases:
  - name: wrong_sql
    kind: flat
    input: '{"limit": 1}'
    expect:
      sql: "SELECT 1"
  - name: unexpected_error
    kind: plan
    input: "no plan here"
  - name: wrong_code
    kind: validate
    input: '{"operation": "Sort", "details": {}}'
    expect:
      code: E204
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Assertion failed: wrong_sql.sql")
	assert.Contains(t, result.Errors[0], `Actual: "SELECT * FROM demographics LIMIT 1"`)
	assert.Contains(t, result.Errors[1], "unexpected_error.error")
	assert.Contains(t, result.Errors[1], "invalid plan json")
	assert.Contains(t, result.Errors[2], "wrong_code.code")

	assert.Equal(t, "E207", result.Outputs[2].Code)
}

func TestRun_RowMismatch(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: rows
description: "row checks run the compiled SQL"
data: |
  year,zipcode,white
  2020,ZCTA5 30005,10
cases:
  - name: wrong_rows
    kind: flat
    input: '{"select": [{"column": "white"}]}'
    expect:
      rows: [[11]]
  - name: right_rows
    kind: roundtrip
    input: "SELECT zipcode FROM demographics"
    expect:
      rows: [["30005"]]
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "wrong_rows.rows")
	assert.Contains(t, result.Errors[0], "[[10]]")
}

func TestRun_TableOverride(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: table
description: "cases can retarget the default table"
cases:
  - name: plan
    kind: plan
    table: census
    input: '{"operation": "Limit", "details": {"count": 2}}'
    expect:
      sql: "SELECT * FROM census LIMIT 2;"
  - name: flat
    kind: flat
    table: census
    input: '{}'
    expect:
      sql: "SELECT * FROM census"
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"missing name", "description: d\ncases: [{name: a, kind: plan}]", "name is required"},
		{"missing description", "name: n\ncases: [{name: a, kind: plan}]", "description is required"},
		{"no cases", "name: n\ndescription: d\n", "cases list is required"},
		{"unknown kind", "name: n\ndescription: d\ncases: [{name: a, kind: sql}]", `unknown kind "sql"`},
		{"duplicate case", "name: n\ndescription: d\ncases: [{name: a, kind: plan}, {name: a, kind: flat}]", "duplicate name"},
		{"rows without data", "name: n\ndescription: d\ncases: [{name: a, kind: plan, expect: {rows: [[1]]}}]", "rows require scenario data"},
		{"rows on validate", "name: n\ndescription: d\ndata: \"year\\n1\\n\"\ncases: [{name: a, kind: validate, expect: {rows: [[1]]}}]", "rows are not checked"},
		{"code on plan", "name: n\ndescription: d\ncases: [{name: a, kind: plan, expect: {code: E201}}]", "code is only checked"},
		{"unknown field", "name: n\ndescription: d\ncase: []", "failed to parse YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestLoadScenario_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: n\ndescription: d\ncases: [{name: a, kind: validate, input: '{}'}]\n"), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, KindValidate, scenario.Cases[0].Kind)
}
