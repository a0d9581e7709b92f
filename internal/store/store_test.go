package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStore opens a fresh store under t.TempDir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}

		var count int
		if err := s.DB().QueryRow("SELECT COUNT(*) FROM eval_runs").Scan(&count); err != nil {
			t.Errorf("query failed: %v", err)
		}
		s.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
		{"user_version", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, s.verifyPragma(tt.name, tt.expected))
		})
	}
}

func TestClose_Nil(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestWriteRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := Run{
		ID:            "0190a1b2-0000-7000-8000-000000000001",
		Name:          "flat-ir",
		Source:        "predictions.jsonl",
		Config:        map[string]any{"workers": 4, "table": "demographics"},
		Total:         10,
		Passed:        7,
		Errors:        1,
		Accuracy:      0.7,
		AvgStructural: 0.81,
		AvgOutput:     0.75,
		AvgExecMillis: 2.5,
	}
	require.NoError(t, s.WriteRun(ctx, run))

	got, err := s.ReadRun(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.Name, got.Name)
	assert.Equal(t, run.Total, got.Total)
	assert.InDelta(t, run.Accuracy, got.Accuracy, 1e-9)
	assert.Equal(t, json.Number("4"), got.Config["workers"])
	assert.Equal(t, "demographics", got.Config["table"])

	var stored string
	require.NoError(t, s.DB().QueryRow("SELECT config FROM eval_runs WHERE id = ?", run.ID).Scan(&stored))
	assert.Equal(t, `{"table":"demographics","workers":4}`, stored)
}

func TestWriteRun_Replaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteRun(ctx, Run{ID: "run-1", Name: "first", Total: 1}))
	require.NoError(t, s.WriteRun(ctx, Run{ID: "run-1", Name: "second", Total: 2}))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Name)
	assert.Equal(t, 2, got.Total)
	assert.Empty(t, got.Config)
}

func TestWriteRun_EmptyID(t *testing.T) {
	s := createTestStore(t)
	assert.Error(t, s.WriteRun(context.Background(), Run{Name: "x"}))
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListRuns_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-c", "run-a", "run-b"} {
		require.NoError(t, s.WriteRun(ctx, Run{ID: id, Name: id}))
	}

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-a", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
	assert.Equal(t, "run-c", runs[2].ID)
}

func TestCases_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, Run{ID: "run-1", Name: "r"}))

	cases := []Case{
		{RunID: "run-1", Seq: 2, RecordID: "b", PredSQL: "SELECT 2", ExecMatch: true, Structural: 1},
		{RunID: "run-1", Seq: 0, RecordID: "a", PredSQL: "Error", Error: "no such column: x"},
		{RunID: "run-1", Seq: 1, RecordID: "c", ExactMatch: true, ExecMatch: true, SetMatch: true},
	}
	require.NoError(t, s.WriteCases(ctx, cases))

	got, err := s.ReadCases(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []int64{0, 1, 2}, []int64{got[0].Seq, got[1].Seq, got[2].Seq})
	assert.Equal(t, "no such column: x", got[0].Error)
	assert.True(t, got[1].ExactMatch)
	assert.True(t, got[2].ExecMatch)
	assert.False(t, got[2].SetMatch)
}

func TestWriteCase_Replaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, Run{ID: "run-1", Name: "r"}))

	require.NoError(t, s.WriteCase(ctx, Case{RunID: "run-1", Seq: 0, PredSQL: "old"}))
	require.NoError(t, s.WriteCase(ctx, Case{RunID: "run-1", Seq: 0, PredSQL: "new"}))

	got, err := s.ReadCases(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].PredSQL)
}

func TestWriteCase_RequiresRun(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteCase(context.Background(), Case{RunID: "missing", Seq: 0})
	assert.Error(t, err, "foreign key must reject cases without a run")
}

func TestReadCases_Empty(t *testing.T) {
	s := createTestStore(t)
	got, err := s.ReadCases(context.Background(), "none")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDeleteRun_CascadesToCases(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, Run{ID: "run-1", Name: "r"}))
	require.NoError(t, s.WriteRun(ctx, Run{ID: "run-2", Name: "r"}))
	require.NoError(t, s.WriteCases(ctx, []Case{
		{RunID: "run-1", Seq: 0},
		{RunID: "run-1", Seq: 1},
		{RunID: "run-2", Seq: 0},
	}))

	require.NoError(t, s.DeleteRun(ctx, "run-1"))
	require.NoError(t, s.DeleteRun(ctx, "missing"))

	_, err := s.ReadRun(ctx, "run-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	var count int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM eval_cases").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestMigrate_Index(t *testing.T) {
	s := createTestStore(t)
	var name string
	err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_eval_cases_record'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "idx_eval_cases_record", name)
}
