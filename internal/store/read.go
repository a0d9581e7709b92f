package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, source, config, total, passed, errors, accuracy, avg_structural, avg_output, avg_exec_ms
		FROM eval_runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns every run ordered by id. UUIDv7 ids make this creation
// order.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, source, config, total, passed, errors, accuracy, avg_structural, avg_output, avg_exec_ms
		FROM eval_runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadCases returns a run's cases ordered by seq.
// Returns an empty slice (not nil) if the run has no cases.
func (s *Store) ReadCases(ctx context.Context, runID string) ([]Case, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, record_id, nl, gold_sql, pred_sql, exact_match, exec_match, set_match,
		       structural, output, exec_ms, error
		FROM eval_cases
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	cases := []Case{}
	for rows.Next() {
		var c Case
		if err := rows.Scan(
			&c.RunID, &c.Seq, &c.RecordID, &c.NL, &c.GoldSQL, &c.PredSQL,
			&c.ExactMatch, &c.ExecMatch, &c.SetMatch,
			&c.Structural, &c.Output, &c.ExecMillis, &c.Error,
		); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return cases, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var configJSON string
	if err := row.Scan(
		&run.ID, &run.Name, &run.Source, &configJSON,
		&run.Total, &run.Passed, &run.Errors,
		&run.Accuracy, &run.AvgStructural, &run.AvgOutput, &run.AvgExecMillis,
	); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	config, err := unmarshalConfig(configJSON)
	if err != nil {
		return Run{}, err
	}
	run.Config = config
	return run, nil
}
