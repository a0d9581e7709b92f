package store

import (
	"context"
	"fmt"
)

// Run is one evaluation run with its summary metrics.
type Run struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Source        string         `json:"source"`
	Config        map[string]any `json:"config,omitempty"`
	Total         int            `json:"total"`
	Passed        int            `json:"passed"`
	Errors        int            `json:"errors"`
	Accuracy      float64        `json:"accuracy"`
	AvgStructural float64        `json:"avg_structural"`
	AvgOutput     float64        `json:"avg_output"`
	AvgExecMillis float64        `json:"avg_exec_ms"`
}

// Case is the stored result of evaluating one sample.
type Case struct {
	RunID      string  `json:"run_id"`
	Seq        int64   `json:"seq"`
	RecordID   string  `json:"record_id"`
	NL         string  `json:"nl"`
	GoldSQL    string  `json:"gold_sql"`
	PredSQL    string  `json:"pred_sql"`
	ExactMatch bool    `json:"exact_match"`
	ExecMatch  bool    `json:"exec_match"`
	SetMatch   bool    `json:"set_match"`
	Structural float64 `json:"structural"`
	Output     float64 `json:"output"`
	ExecMillis float64 `json:"exec_ms"`
	Error      string  `json:"error,omitempty"`
}

// WriteRun inserts or replaces a run row.
// The config map is stored as canonical JSON.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("write run: empty id")
	}
	configJSON, err := marshalConfig(run.Config)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO eval_runs
		(id, name, source, config, total, passed, errors, accuracy, avg_structural, avg_output, avg_exec_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			source = excluded.source,
			config = excluded.config,
			total = excluded.total,
			passed = excluded.passed,
			errors = excluded.errors,
			accuracy = excluded.accuracy,
			avg_structural = excluded.avg_structural,
			avg_output = excluded.avg_output,
			avg_exec_ms = excluded.avg_exec_ms
	`,
		run.ID,
		run.Name,
		run.Source,
		configJSON,
		run.Total,
		run.Passed,
		run.Errors,
		run.Accuracy,
		run.AvgStructural,
		run.AvgOutput,
		run.AvgExecMillis,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteCase inserts or replaces one case row.
// The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteCase(ctx context.Context, c Case) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO eval_cases
		(run_id, seq, record_id, nl, gold_sql, pred_sql, exact_match, exec_match, set_match,
		 structural, output, exec_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.RunID,
		c.Seq,
		c.RecordID,
		c.NL,
		c.GoldSQL,
		c.PredSQL,
		c.ExactMatch,
		c.ExecMatch,
		c.SetMatch,
		c.Structural,
		c.Output,
		c.ExecMillis,
		c.Error,
	)
	if err != nil {
		return fmt.Errorf("write case %s/%d: %w", c.RunID, c.Seq, err)
	}
	return nil
}

// WriteCases writes all cases in one transaction.
func (s *Store) WriteCases(ctx context.Context, cases []Case) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write cases: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO eval_cases
		(run_id, seq, record_id, nl, gold_sql, pred_sql, exact_match, exec_match, set_match,
		 structural, output, exec_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write cases: prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range cases {
		if _, err := stmt.ExecContext(ctx,
			c.RunID, c.Seq, c.RecordID, c.NL, c.GoldSQL, c.PredSQL,
			c.ExactMatch, c.ExecMatch, c.SetMatch,
			c.Structural, c.Output, c.ExecMillis, c.Error,
		); err != nil {
			return fmt.Errorf("write case %s/%d: %w", c.RunID, c.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write cases: commit: %w", err)
	}
	return nil
}

// DeleteRun removes a run and, through the foreign key, its cases.
// Deleting a missing run is not an error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM eval_runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	return nil
}
