package repair

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/doox-on/CS4220-NORP/internal/batch"
	"github.com/doox-on/CS4220-NORP/internal/dataset"
	"github.com/doox-on/CS4220-NORP/internal/ir"
)

// RunAll generates a plan for every record with a question and returns the
// accepted ones as {id, nl, gold_sql, json_pred} records in input order.
// Samples that exhaust their attempts, or have no question, are dropped and
// counted in failed. Any other error stops the batch.
func (l *Loop) RunAll(ctx context.Context, recs []dataset.Record, workers int) (accepted []dataset.Record, failed int, err error) {
	type outcome struct {
		rec dataset.Record
		ok  bool
	}

	results, err := batch.Map(ctx, recs, workers, func(ctx context.Context, rec dataset.Record) (outcome, error) {
		if rec.NL == "" {
			return outcome{}, nil
		}
		res, err := l.Run(ctx, rec.NL)
		if errors.Is(err, ErrExhausted) {
			slog.Info("giving up on sample", "id", rec.ID, "error", err)
			return outcome{}, nil
		}
		if err != nil {
			return outcome{}, err
		}
		plan, err := compact(res.Plan)
		if err != nil {
			return outcome{}, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		return outcome{
			rec: dataset.Record{ID: rec.ID, NL: rec.NL, GoldSQL: rec.Gold(), JSONPred: plan},
			ok:  true,
		}, nil
	})
	if err != nil {
		return nil, 0, err
	}

	accepted = make([]dataset.Record, 0, len(results))
	for _, r := range results {
		if !r.ok {
			failed++
			continue
		}
		accepted = append(accepted, r.rec)
	}
	return accepted, failed, nil
}

// compact renders an accepted plan as canonical JSON.
func compact(plan map[string]any) (json.RawMessage, error) {
	data, err := ir.MarshalCanonical(plan)
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}
	return json.RawMessage(data), nil
}
