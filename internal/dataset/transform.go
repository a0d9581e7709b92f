package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/doox-on/CS4220-NORP/internal/batch"
	"github.com/doox-on/CS4220-NORP/internal/ir"
	"github.com/doox-on/CS4220-NORP/internal/plansql"
	"github.com/doox-on/CS4220-NORP/internal/querysql"
	"github.com/doox-on/CS4220-NORP/internal/sqlnorm"
)

// labeled carries one BuildLabels result; ok=false drops the record.
type labeled struct {
	rec Record
	ok  bool
}

// BuildLabels derives the flat IR label (json_label) of every record from
// its SQL. Records whose SQL does not normalize are dropped and counted.
func BuildLabels(ctx context.Context, recs []Record, workers int) ([]Record, int, error) {
	results, err := batch.Map(ctx, recs, workers, func(_ context.Context, rec Record) (labeled, error) {
		q, err := sqlnorm.Normalize(rec.Gold())
		if err != nil {
			slog.Debug("skipping sample", "id", rec.ID, "error", err)
			return labeled{}, nil
		}
		label, err := compactJSON(q)
		if err != nil {
			return labeled{}, err
		}
		rec.JSONLabel = label
		return labeled{rec: rec, ok: true}, nil
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]Record, 0, len(results))
	dropped := 0
	for _, r := range results {
		if !r.ok {
			dropped++
			continue
		}
		out = append(out, r.rec)
	}
	if dropped > 0 {
		slog.Info("dropped samples with unparsable SQL", "dropped", dropped, "kept", len(out))
	}
	return out, dropped, nil
}

// TranslateFlat compiles each record's predicted flat IR (pred_json) into
// pred_sql and fills gold_sql from sql when missing. A record without a
// prediction, or whose prediction does not compile, gets the flat compiler's
// error sentinel.
func TranslateFlat(ctx context.Context, recs []Record, compiler *querysql.SQLCompiler, workers int) ([]Record, error) {
	return batch.Map(ctx, recs, workers, func(_ context.Context, rec Record) (Record, error) {
		rec.GoldSQL = rec.Gold()
		payload := Payload(rec.PredJSON)
		if payload == nil {
			rec.PredSQL = querysql.ErrorSentinel
			return rec, nil
		}
		rec.PredSQL = compiler.CompileJSON([]byte(ir.StripFences(string(payload))))
		return rec, nil
	})
}

// TranslatePlans compiles each record's predicted plan into pred_sql. The
// plan is read from json_pred, falling back to json_plan.
func TranslatePlans(ctx context.Context, recs []Record, compiler *plansql.Compiler, workers int) ([]Record, error) {
	return batch.Map(ctx, recs, workers, func(_ context.Context, rec Record) (Record, error) {
		rec.GoldSQL = rec.Gold()
		payload := Payload(rec.JSONPred)
		if payload == nil {
			payload = Payload(rec.JSONPlan)
		}
		if payload == nil {
			rec.PredSQL = plansql.ErrorPrefix + "no plan"
			return rec, nil
		}
		rec.PredSQL = compiler.CompileJSON(payload)
		return rec, nil
	})
}

// Merge joins question/SQL records with generated plans by id, keeping the
// order of nlSQL. A plan record's plan is read from "plan", else "json_plan".
// Records without a matching plan are left out and counted in missing.
func Merge(nlSQL, plans []Record) (merged []Record, missing int) {
	byID := make(map[string]Record, len(plans))
	for _, p := range plans {
		byID[p.ID] = p
	}

	merged = make([]Record, 0, len(nlSQL))
	for _, rec := range nlSQL {
		p, ok := byID[rec.ID]
		if !ok {
			missing++
			continue
		}
		plan := p.Plan
		if len(plan) == 0 {
			plan = p.JSONPlan
		}
		merged = append(merged, Record{
			ID:       rec.ID,
			NL:       rec.NL,
			SQL:      rec.SQL,
			JSONPlan: plan,
		})
	}
	return merged, missing
}

// compactJSON marshals v without HTML escaping so operators stay readable.
func compactJSON(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode label: %w", err)
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
