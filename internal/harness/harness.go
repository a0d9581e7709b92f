package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/doox-on/CS4220-NORP/internal/eval"
	"github.com/doox-on/CS4220-NORP/internal/ir"
	"github.com/doox-on/CS4220-NORP/internal/planir"
	"github.com/doox-on/CS4220-NORP/internal/plansql"
	"github.com/doox-on/CS4220-NORP/internal/querysql"
	"github.com/doox-on/CS4220-NORP/internal/sqlnorm"
)

// validOutput is the output of a validate case that passed.
const validOutput = "valid"

// Harness executes scenario cases.
type Harness struct {
	rows *eval.Comparator // nil when the scenario has no data
}

// Run executes a scenario and returns the result.
//
// Scenarios with data run against a fresh in-memory database. Failed
// expectations are reported in the result; the error return is reserved
// for scenarios that cannot run at all.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	h := &Harness{}
	if scenario.Data != "" {
		db, err := eval.OpenDatabase(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory database: %w", err)
		}
		defer db.Close()
		if _, err := eval.LoadCSV(ctx, db, strings.NewReader(scenario.Data)); err != nil {
			return nil, fmt.Errorf("failed to load scenario data: %w", err)
		}
		h.rows = eval.NewComparator(db)
	}

	result := NewResult()
	for _, c := range scenario.Cases {
		out := h.execute(c)
		result.Outputs = append(result.Outputs, out)
		for _, msg := range h.check(ctx, c, out) {
			result.AddError(msg)
		}
	}
	return result, nil
}

// execute feeds one case to its component.
func (h *Harness) execute(c Case) CaseOutput {
	out := CaseOutput{Name: c.Name, Kind: c.Kind}
	input := []byte(c.Input)

	switch c.Kind {
	case KindPlan:
		compiler := plansql.NewCompiler()
		if c.Table != "" {
			compiler.DefaultTable = c.Table
		}
		sql := compiler.CompileJSON(input)
		if plansql.IsError(sql) {
			out.Error = sql
		} else {
			out.Output = sql
		}

	case KindFlat:
		compiler := querysql.NewSQLCompiler()
		if c.Table != "" {
			compiler.DefaultTable = c.Table
		}
		sql := compiler.CompileJSON(input)
		if sql == querysql.ErrorSentinel {
			out.Error = sql
		} else {
			out.Output = sql
		}

	case KindNormalize:
		q, err := sqlnorm.Normalize(c.Input)
		if err != nil {
			out.Error = err.Error()
			break
		}
		canonical, err := canonicalJSON(q)
		if err != nil {
			out.Error = err.Error()
			break
		}
		out.Output = canonical

	case KindRoundTrip:
		q, err := sqlnorm.Normalize(c.Input)
		if err != nil {
			out.Error = err.Error()
			break
		}
		compiler := querysql.NewSQLCompiler()
		if c.Table != "" {
			compiler.DefaultTable = c.Table
		}
		sql, err := compiler.Compile(q)
		if err != nil {
			out.Error = err.Error()
			break
		}
		out.Output = sql

	case KindValidate:
		var opts []planir.Option
		if c.Lenient {
			opts = append(opts, planir.WithSynonyms())
		}
		err := planir.NewValidator(opts...).ValidateJSON(input)
		if err == nil {
			out.Output = validOutput
			break
		}
		out.Error = err.Error()
		var verr *planir.ValidationError
		if errors.As(err, &verr) {
			out.Code = verr.Code
		}
	}
	return out
}

// canonicalJSON renders any JSON-marshalable value as canonical JSON.
func canonicalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	decoded, err := ir.Decode(data)
	if err != nil {
		return "", err
	}
	out, err := ir.MarshalCanonical(decoded)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
