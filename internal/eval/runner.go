package eval

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/doox-on/CS4220-NORP/internal/batch"
	"github.com/doox-on/CS4220-NORP/internal/dataset"
	"github.com/doox-on/CS4220-NORP/internal/store"
)

// maxResultChars bounds how much of a result set the log prints.
const maxResultChars = 200

// Case is one evaluated record.
type Case struct {
	Seq    int
	Record dataset.Record
	Result Result
}

// Summary aggregates a run. Accuracy is the PASS fraction in [0, 1].
type Summary struct {
	Total         int     `json:"total"`
	Passed        int     `json:"passed"`
	Failed        int     `json:"failed"`
	Errors        int     `json:"errors"`
	Accuracy      float64 `json:"accuracy"`
	ExactMatch    float64 `json:"exact_match"`
	ExecMatch     float64 `json:"exec_match"`
	AvgStructural float64 `json:"avg_structural"`
	AvgOutput     float64 `json:"avg_output"`
	AvgExecMillis float64 `json:"avg_exec_ms"`
}

// Summarize aggregates evaluated cases.
func Summarize(cases []Case) Summary {
	s := Summary{Total: len(cases)}
	if s.Total == 0 {
		return s
	}
	var exact, exec int
	for _, c := range cases {
		r := c.Result
		switch r.Status {
		case StatusPass:
			s.Passed++
		case StatusError:
			s.Errors++
		}
		if r.ExactMatch {
			exact++
		}
		if r.ExecMatch {
			exec++
		}
		s.AvgStructural += r.Structural
		s.AvgOutput += r.Output
		s.AvgExecMillis += millis(r.ExecTime)
	}
	n := float64(s.Total)
	s.Failed = s.Total - s.Passed
	s.Accuracy = float64(s.Passed) / n
	s.ExactMatch = float64(exact) / n
	s.ExecMatch = float64(exec) / n
	s.AvgStructural /= n
	s.AvgOutput /= n
	s.AvgExecMillis /= n
	return s
}

// Report is the outcome of Runner.Run.
type Report struct {
	RunID   string
	Summary Summary
	Cases   []Case
	// Skipped counts records without both a prediction and a gold query.
	Skipped int
}

// Runner evaluates record batches.
type Runner struct {
	Comparator *Comparator

	// Store, when set, receives the run and its cases.
	Store *store.Store

	// IDs defaults to UUIDv7Generator.
	IDs IDGenerator

	Workers int

	// Log, when set, receives the per-case log and final summary.
	Log io.Writer
}

// Run evaluates every record carrying both pred_sql and a gold query.
// name and source label the stored run; config is stored with it.
func (r *Runner) Run(ctx context.Context, name, source string, config map[string]any, recs []dataset.Record) (*Report, error) {
	if r.Comparator == nil {
		return nil, fmt.Errorf("eval: no comparator")
	}
	ids := r.IDs
	if ids == nil {
		ids = UUIDv7Generator{}
	}

	var eligible []dataset.Record
	skipped := 0
	for _, rec := range recs {
		if rec.PredSQL == "" || rec.Gold() == "" {
			skipped++
			continue
		}
		eligible = append(eligible, rec)
	}

	results, err := batch.Map(ctx, eligible, r.Workers, func(ctx context.Context, rec dataset.Record) (Result, error) {
		return r.Comparator.Compare(ctx, rec.PredSQL, rec.Gold()), nil
	})
	if err != nil {
		return nil, fmt.Errorf("eval: %w", err)
	}

	cases := make([]Case, len(eligible))
	for i, rec := range eligible {
		cases[i] = Case{Seq: i, Record: rec, Result: results[i]}
	}

	report := &Report{
		RunID:   ids.Generate(),
		Summary: Summarize(cases),
		Cases:   cases,
		Skipped: skipped,
	}
	slog.Info("evaluation finished",
		"run", report.RunID,
		"total", report.Summary.Total,
		"passed", report.Summary.Passed,
		"errors", report.Summary.Errors,
		"skipped", skipped,
	)

	if r.Log != nil {
		if err := WriteLog(r.Log, cases, report.Summary); err != nil {
			return nil, fmt.Errorf("eval: write log: %w", err)
		}
	}

	if r.Store != nil {
		if err := persist(ctx, r.Store, report, name, source, config); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func persist(ctx context.Context, st *store.Store, report *Report, name, source string, config map[string]any) error {
	s := report.Summary
	run := store.Run{
		ID:            report.RunID,
		Name:          name,
		Source:        source,
		Config:        config,
		Total:         s.Total,
		Passed:        s.Passed,
		Errors:        s.Errors,
		Accuracy:      s.Accuracy,
		AvgStructural: s.AvgStructural,
		AvgOutput:     s.AvgOutput,
		AvgExecMillis: s.AvgExecMillis,
	}
	if err := st.WriteRun(ctx, run); err != nil {
		return fmt.Errorf("eval: %w", err)
	}

	rows := make([]store.Case, len(report.Cases))
	for i, c := range report.Cases {
		rows[i] = store.Case{
			RunID:      report.RunID,
			Seq:        int64(c.Seq),
			RecordID:   c.Record.ID,
			NL:         c.Record.NL,
			GoldSQL:    c.Record.Gold(),
			PredSQL:    c.Record.PredSQL,
			ExactMatch: c.Result.ExactMatch,
			ExecMatch:  c.Result.ExecMatch,
			SetMatch:   c.Result.SetMatch,
			Structural: c.Result.Structural,
			Output:     c.Result.Output,
			ExecMillis: millis(c.Result.ExecTime),
			Error:      c.Result.Error,
		}
	}
	if err := st.WriteCases(ctx, rows); err != nil {
		return fmt.Errorf("eval: %w", err)
	}
	return nil
}

// WriteLog writes the per-case log followed by the summary.
func WriteLog(w io.Writer, cases []Case, s Summary) error {
	var b strings.Builder
	bar := strings.Repeat("=", 20)
	for _, c := range cases {
		fmt.Fprintf(&b, "[%s Test Case #%d %s]\n", bar, c.Seq+1, bar)
		fmt.Fprintf(&b, "Question: %s\n", c.Record.NL)
		fmt.Fprintf(&b, "Pred SQL:  %s\n", c.Record.PredSQL)
		fmt.Fprintf(&b, "Gold SQL:  %s\n", c.Record.Gold())
		if c.Result.Status == StatusError {
			fmt.Fprintf(&b, "Execution Error: %s\n", c.Result.Error)
		} else {
			fmt.Fprintf(&b, "Pred DB Result: %s\n", formatRows(c.Result.PredRows))
			fmt.Fprintf(&b, "Gold DB Result: %s\n", formatRows(c.Result.GoldRows))
		}
		mark := "X"
		if c.Result.SetMatch {
			mark = "MATCH"
		}
		fmt.Fprintf(&b, "result: %s %s\n\n", mark, c.Result.Status)
	}
	b.WriteString(s.Format())
	_, err := io.WriteString(w, b.String())
	return err
}

// Format renders the summary block.
func (s Summary) Format() string {
	bar := strings.Repeat("=", 50)
	lines := []string{
		"",
		bar,
		"FINAL EVALUATION SUMMARY",
		bar,
		fmt.Sprintf("Total Test Cases: %d", s.Total),
		fmt.Sprintf("Passed:           %d", s.Passed),
		fmt.Sprintf("Failed:           %d", s.Failed),
		fmt.Sprintf("Errors (Syntax):  %d", s.Errors),
		fmt.Sprintf("Execution Acc:    %.2f%%", s.Accuracy*100),
		fmt.Sprintf("Exact Match:      %.3f", s.ExactMatch),
		fmt.Sprintf("Ordered Match:    %.3f", s.ExecMatch),
		fmt.Sprintf("Avg Structural:   %.3f", s.AvgStructural),
		fmt.Sprintf("Avg Output:       %.3f", s.AvgOutput),
		fmt.Sprintf("Avg Exec Time:    %.3f ms", s.AvgExecMillis),
		bar,
	}
	return strings.Join(lines, "\n") + "\n"
}

// formatRows renders rows as tuples, truncated for the log.
func formatRows(rows []Row) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, v := range r {
			if j > 0 {
				b.WriteString(", ")
			}
			switch v := v.(type) {
			case nil:
				b.WriteString("None")
			case string:
				fmt.Fprintf(&b, "'%s'", v)
			default:
				fmt.Fprintf(&b, "%v", v)
			}
		}
		if len(r) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
	}
	b.WriteByte(']')
	s := b.String()
	if len(s) > maxResultChars {
		s = s[:maxResultChars] + "... (truncated)"
	}
	return s
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
