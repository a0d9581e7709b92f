package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/doox-on/CS4220-NORP/internal/eval"
	"github.com/doox-on/CS4220-NORP/internal/store"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Database string // SQLite database queries run against
	CSV      string // census CSV loaded before evaluating
	Store    string // results database
	NoStore  bool
	Name     string // run name, defaults to the input file name
	Log      string // per-case log file
}

// EvalResult is the JSON payload of an evaluation.
type EvalResult struct {
	RunID   string       `json:"run_id"`
	Summary eval.Summary `json:"summary"`
	Skipped int          `json:"skipped"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <predictions.jsonl>",
		Short: "Score predicted SQL by execution",
		Long: `Execute every record's pred_sql and gold query against SQLite and
compare the result sets.

Records lacking pred_sql or a gold query (gold_sql, else sql) are skipped.
The run and its cases are written to the results store unless --no-store
is given, and can be inspected later with "norp runs".

Examples:
  norp eval preds.jsonl --csv census.csv
  norp eval preds.jsonl --db census.db --log eval.log --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database to query (overrides config)")
	cmd.Flags().StringVar(&opts.CSV, "csv", "", "census CSV to load into the database (overrides config)")
	cmd.Flags().StringVar(&opts.Store, "store", "", "results database (overrides config)")
	cmd.Flags().BoolVar(&opts.NoStore, "no-store", false, "do not persist the run")
	cmd.Flags().StringVar(&opts.Name, "name", "", "run name")
	cmd.Flags().StringVar(&opts.Log, "log", "", "write the per-case log to this file")

	return cmd
}

func runEval(opts *EvalOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)
	cfg := opts.Settings()

	dbPath := firstNonEmpty(opts.Database, cfg.Database)
	csvPath := firstNonEmpty(opts.CSV, cfg.CSV)

	recs, err := readRecords(formatter, path)
	if err != nil {
		return err
	}

	db, err := eval.OpenDatabase(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()

	if csvPath != "" {
		n, err := eval.LoadCSVFile(ctx, db, csvPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load csv", err)
		}
		formatter.VerboseLog("Loaded %d row(s) from %s", n, csvPath)
	}

	runner := &eval.Runner{
		Comparator: eval.NewComparator(db),
		Workers:    cfg.Workers,
	}

	if !opts.NoStore {
		storePath := firstNonEmpty(opts.Store, cfg.Store)
		st, err := store.Open(storePath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open results store", err)
		}
		defer st.Close()
		runner.Store = st
		formatter.VerboseLog("Persisting run to %s", storePath)
	}

	if opts.Log != "" {
		f, err := os.Create(opts.Log)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create log file", err)
		}
		defer f.Close()
		runner.Log = f
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(path)
	}
	runConfig := map[string]any{
		"database": dbPath,
		"csv":      csvPath,
		"workers":  cfg.Workers,
	}

	report, err := runner.Run(ctx, name, path, runConfig, recs)
	if err != nil {
		return WrapExitError(ExitCommandError, "evaluation failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(EvalResult{
			RunID:   report.RunID,
			Summary: report.Summary,
			Skipped: report.Skipped,
		})
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s (%d skipped)\n", report.RunID, report.Skipped)
	fmt.Fprint(w, report.Summary.Format())
	return nil
}

// firstNonEmpty returns the first non-empty value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
