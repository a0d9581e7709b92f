package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doox-on/CS4220-NORP/internal/dataset"
	"github.com/doox-on/CS4220-NORP/internal/plansql"
	"github.com/doox-on/CS4220-NORP/internal/querysql"
)

// DatasetOptions holds flags shared by the dataset commands.
type DatasetOptions struct {
	*RootOptions
	Output string
}

// NewLabelCommand creates the label command.
func NewLabelCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DatasetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "label <nl-sql.jsonl>",
		Short: "Attach flat IR labels to question/SQL records",
		Long: `Normalize every record's sql into flat IR and store it as json_label.

Records whose SQL cannot be normalized are dropped and counted.

Example:
  norp label train.jsonl -o train.labeled.jsonl`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLabel(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runLabel(opts *DatasetOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	recs, err := readRecords(formatter, path)
	if err != nil {
		return err
	}
	out, dropped, err := dataset.BuildLabels(cmd.Context(), recs, opts.Settings().Workers)
	if err != nil {
		return WrapExitError(ExitCommandError, "labeling failed", err)
	}

	if err := writeRecords(cmd, opts.Output, out); err != nil {
		return err
	}
	return writeSummary(formatter, opts.Output,
		map[string]any{"labeled": len(out), "dropped": dropped},
		fmt.Sprintf("Labeled %d record(s), dropped %d; wrote %s", len(out), dropped, opts.Output))
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DatasetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "translate <flat|plan> <predictions.jsonl>",
		Short: "Compile predicted IR to pred_sql",
		Long: `Compile each record's prediction to SQL for "norp eval".

"flat" reads pred_json. "plan" reads json_pred, falling back to json_plan.
Predictions that do not compile get the compiler's error marker as
pred_sql, so they count as execution errors.

Example:
  norp translate plan plans.jsonl -o preds.jsonl`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runTranslate(opts *DatasetOptions, repr, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	cfg := opts.Settings()

	if repr != reprFlat && repr != reprPlan {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown representation %q: must be flat or plan", repr))
	}
	recs, err := readRecords(formatter, path)
	if err != nil {
		return err
	}

	var out []dataset.Record
	if repr == reprFlat {
		out, err = dataset.TranslateFlat(cmd.Context(), recs, &querysql.SQLCompiler{DefaultTable: cfg.DefaultTable}, cfg.Workers)
	} else {
		out, err = dataset.TranslatePlans(cmd.Context(), recs, &plansql.Compiler{DefaultTable: cfg.DefaultTable}, cfg.Workers)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "translation failed", err)
	}

	failed := 0
	for _, rec := range out {
		if rec.PredSQL == querysql.ErrorSentinel || plansql.IsError(rec.PredSQL) {
			failed++
		}
	}

	if err := writeRecords(cmd, opts.Output, out); err != nil {
		return err
	}
	return writeSummary(formatter, opts.Output,
		map[string]any{"translated": len(out) - failed, "failed": failed},
		fmt.Sprintf("Translated %d record(s), %d failed; wrote %s", len(out)-failed, failed, opts.Output))
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DatasetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "merge <nl-sql.jsonl> <plans.jsonl>",
		Short: "Join question/SQL records with generated plans by id",
		Long: `Attach each plan to the question/SQL record with the same id.

Output keeps the order of the first file. Records without a plan are left
out and counted.

Example:
  norp merge train.jsonl plans.jsonl -o train.plans.jsonl`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runMerge(opts *DatasetOptions, nlSQLPath, plansPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	nlSQL, err := readRecords(formatter, nlSQLPath)
	if err != nil {
		return err
	}
	plans, err := readRecords(formatter, plansPath)
	if err != nil {
		return err
	}

	merged, missing := dataset.Merge(nlSQL, plans)
	if err := writeRecords(cmd, opts.Output, merged); err != nil {
		return err
	}
	return writeSummary(formatter, opts.Output,
		map[string]any{"merged": len(merged), "missing": missing},
		fmt.Sprintf("Merged %d record(s), %d without a plan; wrote %s", len(merged), missing, opts.Output))
}
