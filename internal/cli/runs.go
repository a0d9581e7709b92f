package cli

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doox-on/CS4220-NORP/internal/eval"
	"github.com/doox-on/CS4220-NORP/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Store  string
	Delete bool
}

// RunDetail is the JSON payload of a single run.
type RunDetail struct {
	Run   store.Run    `json:"run"`
	Cases []store.Case `json:"cases"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List stored evaluation runs or show one",
		Long: `Read evaluation runs back from the results store.

Without an argument every run is listed, oldest first. With a run id the
run's summary and its cases are shown, or with --delete the run and its
cases are removed.

Examples:
  norp runs
  norp runs 0190a1b2-... --format json
  norp runs 0190a1b2-... --delete`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "", "results database (overrides config)")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "delete the run")

	return cmd
}

func runRuns(opts *RunsOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(firstNonEmpty(opts.Store, opts.Settings().Store))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open results store", err)
	}
	defer st.Close()

	if opts.Delete && len(args) == 0 {
		return NewExitError(ExitCommandError, "--delete needs a run id")
	}

	if len(args) == 0 {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(runs)
		}
		w := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(w, "No runs found.")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(w, "%s  %-24s %3d/%-3d %6.2f%%\n", r.ID, r.Name, r.Passed, r.Total, r.Accuracy*100)
		}
		return nil
	}

	run, err := st.ReadRun(ctx, args[0])
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", args[0]), nil)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if opts.Delete {
		if err := st.DeleteRun(ctx, run.ID); err != nil {
			return WrapExitError(ExitCommandError, "failed to delete run", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(map[string]string{"deleted": run.ID})
		}
		return formatter.Success("Deleted run " + run.ID)
	}

	cases, err := st.ReadCases(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read cases", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(RunDetail{Run: run, Cases: cases})
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s: %s (%s)\n", run.ID, run.Name, run.Source)
	fmt.Fprintf(w, "Passed %d/%d, errors %d, accuracy %.2f%%\n", run.Passed, run.Total, run.Errors, run.Accuracy*100)
	for _, c := range cases {
		fmt.Fprintf(w, "  #%-4d %-5s %s\n", c.Seq+1, caseStatus(c), c.RecordID)
		if c.Error != "" {
			fmt.Fprintf(w, "        %s\n", c.Error)
		}
	}
	return nil
}

// caseStatus recovers a stored case's status from its flags.
func caseStatus(c store.Case) eval.Status {
	switch {
	case c.Error != "":
		return eval.StatusError
	case c.SetMatch:
		return eval.StatusPass
	default:
		return eval.StatusFail
	}
}
