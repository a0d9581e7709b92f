package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doox-on/CS4220-NORP/internal/planir"
	"github.com/doox-on/CS4220-NORP/internal/repair"
)

// RepairOptions holds flags for the repair command.
type RepairOptions struct {
	*RootOptions
	Command     string   // generator program, overrides config
	Args        []string // generator arguments
	MaxAttempts int
	Lenient     bool
	Output      string
}

// NewRepairCommand creates the repair command.
func NewRepairCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RepairOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "repair <questions.jsonl>",
		Short: "Generate plans with a validate-and-retry loop",
		Long: `Ask an external generator for a plan tree per question, validate it
and feed rejections back until a plan passes or attempts run out.

The generator is any program that reads a prompt on stdin and writes its
answer to stdout. Accepted plans are written as records with id, nl,
gold_sql and json_pred. Questions that exhaust their attempts are dropped.

Examples:
  norp repair questions.jsonl --cmd ./run-model.sh -o plans.jsonl
  norp repair questions.jsonl -c norp.cue --max-attempts 5`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Command, "cmd", "", "generator program (overrides config)")
	cmd.Flags().StringArrayVar(&opts.Args, "arg", nil, "generator argument (repeatable)")
	cmd.Flags().IntVar(&opts.MaxAttempts, "max-attempts", 0, "attempts per question (overrides config)")
	cmd.Flags().BoolVar(&opts.Lenient, "lenient", false, "accept operation and detail-key synonyms")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runRepair(opts *RepairOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	cfg := opts.Settings()

	var gen repair.CommandGenerator
	switch {
	case opts.Command != "":
		gen = repair.CommandGenerator{Path: opts.Command, Args: opts.Args}
	case cfg.Generator != nil:
		gen = repair.CommandGenerator{Path: cfg.Generator.Command, Args: cfg.Generator.Args}
	default:
		return NewExitError(ExitCommandError, "no generator: pass --cmd or set generator.command in the config")
	}

	maxAttempts := cfg.MaxRetries
	if opts.MaxAttempts > 0 {
		maxAttempts = opts.MaxAttempts
	}
	validatorOpts := cfg.ValidatorOptions()
	if opts.Lenient {
		validatorOpts = append(validatorOpts, planir.WithSynonyms())
	}

	recs, err := readRecords(formatter, path)
	if err != nil {
		return err
	}

	loop := &repair.Loop{
		Generator:   gen,
		Validator:   planir.NewValidator(validatorOpts...),
		MaxAttempts: maxAttempts,
		Limiter:     cfg.Limiter(),
	}
	formatter.VerboseLog("Repairing %d question(s) with %s (%d attempt(s) each)", len(recs), gen.Path, maxAttempts)

	accepted, failed, err := loop.RunAll(cmd.Context(), recs, cfg.Workers)
	if err != nil {
		return WrapExitError(ExitCommandError, "repair failed", err)
	}

	if err := writeRecords(cmd, opts.Output, accepted); err != nil {
		return err
	}
	return writeSummary(formatter, opts.Output,
		map[string]any{"accepted": len(accepted), "failed": failed},
		fmt.Sprintf("Accepted %d plan(s), %d failed; wrote %s", len(accepted), failed, opts.Output))
}
