package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doox-on/CS4220-NORP/internal/ir"
	"github.com/doox-on/CS4220-NORP/internal/plansql"
	"github.com/doox-on/CS4220-NORP/internal/queryir"
	"github.com/doox-on/CS4220-NORP/internal/querysql"
)

// Representations accepted by compile and translate.
const (
	reprFlat = "flat"
	reprPlan = "plan"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Table  string // overrides the configured default table
	Strict bool   // reject flat IR with warnings
}

// CompileResult is the JSON payload of a successful compile.
type CompileResult struct {
	SQL      string   `json:"sql"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <flat|plan> [file]",
		Short: "Compile flat IR or a plan tree to SQL",
		Long: `Compile one JSON document to SQL.

"flat" reads a flat IR query, "plan" reads a plan tree. Markdown fences
and prose around the JSON object are tolerated, so raw generator output
can be piped in. The document is read from the file argument or stdin.

Flat IR is also checked against the IR conventions (known operators and
aggregates, list-valued IN, "low AND high" BETWEEN). Problems are reported
as warnings; --strict turns them into a failure.

Exit codes:
  0 - Compiled
  1 - The document could not be compiled
  2 - Command error

Examples:
  norp compile flat query.json
  norp compile plan plan.json --table demographics`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Table, "table", "", "default table (overrides config)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on flat IR warnings")

	return cmd
}

func runCompile(opts *CompileOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	repr := args[0]
	if repr != reprFlat && repr != reprPlan {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown representation %q: must be flat or plan", repr))
	}
	path := ""
	if len(args) == 2 {
		path = args[1]
	}
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	table := opts.Table
	if table == "" {
		table = opts.Settings().DefaultTable
	}

	var sql string
	var warnings []string
	if repr == reprFlat {
		sql, warnings, err = compileFlat(data, table)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeCompileFlat, err.Error(), nil)
		}
		if opts.Strict && len(warnings) > 0 {
			return formatter.Fail(ExitFailure, ErrCodeCompileFlat, "flat IR has warnings", warnings)
		}
		for _, w := range warnings {
			formatter.VerboseLog("warning: %s", w)
		}
	} else {
		compiler := &plansql.Compiler{DefaultTable: table}
		sql = compiler.CompileJSON(data)
		if plansql.IsError(sql) {
			return formatter.Fail(ExitFailure, ErrCodeCompilePlan, strings.TrimPrefix(sql, plansql.ErrorPrefix), nil)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(CompileResult{SQL: sql, Warnings: warnings})
	}
	return formatter.Success(sql)
}

// compileFlat compiles one flat IR document, keeping the error that the
// batch path collapses into the sentinel.
func compileFlat(data []byte, table string) (string, []string, error) {
	q, err := queryir.Parse([]byte(ir.StripFences(string(data))))
	if err != nil {
		return "", nil, err
	}
	warnings := queryir.Validate(q).Warnings
	compiler := &querysql.SQLCompiler{DefaultTable: table}
	sql, err := compiler.Compile(q)
	if err != nil {
		return "", nil, err
	}
	return sql, warnings, nil
}
