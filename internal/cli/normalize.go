package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/doox-on/CS4220-NORP/internal/queryir"
	"github.com/doox-on/CS4220-NORP/internal/sqlnorm"
)

// NormalizeOptions holds flags for the normalize command.
type NormalizeOptions struct {
	*RootOptions
	SQL string // inline query, instead of a file
}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NormalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "normalize [sql-file]",
		Short: "Normalize a SELECT statement to flat IR",
		Long: `Parse one SELECT statement and print its flat IR query.

The query is read from --sql, the file argument, or stdin.

Examples:
  norp normalize --sql "SELECT zipcode FROM demographics WHERE year = 2019"
  norp normalize query.sql --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SQL, "sql", "", "query text")

	return cmd
}

func runNormalize(opts *NormalizeOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	query := opts.SQL
	if query == "" {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		data, err := readInput(cmd, path)
		if err != nil {
			return err
		}
		query = string(data)
	}

	q, err := sqlnorm.Normalize(strings.TrimSpace(query))
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeNormalize, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(q)
	}
	out, err := queryir.MarshalIndent(q)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode query", err)
	}
	return formatter.Success(string(out))
}
