package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/doox-on/CS4220-NORP/internal/ir"
	"github.com/doox-on/CS4220-NORP/internal/planir"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Lenient bool
}

// ValidationResult is the JSON payload of a valid plan.
type ValidationResult struct {
	Valid bool `json:"valid"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [plan-file]",
		Short: "Validate a plan tree against the operation registry",
		Long: `Check a plan tree's shape and operations without compiling it.

The first violation is reported with its code (E201-E207) and the path of
the offending node, e.g. root.children[0]. --lenient also accepts operation
and detail-key synonyms.

Exit codes:
  0 - Plan is valid
  1 - Plan is invalid
  2 - Command error`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Lenient, "lenient", false, "accept operation and detail-key synonyms")

	return cmd
}

func runValidate(opts *ValidateOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	tree, err := ir.Decode(data)
	if err != nil {
		block, blockErr := ir.DecodeBlock(string(data))
		if blockErr != nil {
			return formatter.Fail(ExitFailure, ErrCodeInvalidInput, err.Error(), nil)
		}
		tree = block
	}

	validatorOpts := opts.Settings().ValidatorOptions()
	if opts.Lenient {
		validatorOpts = append(validatorOpts, planir.WithSynonyms())
	}
	validator := planir.NewValidator(validatorOpts...)

	if err := validator.Validate(tree); err != nil {
		var verr *planir.ValidationError
		if errors.As(err, &verr) {
			return formatter.Fail(ExitFailure, verr.Code, verr.Path+": "+verr.Message, map[string]string{"path": verr.Path})
		}
		return formatter.Fail(ExitFailure, ErrCodeGeneric, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}
	return formatter.Success("valid")
}
