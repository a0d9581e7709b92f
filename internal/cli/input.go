package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/doox-on/CS4220-NORP/internal/dataset"
)

// stdinPath names standard input or output in file arguments.
const stdinPath = "-"

// readInput reads a file argument, or stdin for "-" or an empty path.
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == stdinPath {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read stdin", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, inputError(path, err)
	}
	return data, nil
}

// readRecords loads a JSONL dataset file.
func readRecords(f *OutputFormatter, path string) ([]dataset.Record, error) {
	recs, skipped, err := dataset.ReadFile(path)
	if err != nil {
		return nil, inputError(path, err)
	}
	f.VerboseLog("Read %d record(s) from %s (%d malformed line(s) skipped)", len(recs), path, skipped)
	return recs, nil
}

// writeRecords writes a JSONL dataset to path, or to stdout for "-" or an
// empty path.
func writeRecords(cmd *cobra.Command, path string, recs []dataset.Record) error {
	if path == "" || path == stdinPath {
		if err := dataset.WriteJSONL(cmd.OutOrStdout(), recs); err != nil {
			return WrapExitError(ExitCommandError, "failed to write records", err)
		}
		return nil
	}
	if err := dataset.WriteFile(path, recs); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}

// inputError maps a read failure to a command error.
func inputError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("input not found: %s", path))
	}
	return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read %s", path), err)
}

// writeSummary reports what a file-producing command wrote. Output sent to
// stdout is the data itself, so nothing else is printed there.
func writeSummary(f *OutputFormatter, output string, data map[string]any, text string) error {
	if output == "" || output == stdinPath {
		return nil
	}
	data["output"] = output
	if f.Format == "json" {
		return f.Success(data)
	}
	return f.Success(text)
}
