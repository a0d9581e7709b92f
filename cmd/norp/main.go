// Command norp is the NL-to-SQL pipeline toolkit.
package main

import (
	"fmt"
	"os"

	"github.com/doox-on/CS4220-NORP/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
