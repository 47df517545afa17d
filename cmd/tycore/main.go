// Command tycore is the one-shot CLI driver for the incremental
// semantic-analysis engine: it discovers Python files under the given
// paths, runs check_file over each, and prints diagnostics. main() itself
// stays a thin panic-recovery wrapper around a package (pkg/cli) that
// returns an exit code instead of calling os.Exit directly, so the driver
// stays testable.
package main

import (
	"fmt"
	"os"

	"github.com/tycore/tycore/pkg/cli"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("TYCORE_DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "tycore: internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug in the query engine's cancellation handling or a rule. Please report it.")
			os.Exit(1)
		}
	}()

	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
