// Command dexbench benchmarks the D8 and R8 compilers against a fixed
// set of real-world applications.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/dexbench/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
