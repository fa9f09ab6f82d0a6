// Command tablecheck runs data-driven search, sort and delete checks
// against a web application's results table.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tablecheck/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd := cli.NewRootCommand()
	cmd.Version = version
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
