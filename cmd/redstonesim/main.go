// Command redstonesim simulates redstone circuits from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/redstonesim/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
