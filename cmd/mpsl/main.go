// Command mpsl runs the multiprotocol service layer against simulated clock
// hardware.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/mpsl/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
