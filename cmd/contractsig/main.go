// Command contractsig serves and inspects contract signature state.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonwraymond/contractsig/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
