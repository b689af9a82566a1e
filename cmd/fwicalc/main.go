// Command fwicalc computes fire weather indices from the command line.
package main

import (
	"os"

	"github.com/okian/fwi/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
