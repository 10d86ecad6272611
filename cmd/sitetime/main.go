package main

import (
	"fmt"
	"os"

	"github.com/runnerr0/sitetime/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Run(version); err != nil {
		fmt.Fprintln(os.Stderr, "sitetime:", err)
		os.Exit(1)
	}
}
