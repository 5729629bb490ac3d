package main

import (
	"fmt"
	"os"

	"github.com/coral-mesh/dwarfkit/internal/cli"
	"github.com/coral-mesh/dwarfkit/internal/errors"
)

func main() {
	if err := cli.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errors.ExitCode(err))
	}
}
