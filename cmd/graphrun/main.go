package main

import (
	"fmt"
	"os"

	"github.com/example/graphrun/internal/runner"
)

func main() {
	err := NewRootCmd().Execute()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(runner.ExitCode(err))
	}
}
