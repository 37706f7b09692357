package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/example/graphrun/internal/backend"
	"github.com/example/graphrun/internal/graphio"
	"github.com/example/graphrun/internal/runner"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <graph-file>",
		Short: "Print graph metadata and, where available, its parameter signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := graphio.Load(args[0])
			if err != nil {
				return runner.NewError(runner.StepLoad, err)
			}

			w := os.Stdout
			fmt.Fprintf(w, "graph:  %s\n", bundle.Name)
			fmt.Fprintf(w, "format: %s\n", bundle.Format)
			fmt.Fprintf(w, "size:   %s\n", humanize.Bytes(uint64(bundle.SizeBytes())))
			if bundle.Format == graphio.FormatText {
				fmt.Fprintf(w, "instructions: %d\n", countInstructions(bundle.Data))
			}

			inputs, outputs, ok := signatureOf(cmd, bundle)
			if !ok {
				fmt.Fprintln(w, "signature: unknown (no manifest)")
				return nil
			}

			for _, n := range inputs {
				fmt.Fprintf(w, "param:  %s %s\n", n.Name, n.Shape)
			}
			for _, n := range outputs {
				fmt.Fprintf(w, "output: %s %s\n", n.Name, n.Shape)
			}
			return nil
		},
	}

	return cmd
}

// countInstructions counts the instruction lines of a text graph, skipping
// the header, parameter and return declarations.
func countInstructions(data []byte) int {
	count := 0
	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "graph ") || strings.HasPrefix(line, "param ") ||
			line == "ret" || strings.HasPrefix(line, "ret ") {
			continue
		}
		count++
	}
	return count
}

// signatureOf resolves the parameter signature: the sidecar manifest when one
// exists, otherwise a throwaway interp compile for text graphs. Opaque
// formats without a manifest have no discoverable signature.
func signatureOf(cmd *cobra.Command, bundle *graphio.Bundle) (inputs, outputs []graphio.Node, ok bool) {
	if bundle.Manifest != nil {
		return bundle.Manifest.InputNodes(), bundle.Manifest.OutputNodes(), true
	}
	if bundle.Format != graphio.FormatText {
		return nil, nil, false
	}

	b, err := backend.NewWithConfig("interp", backend.Options{})
	if err != nil {
		return nil, nil, false
	}
	defer b.Close()

	exec, err := b.Compile(cmd.Context(), bundle, backend.CompileOptions{})
	if err != nil {
		return nil, nil, false
	}
	defer exec.Finalize()

	return exec.Inputs(), exec.Outputs(), true
}
