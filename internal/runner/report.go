package runner

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// Print writes the run outcome in a stable, line-oriented form. Output
// literals use the same grammar the CLI accepts for inputs, so a printed
// output parses back to itself.
func (r *Report) Print(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "graph: %s (%s, %s)\n",
		r.GraphName, r.GraphFormat, humanize.Bytes(uint64(r.GraphBytes))); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "backend: %s\n", r.Backend); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "compile: %s, execute: %s\n", r.CompileTime, r.ExecuteTime); err != nil {
		return err
	}
	for i, output := range r.Outputs {
		if _, err := fmt.Fprintf(w, "output[%d] = %s\n", i, output); err != nil {
			return err
		}
	}
	return nil
}
