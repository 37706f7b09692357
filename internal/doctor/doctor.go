// Package doctor provides environment preflight checks for graphrun.
package doctor

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// ProbeFunc returns a short description of a component (e.g. a list of
// plugins) or an error if the component is unavailable.
type ProbeFunc func() (string, error)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// Backends lists the compiled-in backend names.
	Backends []string
	// PJRTPlugins probes for available PJRT plugins.
	PJRTPlugins ProbeFunc
	// SkipPJRT skips the PJRT plugin check (interp-only setups).
	SkipPJRT bool
	// ORTLibrary probes for the ONNX Runtime shared library.
	ORTLibrary ProbeFunc
	// SkipORT skips the ONNX Runtime check.
	SkipORT bool
	// GraphFiles is the list of graph paths to verify on disk.
	GraphFiles []string
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- registered backends ----------------------------------------------
	if len(cfg.Backends) == 0 {
		res.fail("backends: none registered")
		fmt.Fprintf(w, "%s backends: none registered\n", FailMark)
	} else {
		fmt.Fprintf(w, "%s backends: %s\n", PassMark, strings.Join(cfg.Backends, ", "))
	}

	// ---- PJRT plugins -------------------------------------------------------
	if cfg.SkipPJRT {
		fmt.Fprintf(w, "%s pjrt plugins: skipped\n", PassMark)
	} else if cfg.PJRTPlugins != nil {
		plugins, err := cfg.PJRTPlugins()
		if err != nil {
			res.fail(fmt.Sprintf("pjrt plugins: %v", err))
			fmt.Fprintf(w, "%s pjrt plugins: not found (%v)\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s pjrt plugins: %s\n", PassMark, plugins)
		}
	}

	// ---- ONNX Runtime library -----------------------------------------------
	if cfg.SkipORT {
		fmt.Fprintf(w, "%s onnx runtime: skipped\n", PassMark)
	} else if cfg.ORTLibrary != nil {
		lib, err := cfg.ORTLibrary()
		if err != nil {
			res.fail(fmt.Sprintf("onnx runtime: %v", err))
			fmt.Fprintf(w, "%s onnx runtime: not found (%v)\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s onnx runtime: %s\n", PassMark, lib)
		}
	}

	// ---- graph files ---------------------------------------------------------
	for _, path := range cfg.GraphFiles {
		if _, err := os.Stat(path); err != nil {
			res.fail(fmt.Sprintf("graph file %q: %v", path, err))
			fmt.Fprintf(w, "%s graph file %s: not found\n", FailMark, path)
		} else {
			fmt.Fprintf(w, "%s graph file: %s\n", PassMark, path)
		}
	}

	return res
}
