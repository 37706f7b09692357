// Package runner owns the graph-run control flow: load the graph, acquire a
// device client, compile, validate inputs, execute, report. Strictly linear;
// any step failure terminates the run and releases everything acquired so
// far. The heavy lifting happens behind the backend contract.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/example/graphrun/internal/backend"
	"github.com/example/graphrun/internal/graphio"
	"github.com/example/graphrun/internal/literal"
)

// Options configures a single run.
type Options struct {
	// GraphPath is the serialized graph file to run.
	GraphPath string

	// Inputs are the positional parameter literals.
	Inputs []*literal.Literal

	// BackendConfig selects the backend ("<name>:<config>"). Empty defers
	// to the GRAPHRUN_BACKEND environment variable, then to the backend
	// preferred for the graph's format.
	BackendConfig string

	// DeviceCount is the device count the client must expose. Zero means 1.
	DeviceCount int

	// DeviceNum is the device to compile for and execute on.
	DeviceNum int

	// NewBackend overrides client acquisition. Tests use it to substitute a
	// fake device client; nil uses the backend registry.
	NewBackend func(config string, opts backend.Options) (backend.Backend, error)
}

// Report is the outcome of a successful run.
type Report struct {
	GraphName   string
	GraphFormat graphio.Format
	GraphBytes  int
	Backend     string
	Outputs     []*literal.Literal
	CompileTime time.Duration
	ExecuteTime time.Duration
}

// Run executes the full pipeline for one graph. On success the returned
// report holds the output literals; on failure the error is a *Error tagged
// with the failing step. The device client and the compiled executable are
// released on every path.
func Run(ctx context.Context, opts Options) (*Report, error) {
	// Load.
	bundle, err := graphio.Load(opts.GraphPath)
	if err != nil {
		return nil, failAt(StepLoad, err)
	}
	slog.Debug("graph loaded", "name", bundle.Name, "format", bundle.Format.String(), "bytes", bundle.SizeBytes())

	// Acquire device client.
	b, err := acquireBackend(bundle, opts)
	if err != nil {
		return nil, failAt(StepClient, err)
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			slog.Warn("backend close failed", "backend", b.Name(), "error", closeErr)
		}
	}()

	// Compile.
	compileStart := time.Now()
	exec, err := b.Compile(ctx, bundle, backend.CompileOptions{DeviceNum: opts.DeviceNum})
	if err != nil {
		return nil, failAt(StepCompile, err)
	}
	defer exec.Finalize()
	compileTime := time.Since(compileStart)

	// Prepare inputs: reject mismatches before anything reaches the device.
	if err := ValidateInputs(exec.Inputs(), opts.Inputs); err != nil {
		return nil, failAt(StepInput, err)
	}

	// Execute.
	executeStart := time.Now()
	outputs, err := exec.Execute(ctx, opts.Inputs)
	if err != nil {
		return nil, failAt(StepExecute, err)
	}
	executeTime := time.Since(executeStart)

	return &Report{
		GraphName:   exec.Name(),
		GraphFormat: bundle.Format,
		GraphBytes:  bundle.SizeBytes(),
		Backend:     b.Description(),
		Outputs:     outputs,
		CompileTime: compileTime,
		ExecuteTime: executeTime,
	}, nil
}

// acquireBackend builds the device client for a run: explicit config wins,
// then the GRAPHRUN_BACKEND environment variable, then the backend preferred
// for the graph format.
func acquireBackend(bundle *graphio.Bundle, opts Options) (backend.Backend, error) {
	construct := opts.NewBackend
	if construct == nil {
		construct = backend.NewWithConfig
	}
	config := opts.BackendConfig
	if config == "" {
		if env, found := os.LookupEnv(backend.EnvBackend); found {
			config = env
		} else {
			config = backend.ForFormat(bundle.Format)
		}
	}
	return construct(config, backend.Options{DeviceCount: opts.DeviceCount})
}

// ValidateInputs checks the caller literals against a declared parameter
// signature. A nil signature means the backend could not introspect one and
// no manifest declared it; validation is skipped and the runtime's own
// complaint, if any, surfaces at the execute step.
func ValidateInputs(declared []graphio.Node, given []*literal.Literal) error {
	if declared == nil {
		slog.Debug("no parameter signature available, skipping input validation")
		return nil
	}
	if len(given) != len(declared) {
		return fmt.Errorf("graph declares %d parameters, got %d inputs", len(declared), len(given))
	}
	for i, node := range declared {
		if got := given[i].Shape(); !got.Equal(node.Shape) {
			return fmt.Errorf("input %d (%s): literal %s does not match declared parameter %s",
				i, node.Name, got, node.Shape)
		}
	}
	return nil
}
