// Package interp implements a pure-Go backend that compiles by parsing and
// shape-checking a tiny textual instruction set and executes by
// interpretation. It needs no native runtime, which makes it the reference
// backend for tests and a debugging aid for the CLI.
//
// Import it for side effects to register it:
//
//	import _ "github.com/example/graphrun/internal/backend/interp"
package interp

import (
	"context"
	"fmt"

	"github.com/example/graphrun/internal/backend"
	"github.com/example/graphrun/internal/graphio"
	"github.com/example/graphrun/internal/literal"
)

// BackendName is the registry name of this backend.
const BackendName = "interp"

func init() {
	backend.Register(BackendName, New)
}

// Backend interprets text graphs in-process.
type Backend struct {
	devices int
	closed  bool
}

// New creates an interp backend. The config string must be empty; the
// backend has no configuration of its own.
func New(config string, opts backend.Options) (backend.Backend, error) {
	if config != "" {
		return nil, fmt.Errorf("backend %q takes no configuration, got %q", BackendName, config)
	}
	devices := opts.DeviceCount
	if devices <= 0 {
		devices = 1
	}
	return &Backend{devices: devices}, nil
}

// Name returns "interp".
func (b *Backend) Name() string { return BackendName }

// Description describes the backend for diagnostics.
func (b *Backend) Description() string {
	return fmt.Sprintf("%s - pure Go graph interpreter (%d logical devices)", BackendName, b.devices)
}

// NumDevices returns the configured logical device count.
func (b *Backend) NumDevices() int { return b.devices }

// Close invalidates the backend. Safe to call more than once.
func (b *Backend) Close() error {
	b.closed = true
	return nil
}

// Compile parses and shape-checks the text graph. All graph validation
// happens here; Execute on the result can only fail on runtime faults.
func (b *Backend) Compile(ctx context.Context, bundle *graphio.Bundle, opts backend.CompileOptions) (backend.Executable, error) {
	if b.closed {
		return nil, fmt.Errorf("backend %q is closed", BackendName)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bundle.Format != graphio.FormatText {
		return nil, fmt.Errorf("backend %q compiles %s graphs only, got %s", BackendName, graphio.FormatText, bundle.Format)
	}
	if opts.DeviceNum < 0 || opts.DeviceNum >= b.devices {
		return nil, fmt.Errorf("backend %q: device %d out of range [0,%d)", BackendName, opts.DeviceNum, b.devices)
	}
	prog, err := parseProgram(bundle.Data)
	if err != nil {
		return nil, err
	}
	return &Executable{backend: b, name: prog.name, prog: prog}, nil
}

// Executable is a parsed, validated text graph bound to its backend.
type Executable struct {
	backend *Backend
	name    string
	prog    *program
}

// Name returns the graph name from the "graph" header line.
func (e *Executable) Name() string { return e.name }

// Inputs returns the declared parameter signature, or nil after Finalize.
func (e *Executable) Inputs() []graphio.Node {
	if e.prog == nil {
		return nil
	}
	return append([]graphio.Node(nil), e.prog.params...)
}

// Outputs returns the inferred output signature, or nil after Finalize.
func (e *Executable) Outputs() []graphio.Node {
	if e.prog == nil {
		return nil
	}
	nodes := make([]graphio.Node, len(e.prog.rets))
	for i, name := range e.prog.rets {
		nodes[i] = graphio.Node{Name: name, Shape: e.prog.outputs[i]}
	}
	return nodes
}

// Execute interprets the program with the given inputs.
func (e *Executable) Execute(ctx context.Context, inputs []*literal.Literal) ([]*literal.Literal, error) {
	if e.prog == nil {
		return nil, fmt.Errorf("executable has been finalized")
	}
	if e.backend.closed {
		return nil, fmt.Errorf("backend %q is closed", BackendName)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(inputs) != len(e.prog.params) {
		return nil, fmt.Errorf("graph %q expects %d inputs, got %d", e.prog.name, len(e.prog.params), len(inputs))
	}
	for i, param := range e.prog.params {
		if !inputs[i].Shape().Equal(param.Shape) {
			return nil, fmt.Errorf("graph %q input %d (%s): shape %s does not match %s",
				e.prog.name, i, param.Name, inputs[i].Shape(), param.Shape)
		}
	}
	return evaluate(e.prog, inputs)
}

// Finalize releases the executable. Safe to call more than once.
func (e *Executable) Finalize() {
	e.prog = nil
}
