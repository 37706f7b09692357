package xla

import (
	"context"

	"github.com/example/graphrun/internal/graphio"
	"github.com/example/graphrun/internal/literal"
	"github.com/gomlx/gopjrt/pjrt"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Executable wraps a pjrt.LoadedExecutable. It is valid only for the backend
// instance that compiled it.
type Executable struct {
	backend   *Backend
	exec      *pjrt.LoadedExecutable
	name      string
	deviceNum int

	// Signature from the bundle manifest; nil when the graph came without one.
	inputs  []graphio.Node
	outputs []graphio.Node
}

// CheckValid returns an error if the executable or its backend have been
// released.
func (e *Executable) CheckValid() error {
	if e == nil || e.exec == nil || e.backend == nil {
		return errors.Errorf("backend %q: executable is nil or already finalized", BackendName)
	}
	return e.backend.CheckValid()
}

// Name returns the graph name the executable was compiled from.
func (e *Executable) Name() string { return e.name }

// Inputs returns the manifest-declared parameter signature, or nil.
func (e *Executable) Inputs() []graphio.Node {
	return append([]graphio.Node(nil), e.inputs...)
}

// Outputs returns the manifest-declared output signature, or nil.
func (e *Executable) Outputs() []graphio.Node {
	return append([]graphio.Node(nil), e.outputs...)
}

// Execute transfers the input literals to the device, runs the executable
// synchronously and transfers the outputs back to host literals. Input and
// output device buffers are destroyed before returning, on every path.
func (e *Executable) Execute(ctx context.Context, inputs []*literal.Literal) ([]*literal.Literal, error) {
	if err := e.CheckValid(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inputBuffers := make([]*pjrt.Buffer, 0, len(inputs))
	defer func() { destroyBuffers(inputBuffers) }()
	for i, value := range inputs {
		buffer, err := e.backend.bufferFromLiteral(value, e.deviceNum)
		if err != nil {
			return nil, errors.WithMessagef(err, "input %d", i)
		}
		inputBuffers = append(inputBuffers, buffer)
	}

	outputBuffers, err := e.exec.Execute(inputBuffers...).DonateNone().Done()
	if err != nil {
		return nil, errors.WithMessagef(err, "backend %q: failed to execute %q", BackendName, e.name)
	}
	defer destroyBuffers(outputBuffers)

	results := make([]*literal.Literal, len(outputBuffers))
	for i, buffer := range outputBuffers {
		results[i], err = e.backend.literalFromBuffer(buffer)
		if err != nil {
			return nil, errors.WithMessagef(err, "output %d", i)
		}
	}
	return results, nil
}

// Finalize frees the loaded executable. Safe to call more than once.
func (e *Executable) Finalize() {
	if e == nil || e.exec == nil {
		return
	}
	if err := e.exec.Destroy(); err != nil {
		klog.Warningf("error while destroying executable %q on backend %q: %+v", e.name, BackendName, err)
	}
	e.exec = nil
	e.backend = nil
}

func destroyBuffers(buffers []*pjrt.Buffer) {
	for _, buffer := range buffers {
		if buffer == nil {
			continue
		}
		if err := buffer.Destroy(); err != nil {
			klog.Warningf("error while destroying %q buffer: %+v", BackendName, err)
		}
	}
}
