package ort

import (
	"context"
	"fmt"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"

	"github.com/example/graphrun/internal/backend"
	"github.com/example/graphrun/internal/graphio"
	"github.com/example/graphrun/internal/literal"
	"github.com/gomlx/gopjrt/dtypes"
)

// Compile creates an ORT session for the ONNX graph. ORT loads the model
// from disk itself, so compilation works from the bundle path. The bundle
// manifest is mandatory: it supplies the parameter names and order that the
// positional literal inputs are bound to.
func (b *Backend) Compile(ctx context.Context, bundle *graphio.Bundle, opts backend.CompileOptions) (backend.Executable, error) {
	if b.env == nil || b.runtime == nil {
		return nil, fmt.Errorf("backend %q is closed", BackendName)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bundle.Format != graphio.FormatONNX {
		return nil, fmt.Errorf("backend %q compiles %s graphs only, got %s", BackendName, graphio.FormatONNX, bundle.Format)
	}
	if opts.DeviceNum != 0 {
		return nil, fmt.Errorf("backend %q: device %d out of range [0,1)", BackendName, opts.DeviceNum)
	}
	if bundle.Manifest == nil {
		return nil, fmt.Errorf("backend %q: graph %s needs a %s sidecar declaring inputs and outputs",
			BackendName, bundle.Path, graphio.ManifestSuffix)
	}
	inputs := bundle.Manifest.InputNodes()
	outputs := bundle.Manifest.OutputNodes()
	if len(outputs) == 0 {
		return nil, fmt.Errorf("backend %q: manifest for %s declares no outputs", BackendName, bundle.Path)
	}
	for _, node := range append(append([]graphio.Node(nil), inputs...), outputs...) {
		switch node.Shape.DType {
		case dtypes.Float32, dtypes.Int64:
		default:
			return nil, fmt.Errorf("backend %q: node %q has dtype %s; only f32 and i64 tensors are supported",
				BackendName, node.Name, node.Shape)
		}
	}

	session, err := b.runtime.NewSession(b.env, bundle.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("backend %q: session for %q (%s): %w", BackendName, bundle.Name, bundle.Path, err)
	}
	return &Executable{
		backend: b,
		session: session,
		name:    bundle.Name,
		inputs:  inputs,
		outputs: outputs,
	}, nil
}

// Executable wraps an ORT session for a single ONNX graph.
type Executable struct {
	backend *Backend
	session *ort.Session
	name    string
	inputs  []graphio.Node
	outputs []graphio.Node
}

// Name returns the graph name.
func (e *Executable) Name() string { return e.name }

// Inputs returns the manifest-declared parameter signature.
func (e *Executable) Inputs() []graphio.Node {
	return append([]graphio.Node(nil), e.inputs...)
}

// Outputs returns the manifest-declared output signature.
func (e *Executable) Outputs() []graphio.Node {
	return append([]graphio.Node(nil), e.outputs...)
}

// Execute binds the positional input literals to the manifest parameter
// names and runs the session. ORT values are closed on every path.
func (e *Executable) Execute(ctx context.Context, inputs []*literal.Literal) ([]*literal.Literal, error) {
	if e.session == nil {
		return nil, fmt.Errorf("executable has been finalized")
	}
	if e.backend.runtime == nil {
		return nil, fmt.Errorf("backend %q is closed", BackendName)
	}
	if len(inputs) != len(e.inputs) {
		return nil, fmt.Errorf("graph %q expects %d inputs, got %d", e.name, len(e.inputs), len(inputs))
	}

	ortInputs := make(map[string]*ort.Value, len(inputs))
	defer closeValues(ortInputs)
	for i, value := range inputs {
		v, err := literalToValue(e.backend.runtime, value)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", e.inputs[i].Name, err)
		}
		ortInputs[e.inputs[i].Name] = v
	}

	ortOutputs, err := e.session.Run(ctx, ortInputs)
	if err != nil {
		return nil, fmt.Errorf("run %q: %w", e.name, err)
	}
	defer closeValues(ortOutputs)

	results := make([]*literal.Literal, 0, len(e.outputs))
	for _, node := range e.outputs {
		v, ok := ortOutputs[node.Name]
		if !ok {
			return nil, fmt.Errorf("graph %q produced no output named %q", e.name, node.Name)
		}
		result, err := valueToLiteral(v)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", node.Name, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// Finalize closes the ORT session. Safe to call more than once.
func (e *Executable) Finalize() {
	if e.session != nil {
		e.session.Close()
		e.session = nil
	}
}

func literalToValue(runtime *ort.Runtime, value *literal.Literal) (*ort.Value, error) {
	dims := value.Shape().Dimensions
	shape := make([]int64, len(dims))
	for i, d := range dims {
		shape[i] = int64(d)
	}
	switch data := value.Flat().(type) {
	case []float32:
		return ort.NewTensorValue(runtime, data, shape)
	case []int64:
		return ort.NewTensorValue(runtime, data, shape)
	default:
		return nil, fmt.Errorf("unsupported tensor dtype %s", value.Shape())
	}
}

func valueToLiteral(v *ort.Value) (*literal.Literal, error) {
	elemType, err := v.GetTensorElementType()
	if err != nil {
		return nil, fmt.Errorf("get element type: %w", err)
	}
	switch elemType {
	case ort.ONNXTensorElementDataTypeFloat:
		data, shape, err := ort.GetTensorData[float32](v)
		if err != nil {
			return nil, err
		}
		return literal.FromFlatAny(data, literal.MakeShape(dtypes.Float32, toInts(shape)...))
	case ort.ONNXTensorElementDataTypeInt64:
		data, shape, err := ort.GetTensorData[int64](v)
		if err != nil {
			return nil, err
		}
		return literal.FromFlatAny(data, literal.MakeShape(dtypes.Int64, toInts(shape)...))
	default:
		return nil, fmt.Errorf("unsupported ORT element type %d", elemType)
	}
}

func toInts(shape []int64) []int {
	out := make([]int, len(shape))
	for i, d := range shape {
		out[i] = int(d)
	}
	return out
}

func closeValues(values map[string]*ort.Value) {
	for _, v := range values {
		if v != nil {
			v.Close()
		}
	}
}
