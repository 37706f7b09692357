package xla

import (
	"context"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/example/graphrun/internal/backend"
	"github.com/example/graphrun/internal/graphio"
	"github.com/example/graphrun/internal/literal"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/pjrt"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Backend implements backend.Backend over a PJRT plugin client.
type Backend struct {
	plugin     *pjrt.Plugin
	client     *pjrt.Client
	pluginName string
}

// CheckValid returns an error if the backend is nil or already closed.
func (b *Backend) CheckValid() error {
	if b == nil || b.plugin == nil || b.client == nil {
		return errors.Errorf("backend %q is nil or already closed", BackendName)
	}
	return nil
}

// Name returns "xla".
func (b *Backend) Name() string { return BackendName }

// Description describes the plugin behind the backend.
func (b *Backend) Description() string {
	if err := b.CheckValid(); err != nil {
		return fmt.Sprintf("%s - closed", BackendName)
	}
	return fmt.Sprintf("%s:%s - %s", BackendName, b.pluginName, b.plugin)
}

// NumDevices returns the number of addressable devices of the client.
func (b *Backend) NumDevices() int {
	if err := b.CheckValid(); err != nil {
		return 0
	}
	return len(b.client.AddressableDevices())
}

// Close destroys the PJRT client. Safe to call more than once.
func (b *Backend) Close() error {
	if b.plugin == nil {
		return nil
	}
	var err error
	if b.client != nil {
		err = b.client.Destroy()
		b.client = nil
	}
	b.plugin = nil
	if err != nil {
		return errors.WithMessagef(err, "backend %q: destroying PJRT client", BackendName)
	}
	return nil
}

// Compile submits the serialized graph to the PJRT client with default
// compilation options, producing a loaded executable. The parameter and
// output signature comes from the bundle manifest when present; PJRT keeps
// the program itself opaque.
func (b *Backend) Compile(ctx context.Context, bundle *graphio.Bundle, opts backend.CompileOptions) (backend.Executable, error) {
	if err := b.CheckValid(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.DeviceNum < 0 || opts.DeviceNum >= b.NumDevices() {
		return nil, errors.Errorf("backend %q: device %d out of range [0,%d)", BackendName, opts.DeviceNum, b.NumDevices())
	}

	compileConfig := b.client.Compile()
	switch bundle.Format {
	case graphio.FormatHLOProto:
		compileConfig = compileConfig.WithHLO(bundle.Data)
	case graphio.FormatStableHLO:
		compileConfig = compileConfig.WithStableHLO(bundle.Data)
	default:
		return nil, errors.Errorf("backend %q compiles %s and %s graphs only, got %s",
			BackendName, graphio.FormatHLOProto, graphio.FormatStableHLO, bundle.Format)
	}
	klog.V(1).Infof("compiling %q (%s, %d bytes) on plugin %q", bundle.Name, bundle.Format, len(bundle.Data), b.pluginName)

	exec, err := compileConfig.Done()
	if err != nil {
		return nil, errors.WithMessagef(err, "backend %q: failed to compile %q", BackendName, bundle.Name)
	}

	var inputs, outputs []graphio.Node
	if bundle.Manifest != nil {
		inputs = bundle.Manifest.InputNodes()
		outputs = bundle.Manifest.OutputNodes()
	}
	return &Executable{
		backend:   b,
		exec:      exec,
		name:      bundle.Name,
		deviceNum: opts.DeviceNum,
		inputs:    inputs,
		outputs:   outputs,
	}, nil
}

// bufferFromLiteral transfers a host literal to the device.
func (b *Backend) bufferFromLiteral(value *literal.Literal, deviceNum int) (*pjrt.Buffer, error) {
	buffer, err := b.client.BufferFromHost().
		FromFlatDataWithDimensions(value.Flat(), value.Shape().Dimensions).
		ToDeviceNum(deviceNum).
		Done()
	if err != nil {
		return nil, errors.WithMessagef(err, "backend %q: transferring %s to device %d", BackendName, value.Shape(), deviceNum)
	}
	return buffer, nil
}

// literalFromBuffer transfers a device buffer back to a host literal.
func (b *Backend) literalFromBuffer(buffer *pjrt.Buffer) (*literal.Literal, error) {
	dtype, err := buffer.DType()
	if err != nil {
		return nil, errors.WithMessagef(err, "backend %q: reading buffer dtype", BackendName)
	}
	if !dtypeSupported(dtype) {
		return nil, errors.Errorf("backend %q: output buffer has unsupported dtype %s", BackendName, dtype)
	}
	dims, err := buffer.Dimensions()
	if err != nil {
		return nil, errors.WithMessagef(err, "backend %q: reading buffer dimensions", BackendName)
	}
	shape := literal.MakeShape(dtype, dims...)

	result, err := literal.Zeros(shape)
	if err != nil {
		return nil, errors.WithMessagef(err, "backend %q: output buffer shape", BackendName)
	}
	flat := result.Flat()

	raw, err := flatToBytes(flat)
	if err != nil {
		return nil, err
	}
	if err := buffer.ToHost(raw); err != nil {
		return nil, errors.WithMessagef(err, "backend %q: transferring %s to host", BackendName, shape)
	}
	return literal.FromFlatAny(flat, shape)
}

// flatToBytes reinterprets a typed flat slice as its backing bytes.
func flatToBytes(flat any) ([]byte, error) {
	v := reflect.ValueOf(flat)
	if v.Kind() != reflect.Slice {
		return nil, errors.Errorf("backend %q: flat data is %T, not a slice", BackendName, flat)
	}
	if v.Len() == 0 {
		return nil, nil
	}
	element0 := v.Index(0)
	sizeBytes := uintptr(v.Len()) * element0.Type().Size()
	return unsafe.Slice((*byte)(element0.Addr().UnsafePointer()), sizeBytes), nil
}

// dtypeSupported reports whether graphrun literals can represent dtype.
func dtypeSupported(dtype dtypes.DType) bool {
	switch dtype {
	case dtypes.Bool, dtypes.Float16, dtypes.Float32, dtypes.Float64, dtypes.Int32, dtypes.Int64:
		return true
	}
	return false
}
