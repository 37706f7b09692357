package interp

import (
	"fmt"
	"math"

	"github.com/example/graphrun/internal/literal"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/x448/float16"
)

// evaluate interprets a parsed program with the given parameter values,
// which must already have been validated against the parameter signature.
func evaluate(prog *program, inputs []*literal.Literal) ([]*literal.Literal, error) {
	env := make(map[string]*literal.Literal, len(prog.params)+len(prog.insts))
	for i, param := range prog.params {
		env[param.Name] = inputs[i]
	}

	for _, inst := range prog.insts {
		var result *literal.Literal
		var err error
		switch inst.op {
		case opConst:
			result = inst.constant
		case opNeg, opAbs:
			result, err = applyUnary(inst.op, env[inst.args[0]])
		default:
			result, err = applyBinary(inst.op, env[inst.args[0]], env[inst.args[1]])
		}
		if err != nil {
			return nil, fmt.Errorf("graph %q line %d: %w", prog.name, inst.line, err)
		}
		env[inst.dest] = result
	}

	outputs := make([]*literal.Literal, len(prog.rets))
	for i, name := range prog.rets {
		outputs[i] = env[name]
	}
	return outputs, nil
}

type floatElem interface{ ~float32 | ~float64 }

type intElem interface{ ~int32 | ~int64 }

func applyBinary(op opCode, a, b *literal.Literal) (*literal.Literal, error) {
	shape := a.Shape()
	switch shape.DType {
	case dtypes.Float16:
		af := f16ToF32(a.Flat().([]float16.Float16))
		bf := f16ToF32(b.Flat().([]float16.Float16))
		out, err := binaryFloat(op, af, bf)
		if err != nil {
			return nil, err
		}
		return literal.FromFlatAny(f32ToF16(out), shape)
	case dtypes.Float32:
		out, err := binaryFloat(op, a.Flat().([]float32), b.Flat().([]float32))
		if err != nil {
			return nil, err
		}
		return literal.FromFlatAny(out, shape)
	case dtypes.Float64:
		out, err := binaryFloat(op, a.Flat().([]float64), b.Flat().([]float64))
		if err != nil {
			return nil, err
		}
		return literal.FromFlatAny(out, shape)
	case dtypes.Int32:
		out, err := binaryInt(op, a.Flat().([]int32), b.Flat().([]int32))
		if err != nil {
			return nil, err
		}
		return literal.FromFlatAny(out, shape)
	case dtypes.Int64:
		out, err := binaryInt(op, a.Flat().([]int64), b.Flat().([]int64))
		if err != nil {
			return nil, err
		}
		return literal.FromFlatAny(out, shape)
	}
	return nil, fmt.Errorf("unsupported dtype %s", shape.DType)
}

func applyUnary(op opCode, a *literal.Literal) (*literal.Literal, error) {
	shape := a.Shape()
	switch shape.DType {
	case dtypes.Float16:
		out := unaryFloat(op, f16ToF32(a.Flat().([]float16.Float16)))
		return literal.FromFlatAny(f32ToF16(out), shape)
	case dtypes.Float32:
		return literal.FromFlatAny(unaryFloat(op, a.Flat().([]float32)), shape)
	case dtypes.Float64:
		return literal.FromFlatAny(unaryFloat(op, a.Flat().([]float64)), shape)
	case dtypes.Int32:
		return literal.FromFlatAny(unaryInt(op, a.Flat().([]int32)), shape)
	case dtypes.Int64:
		return literal.FromFlatAny(unaryInt(op, a.Flat().([]int64)), shape)
	}
	return nil, fmt.Errorf("unsupported dtype %s", shape.DType)
}

func binaryFloat[T floatElem](op opCode, a, b []T) ([]T, error) {
	out := make([]T, len(a))
	for i := range a {
		switch op {
		case opAdd:
			out[i] = a[i] + b[i]
		case opSub:
			out[i] = a[i] - b[i]
		case opMul:
			out[i] = a[i] * b[i]
		case opDiv:
			out[i] = a[i] / b[i]
		case opMax:
			out[i] = max(a[i], b[i])
		case opMin:
			out[i] = min(a[i], b[i])
		}
	}
	return out, nil
}

func binaryInt[T intElem](op opCode, a, b []T) ([]T, error) {
	out := make([]T, len(a))
	for i := range a {
		switch op {
		case opAdd:
			out[i] = a[i] + b[i]
		case opSub:
			out[i] = a[i] - b[i]
		case opMul:
			out[i] = a[i] * b[i]
		case opDiv:
			if b[i] == 0 {
				return nil, fmt.Errorf("integer division by zero at element %d", i)
			}
			out[i] = a[i] / b[i]
		case opMax:
			out[i] = max(a[i], b[i])
		case opMin:
			out[i] = min(a[i], b[i])
		}
	}
	return out, nil
}

func unaryFloat[T floatElem](op opCode, a []T) []T {
	out := make([]T, len(a))
	for i := range a {
		switch op {
		case opNeg:
			out[i] = -a[i]
		case opAbs:
			out[i] = T(math.Abs(float64(a[i])))
		}
	}
	return out
}

func unaryInt[T intElem](op opCode, a []T) []T {
	out := make([]T, len(a))
	for i := range a {
		switch op {
		case opNeg:
			out[i] = -a[i]
		case opAbs:
			if a[i] < 0 {
				out[i] = -a[i]
			} else {
				out[i] = a[i]
			}
		}
	}
	return out
}

func f16ToF32(in []float16.Float16) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = v.Float32()
	}
	return out
}

func f32ToF16(in []float32) []float16.Float16 {
	out := make([]float16.Float16, len(in))
	for i, v := range in {
		out[i] = float16.Fromfloat32(v)
	}
	return out
}
