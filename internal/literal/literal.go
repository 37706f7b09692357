// Package literal implements host-side tensor values: fixed shape, fixed
// dtype, flat data. Literals are what the runner feeds into an executable
// and what it gets back out.
package literal

import (
	"fmt"
	"math"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/x448/float16"
)

// Shape describes the dtype and dimensions of a literal. A rank-0 shape
// (no dimensions) is a scalar with one element.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

// MakeShape builds a shape from a dtype and dimensions.
func MakeShape(dtype dtypes.DType, dims ...int) Shape {
	return Shape{DType: dtype, Dimensions: append([]int(nil), dims...)}
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int { return len(s.Dimensions) }

// Size returns the number of elements the shape holds.
func (s Shape) Size() int {
	size := 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return size
}

// Equal reports whether both shapes have the same dtype, rank and dimensions.
func (s Shape) Equal(o Shape) bool {
	if s.DType != o.DType || len(s.Dimensions) != len(o.Dimensions) {
		return false
	}
	for i, d := range s.Dimensions {
		if o.Dimensions[i] != d {
			return false
		}
	}
	return true
}

// Check returns an error if any dimension is not positive or the element
// count would overflow.
func (s Shape) Check() error {
	count := 1
	for i, d := range s.Dimensions {
		if d < 1 {
			return fmt.Errorf("shape %s: dimension %d is %d, must be positive", s, i, d)
		}
		if count > math.MaxInt/d {
			return fmt.Errorf("shape %s overflows element count", s)
		}
		count *= d
	}
	return nil
}

// String renders the shape in the literal grammar, e.g. "f32[2,3]".
func (s Shape) String() string {
	out := dtypeToken(s.DType) + "["
	for i, d := range s.Dimensions {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%d", d)
	}
	return out + "]"
}

// Supported is the set of Go element types literals can hold.
type Supported interface {
	~bool | ~float32 | ~float64 | ~int32 | ~int64 | float16.Float16
}

// Literal is an immutable host tensor.
type Literal struct {
	shape Shape
	flat  any
}

// FromFlat builds a literal from a flat slice and dimensions. The slice
// length must match the element count of the dimensions.
func FromFlat[T Supported](flat []T, dims ...int) (*Literal, error) {
	shape := MakeShape(dtypeOf[T](), dims...)
	if err := shape.Check(); err != nil {
		return nil, err
	}
	if shape.Size() != len(flat) {
		return nil, fmt.Errorf("shape %s expects %d elements, got %d", shape, shape.Size(), len(flat))
	}
	return &Literal{shape: shape, flat: append([]T(nil), flat...)}, nil
}

// Scalar builds a rank-0 literal holding a single value.
func Scalar[T Supported](value T) *Literal {
	return &Literal{shape: MakeShape(dtypeOf[T]()), flat: []T{value}}
}

// Zeros builds a literal of the given shape with zero-valued elements.
func Zeros(shape Shape) (*Literal, error) {
	if err := shape.Check(); err != nil {
		return nil, err
	}
	flat, err := newFlat(shape.DType, shape.Size())
	if err != nil {
		return nil, err
	}
	return &Literal{shape: shape, flat: flat}, nil
}

// FromFlatAny builds a literal from an untyped flat slice. The dynamic type
// must match the shape's dtype and the length its element count. The slice
// is taken over; callers must not mutate it afterwards.
func FromFlatAny(flat any, shape Shape) (*Literal, error) {
	if err := shape.Check(); err != nil {
		return nil, err
	}
	var n int
	var dtype dtypes.DType
	switch v := flat.(type) {
	case []bool:
		n, dtype = len(v), dtypes.Bool
	case []float16.Float16:
		n, dtype = len(v), dtypes.Float16
	case []float32:
		n, dtype = len(v), dtypes.Float32
	case []float64:
		n, dtype = len(v), dtypes.Float64
	case []int32:
		n, dtype = len(v), dtypes.Int32
	case []int64:
		n, dtype = len(v), dtypes.Int64
	default:
		return nil, fmt.Errorf("unsupported flat slice type %T", flat)
	}
	if dtype != shape.DType {
		return nil, fmt.Errorf("flat slice %T does not match shape %s", flat, shape)
	}
	if n != shape.Size() {
		return nil, fmt.Errorf("shape %s expects %d elements, got %d", shape, shape.Size(), n)
	}
	return &Literal{shape: shape, flat: flat}, nil
}

// Shape returns the literal's shape.
func (l *Literal) Shape() Shape { return l.shape }

// DType returns the literal's element type.
func (l *Literal) DType() dtypes.DType { return l.shape.DType }

// Flat returns a copy of the flat data as a typed slice ([]float32, []int64, ...).
func (l *Literal) Flat() any {
	switch v := l.flat.(type) {
	case []bool:
		return append([]bool(nil), v...)
	case []float16.Float16:
		return append([]float16.Float16(nil), v...)
	case []float32:
		return append([]float32(nil), v...)
	case []float64:
		return append([]float64(nil), v...)
	case []int32:
		return append([]int32(nil), v...)
	case []int64:
		return append([]int64(nil), v...)
	}
	return nil
}

// Equal reports whether both literals have the same shape and elements.
func (l *Literal) Equal(o *Literal) bool {
	if l == nil || o == nil {
		return l == o
	}
	if !l.shape.Equal(o.shape) {
		return false
	}
	return l.String() == o.String()
}

func dtypeOf[T Supported]() dtypes.DType {
	var zero T
	switch any(zero).(type) {
	case bool:
		return dtypes.Bool
	case float16.Float16:
		return dtypes.Float16
	case float32:
		return dtypes.Float32
	case float64:
		return dtypes.Float64
	case int32:
		return dtypes.Int32
	case int64:
		return dtypes.Int64
	}
	return dtypes.InvalidDType
}

func newFlat(dtype dtypes.DType, size int) (any, error) {
	switch dtype {
	case dtypes.Bool:
		return make([]bool, size), nil
	case dtypes.Float16:
		return make([]float16.Float16, size), nil
	case dtypes.Float32:
		return make([]float32, size), nil
	case dtypes.Float64:
		return make([]float64, size), nil
	case dtypes.Int32:
		return make([]int32, size), nil
	case dtypes.Int64:
		return make([]int64, size), nil
	}
	return nil, fmt.Errorf("unsupported dtype %s", dtype)
}

// SizeBytes returns the in-memory size of the flat data.
func (l *Literal) SizeBytes() int {
	var elem int
	switch l.shape.DType {
	case dtypes.Bool:
		elem = 1
	case dtypes.Float16:
		elem = 2
	case dtypes.Float32, dtypes.Int32:
		elem = 4
	default:
		elem = 8
	}
	return elem * l.shape.Size()
}
