package literal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/x448/float16"
)

// The literal grammar is "dtype[dims]=values", e.g. "f32[2,2]=1,2,3,4".
// A scalar is written with empty dimensions: "f32[]=5". The same grammar is
// used for printing outputs, so a printed literal parses back to itself.

var dtypeTokens = map[string]dtypes.DType{
	"pred": dtypes.Bool,
	"f16":  dtypes.Float16,
	"f32":  dtypes.Float32,
	"f64":  dtypes.Float64,
	"i32":  dtypes.Int32,
	"i64":  dtypes.Int64,
}

// ParseDType resolves a dtype token ("f32", "i64", "pred", ...).
func ParseDType(token string) (dtypes.DType, error) {
	dtype, ok := dtypeTokens[strings.TrimSpace(token)]
	if !ok {
		return dtypes.InvalidDType, fmt.Errorf("unsupported dtype %q (supported: pred, f16, f32, f64, i32, i64)", token)
	}
	return dtype, nil
}

func dtypeToken(dtype dtypes.DType) string {
	for token, dt := range dtypeTokens {
		if dt == dtype {
			return token
		}
	}
	return fmt.Sprintf("<%s>", dtype)
}

// ParseShape parses "dtype[d1,d2,...]", e.g. "f32[2,3]" or scalar "i64[]".
func ParseShape(s string) (Shape, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '[')
	if open < 0 || !strings.HasSuffix(s, "]") {
		return Shape{}, fmt.Errorf("invalid shape %q: expected dtype[dims]", s)
	}
	dtype, err := ParseDType(s[:open])
	if err != nil {
		return Shape{}, err
	}
	inner := strings.TrimSpace(s[open+1 : len(s)-1])
	if inner == "" {
		return MakeShape(dtype), nil
	}
	parts := strings.Split(inner, ",")
	dims := make([]int, len(parts))
	for i, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Shape{}, fmt.Errorf("invalid shape %q: dimension %q is not an integer", s, p)
		}
		dims[i] = d
	}
	shape := MakeShape(dtype, dims...)
	if err := shape.Check(); err != nil {
		return Shape{}, err
	}
	return shape, nil
}

// Parse parses a full literal, e.g. "f32[2]=1.5,2.5".
func Parse(s string) (*Literal, error) {
	eq := strings.IndexByte(s, '=')
	if eq < 0 {
		return nil, fmt.Errorf("invalid literal %q: expected dtype[dims]=values", s)
	}
	shape, err := ParseShape(s[:eq])
	if err != nil {
		return nil, err
	}
	values := strings.Split(s[eq+1:], ",")
	if len(values) == 1 && strings.TrimSpace(values[0]) == "" {
		values = nil
	}
	if len(values) != shape.Size() {
		return nil, fmt.Errorf("literal %q: shape %s expects %d values, got %d", s, shape, shape.Size(), len(values))
	}
	flat, err := newFlat(shape.DType, shape.Size())
	if err != nil {
		return nil, err
	}
	for i, raw := range values {
		raw = strings.TrimSpace(raw)
		if err := parseElement(flat, i, shape.DType, raw); err != nil {
			return nil, fmt.Errorf("literal %q: value %q: %w", s, raw, err)
		}
	}
	return FromFlatAny(flat, shape)
}

func parseElement(flat any, i int, dtype dtypes.DType, raw string) error {
	switch dtype {
	case dtypes.Bool:
		switch raw {
		case "true", "1":
			flat.([]bool)[i] = true
		case "false", "0":
			flat.([]bool)[i] = false
		default:
			return fmt.Errorf("not a boolean")
		}
	case dtypes.Float16:
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return err
		}
		flat.([]float16.Float16)[i] = float16.Fromfloat32(float32(v))
	case dtypes.Float32:
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return err
		}
		flat.([]float32)[i] = float32(v)
	case dtypes.Float64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		flat.([]float64)[i] = v
	case dtypes.Int32:
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return err
		}
		flat.([]int32)[i] = int32(v)
	case dtypes.Int64:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		flat.([]int64)[i] = v
	default:
		return fmt.Errorf("unsupported dtype %s", dtype)
	}
	return nil
}

// String renders the literal in the parse grammar.
func (l *Literal) String() string {
	var sb strings.Builder
	sb.WriteString(l.shape.String())
	sb.WriteByte('=')
	n := l.shape.Size()
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(formatElement(l.flat, i))
	}
	return sb.String()
}

func formatElement(flat any, i int) string {
	switch v := flat.(type) {
	case []bool:
		return strconv.FormatBool(v[i])
	case []float16.Float16:
		return strconv.FormatFloat(float64(v[i].Float32()), 'g', -1, 32)
	case []float32:
		return strconv.FormatFloat(float64(v[i]), 'g', -1, 32)
	case []float64:
		return strconv.FormatFloat(v[i], 'g', -1, 64)
	case []int32:
		return strconv.FormatInt(int64(v[i]), 10)
	case []int64:
		return strconv.FormatInt(v[i], 10)
	}
	return "?"
}
